package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forPelevin/harvester/internal/types"
)

type fakeAcquirer struct {
	err   error
	calls []string
}

func (f *fakeAcquirer) Acquire(_ context.Context, url, outDir, name string) (string, error) {
	f.calls = append(f.calls, url)
	if f.err != nil {
		return "", f.err
	}
	if name == "" {
		name = "downloaded_video"
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(outDir, name+".mp4"), nil
}

func testInput(tmp string) Input {
	return Input{
		URL:          "https://example.com/watch?v=1",
		VideoName:    "Exam Walkthrough",
		DownloadsDir: filepath.Join(tmp, "downloads"),
		FramesDir:    filepath.Join(tmp, "frames"),
		Interval:     4,
	}
}

func TestRun_FullPipeline(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	qdir := filepath.Join(tmp, "questions", "verified")
	require.NoError(t, os.MkdirAll(qdir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(qdir, "a.json"), []byte(`[{"questionId":2,"question":"b","answers":[]},{"questionId":1,"question":"a","answers":[]}]`), 0o644))

	media := &fakeMedia{
		info:   tenSecondsAt30(),
		failAt: map[int64]error{240: errors.New("truncated packet")},
	}
	ocr := &fakeOCR{}
	uc := New(Deps{Acquirer: &fakeAcquirer{}, Media: media, OCR: ocr})

	in := testInput(tmp)
	in.QuestionsDir = qdir
	in.MergedFile = filepath.Join(tmp, "questions", "full_questions.json")

	res, err := uc.Run(context.Background(), in)
	require.NoError(t, err)

	rep := res.Report
	assert.Equal(t, filepath.Join(in.DownloadsDir, "Exam Walkthrough.mp4"), rep.VideoPath)
	assert.Equal(t, filepath.Join(in.FramesDir, "exam_walkthrough"), rep.FramesDir)
	assert.Equal(t, 2, rep.Frames)
	assert.Equal(t, []types.FailedFrame{{TimestampSec: 8, FrameIndex: 240, Error: "truncated packet"}}, rep.FailedFrames)
	assert.Equal(t, 2, rep.OCRImages)
	assert.Equal(t, 2, ocr.calls)
	assert.Equal(t, 2, rep.Questions)
	assert.Equal(t, in.MergedFile, rep.MergedFile)
	for _, st := range []string{StageAcquire, StageSample, StageOCR, StageMerge} {
		assert.Contains(t, rep.StageSeconds, st)
	}

	_, err = os.Stat(filepath.Join(rep.FramesDir, "frame_0s.json"))
	assert.NoError(t, err)
	_, err = os.Stat(in.MergedFile)
	assert.NoError(t, err)
}

func TestRun_SkipsOptionalStages(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	uc := New(Deps{Acquirer: &fakeAcquirer{}, Media: &fakeMedia{info: tenSecondsAt30()}})

	res, err := uc.Run(context.Background(), testInput(tmp))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Report.Frames)
	assert.NotContains(t, res.Report.StageSeconds, StageOCR)
	assert.NotContains(t, res.Report.StageSeconds, StageMerge)
	assert.Empty(t, res.Report.MergedFile)
}

func TestRun_StageErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		deps      func() Deps
		mutate    func(in *Input)
		wantStage string
		wantIs    error
	}{
		{
			name: "download fails",
			deps: func() Deps {
				return Deps{Acquirer: &fakeAcquirer{err: errors.New("HTTP Error 404")}, Media: &fakeMedia{}}
			},
			wantStage: StageAcquire,
		},
		{
			name: "zero interval",
			deps: func() Deps {
				return Deps{Acquirer: &fakeAcquirer{}, Media: &fakeMedia{info: tenSecondsAt30()}}
			},
			mutate:    func(in *Input) { in.Interval = 0 },
			wantStage: StageSample,
			wantIs:    ErrInvalidArgument,
		},
		{
			name: "unreadable media",
			deps: func() Deps {
				return Deps{Acquirer: &fakeAcquirer{}, Media: &fakeMedia{openErr: errors.New("invalid data")}}
			},
			wantStage: StageSample,
			wantIs:    ErrMediaUnreadable,
		},
		{
			name: "merge dir missing",
			deps: func() Deps {
				return Deps{Acquirer: &fakeAcquirer{}, Media: &fakeMedia{info: tenSecondsAt30()}}
			},
			mutate: func(in *Input) {
				in.QuestionsDir = filepath.Join(in.FramesDir, "no-such-dir")
				in.MergedFile = filepath.Join(in.FramesDir, "out.json")
			},
			wantStage: StageMerge,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			in := testInput(t.TempDir())
			if tc.mutate != nil {
				tc.mutate(&in)
			}
			_, err := New(tc.deps()).Run(context.Background(), in)
			require.Error(t, err)
			assert.Equal(t, tc.wantStage, FailedStage(err))
			if tc.wantIs != nil {
				assert.True(t, errors.Is(err, tc.wantIs), "got %v", err)
			}
		})
	}
}

func TestMerge_WritesSortedQuestions(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "x.json"), []byte(`{"questionId":5,"question":"q","answers":[]}`), 0o644))

	n, err := New(Deps{}).Merge(tmp, filepath.Join(tmp, "out", "merged.json"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
