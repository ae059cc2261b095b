package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/forPelevin/harvester/internal/domain/questions"
	"github.com/forPelevin/harvester/internal/infra/metrics"
	"github.com/forPelevin/harvester/internal/logger"
	"github.com/forPelevin/harvester/internal/ports"
	"github.com/forPelevin/harvester/internal/types"
)

const (
	StageAcquire = "acquire"
	StageSample  = "sample"
	StageOCR     = "ocr"
	StageMerge   = "merge"
)

type Deps struct {
	Acquirer ports.Acquirer
	Media    ports.MediaOpener
	OCR      ports.Recognizer  // nil skips the ocr stage
	Ledger   ports.FrameLedger // optional
	Metrics  *metrics.Metrics
	Log      *zap.Logger
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase {
	d.Log = logger.OrNop(d.Log)
	return Usecase{d: d}
}

type Input struct {
	URL          string
	VideoName    string
	DownloadsDir string
	FramesDir    string
	Interval     int
	Workers      int

	// QuestionsDir empty skips the merge stage.
	QuestionsDir string
	MergedFile   string
}

type Result struct {
	Report types.Report
}

func (u Usecase) Sampler() Sampler {
	return Sampler{
		Media:   u.d.Media,
		Ledger:  u.d.Ledger,
		Metrics: u.d.Metrics,
		Log:     u.d.Log,
	}
}

func (u Usecase) TextExtractor() TextExtractor {
	return TextExtractor{OCR: u.d.OCR, Metrics: u.d.Metrics, Log: u.d.Log}
}

// Run executes acquire -> sample -> ocr -> merge. Fatal errors come back as *StageError;
// per-frame and per-image failures only show up in the report.
func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	rep := types.Report{Source: in.URL, StageSeconds: map[string]float64{}}
	log := u.d.Log

	var videoPath string
	err := u.stage(StageAcquire, &rep, func() error {
		var err error
		videoPath, err = u.d.Acquirer.Acquire(ctx, in.URL, in.DownloadsDir, in.VideoName)
		return err
	})
	if err != nil {
		return Result{Report: rep}, err
	}
	rep.VideoPath = videoPath
	log.Info("video ready", zap.String("path", videoPath))

	s := u.Sampler()
	s.Workers = in.Workers
	var sampled SampleResult
	err = u.stage(StageSample, &rep, func() error {
		var err error
		sampled, err = s.Sample(ctx, videoPath, in.FramesDir, in.Interval)
		return err
	})
	if err != nil {
		return Result{Report: rep}, err
	}
	rep.FramesDir = sampled.Dir
	rep.Frames = len(sampled.Frames)
	for _, f := range sampled.Failures {
		rep.FailedFrames = append(rep.FailedFrames, types.FailedFrame{
			TimestampSec: f.Timestamp,
			FrameIndex:   f.FrameIndex,
			Error:        f.Err.Error(),
		})
	}

	if u.d.OCR != nil {
		var sum OCRSummary
		err = u.stage(StageOCR, &rep, func() error {
			var err error
			sum, err = u.TextExtractor().Extract(ctx, sampled.Dir)
			return err
		})
		if err != nil {
			return Result{Report: rep}, err
		}
		rep.OCRImages = len(sum.Annotations)
		for _, f := range sum.Failures {
			rep.FailedImages = append(rep.FailedImages, types.FailedImage{Image: f.Image, Error: f.Err.Error()})
		}
	} else {
		log.Info("ocr stage skipped")
	}

	if in.QuestionsDir != "" {
		var n int
		err = u.stage(StageMerge, &rep, func() error {
			var err error
			n, err = u.Merge(in.QuestionsDir, in.MergedFile)
			return err
		})
		if err != nil {
			return Result{Report: rep}, err
		}
		rep.MergedFile = in.MergedFile
		rep.Questions = n
	}

	return Result{Report: rep}, nil
}

// Merge combines the question files in dir into out and returns the question count.
func (u Usecase) Merge(dir, out string) (int, error) {
	res, err := questions.MergeDir(dir)
	if err != nil {
		return 0, err
	}
	for _, d := range res.Duplicates {
		u.d.Log.Warn("duplicate question dropped",
			zap.Int("question_id", d.QuestionID),
			zap.String("file", d.File),
			zap.String("kept_from", d.KeptFrom),
		)
	}
	if err := questions.WriteFile(out, res.Questions); err != nil {
		return 0, err
	}
	u.d.Metrics.QuestionsMerged(len(res.Questions))
	u.d.Log.Info("questions merged",
		zap.Int("files", len(res.Files)),
		zap.Int("questions", len(res.Questions)),
		zap.String("out", out),
	)
	return len(res.Questions), nil
}

func (u Usecase) stage(name string, rep *types.Report, fn func() error) error {
	start := time.Now()
	u.d.Log.Info("stage started", zap.String("stage", name))
	err := fn()
	d := time.Since(start)
	rep.StageSeconds[name] = d.Seconds()
	u.d.Metrics.ObserveStage(name, d)
	if err != nil {
		u.d.Log.Error("stage failed", zap.String("stage", name), zap.Error(err))
		return &StageError{Stage: name, Err: err}
	}
	return nil
}
