package usecase

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"io"
	"math"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/forPelevin/harvester/internal/domain/naming"
	"github.com/forPelevin/harvester/internal/domain/sampling"
	"github.com/forPelevin/harvester/internal/infra/fsx"
	"github.com/forPelevin/harvester/internal/infra/metrics"
	"github.com/forPelevin/harvester/internal/logger"
	"github.com/forPelevin/harvester/internal/ports"
	"github.com/forPelevin/harvester/internal/types"
)

// Sampler writes one still per sample timestamp into outputRoot/<video name>/.
type Sampler struct {
	Media   ports.MediaOpener
	Ledger  ports.FrameLedger // optional
	Metrics *metrics.Metrics  // optional
	Log     *zap.Logger
	// Workers > 1 decodes timestamps concurrently. The output is the same as a sequential run.
	Workers int
}

type FrameFile struct {
	Timestamp  int
	FrameIndex int64
	Path       string
}

type SampleResult struct {
	Dir      string
	Video    string
	Frames   []FrameFile
	Failures []*FrameError
}

type frameOutcome struct {
	file FrameFile
	err  *FrameError
}

func (s Sampler) Sample(ctx context.Context, mediaPath, outputRoot string, intervalSeconds int) (SampleResult, error) {
	if intervalSeconds <= 0 {
		return SampleResult{}, fmt.Errorf("%w: interval must be > 0, got %d", ErrInvalidArgument, intervalSeconds)
	}
	if strings.TrimSpace(mediaPath) == "" {
		return SampleResult{}, fmt.Errorf("%w: media path is empty", ErrInvalidArgument)
	}
	log := logger.OrNop(s.Log)

	video := videoFolderName(mediaPath, log)
	dir := filepath.Join(outputRoot, video)
	log = log.With(zap.String("video", video))

	if err := fsx.EnsureDir(dir); err != nil {
		return SampleResult{}, err
	}

	h, err := s.Media.Open(ctx, mediaPath)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return SampleResult{}, ctxErr
		}
		return SampleResult{}, &MediaError{Path: mediaPath, Err: err}
	}
	defer func() {
		if err := h.Close(); err != nil {
			log.Warn("release media handle", zap.Error(err))
		}
	}()

	info := h.Info()
	if err := validateInfo(info); err != nil {
		return SampleResult{}, &MediaError{Path: mediaPath, Err: err}
	}

	stamps := sampling.Timestamps(info.Duration(), intervalSeconds)
	log.Info("sampling frames",
		zap.Float64("fps", info.FrameRate),
		zap.Int64("frame_count", info.FrameCount),
		zap.Float64("duration_s", info.Duration()),
		zap.Int("interval_s", intervalSeconds),
		zap.Int("samples", len(stamps)),
	)

	outcomes, err := s.run(ctx, h, dir, video, info, stamps, log)
	if err != nil {
		return SampleResult{}, err
	}

	res := SampleResult{Dir: dir, Video: video}
	for _, o := range outcomes {
		if o.err != nil {
			res.Failures = append(res.Failures, o.err)
			continue
		}
		res.Frames = append(res.Frames, o.file)
	}
	log.Info("sampling done",
		zap.String("dir", dir),
		zap.Int("frames", len(res.Frames)),
		zap.Int("failed", len(res.Failures)),
	)
	return res, nil
}

func (s Sampler) run(
	ctx context.Context,
	h ports.MediaHandle,
	dir, video string,
	info ports.MediaInfo,
	stamps []int,
	log *zap.Logger,
) ([]frameOutcome, error) {
	outcomes := make([]frameOutcome, len(stamps))

	workers := s.Workers
	if workers > len(stamps) {
		workers = len(stamps)
	}
	if workers <= 1 {
		for i, t := range stamps {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			outcomes[i] = s.extract(ctx, h, dir, video, info, t, log)
		}
		return outcomes, ctx.Err()
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcomes[i] = s.extract(ctx, h, dir, video, info, stamps[i], log)
			}
		}()
	}
feed:
	for i := range stamps {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (s Sampler) extract(
	ctx context.Context,
	h ports.MediaHandle,
	dir, video string,
	info ports.MediaInfo,
	t int,
	log *zap.Logger,
) frameOutcome {
	idx := frameIndex(t, info)
	name := sampling.FrameName(t)
	path := filepath.Join(dir, name)

	err := s.writeFrame(ctx, h, dir, name, idx)
	if err != nil {
		fe := &FrameError{Timestamp: t, FrameIndex: idx, Err: err}
		log.Warn("frame extraction failed",
			zap.Int("timestamp_s", t),
			zap.Int64("frame_index", idx),
			zap.Error(err),
		)
		s.Metrics.FrameFailed()
		s.record(ctx, types.FrameRecord{
			Video: video, TimestampSec: t, FrameIndex: idx, Path: path,
			Status: types.FrameFailed, Error: err.Error(),
		}, log)
		return frameOutcome{err: fe}
	}

	log.Debug("frame saved", zap.Int("timestamp_s", t), zap.String("path", path))
	s.Metrics.FrameExtracted()
	s.record(ctx, types.FrameRecord{
		Video: video, TimestampSec: t, FrameIndex: idx, Path: path,
		Status: types.FrameExtracted,
	}, log)
	return frameOutcome{file: FrameFile{Timestamp: t, FrameIndex: idx, Path: path}}
}

func (s Sampler) writeFrame(ctx context.Context, h ports.MediaHandle, dir, name string, idx int64) error {
	img, err := h.ReadFrame(ctx, idx)
	if err != nil {
		return err
	}
	if img == nil {
		return errors.New("backend returned no image")
	}
	return fsx.WriteAtomic(dir, name, func(w io.Writer) error {
		return png.Encode(w, img)
	})
}

func (s Sampler) record(ctx context.Context, r types.FrameRecord, log *zap.Logger) {
	if s.Ledger == nil {
		return
	}
	if err := s.Ledger.Record(ctx, r); err != nil {
		log.Warn("ledger write failed", zap.Int("timestamp_s", r.TimestampSec), zap.Error(err))
	}
}

// frameIndex rounds t to the nearest frame, never past the last one.
func frameIndex(t int, info ports.MediaInfo) int64 {
	idx := sampling.FrameIndex(t, info.FrameRate)
	if info.FrameCount > 0 && idx >= info.FrameCount {
		idx = info.FrameCount - 1
	}
	return idx
}

func validateInfo(info ports.MediaInfo) error {
	if math.IsNaN(info.FrameRate) || math.IsInf(info.FrameRate, 0) || info.FrameRate <= 0 {
		return fmt.Errorf("invalid frame rate %v", info.FrameRate)
	}
	if info.FrameCount < 0 {
		return fmt.Errorf("invalid frame count %d", info.FrameCount)
	}
	return nil
}

// videoFolderName normalizes the media base name. Names with nothing usable fall back to a
// stable id derived from the absolute path.
func videoFolderName(mediaPath string, log *zap.Logger) string {
	base := filepath.Base(mediaPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	name, err := naming.Identifier(base)
	if err == nil {
		return name
	}
	seed := mediaPath
	if abs, absErr := filepath.Abs(mediaPath); absErr == nil {
		seed = abs
	}
	name = naming.Fallback(seed)
	log.Warn("media name has no usable characters, using fallback folder",
		zap.String("media", mediaPath),
		zap.String("folder", name),
		zap.Error(err),
	)
	return name
}
