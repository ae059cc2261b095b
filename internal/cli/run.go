package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/forPelevin/harvester/internal/config"
	"github.com/forPelevin/harvester/internal/logger"
	"github.com/forPelevin/harvester/internal/pipeline"
	"github.com/forPelevin/harvester/internal/types"
	"github.com/forPelevin/harvester/internal/usecase"
)

const runTimeout = 3 * time.Hour

// loadConfig layers explicitly set flags over the environment.
func loadConfig(cmd *cobra.Command) (pipeline.Config, error) {
	env, err := config.Load()
	if err != nil {
		return pipeline.Config{}, fmt.Errorf("config: %w", err)
	}
	fl := cmd.Flags()
	setString := func(name string, dst *string) {
		if fl.Changed(name) {
			*dst, _ = fl.GetString(name)
		}
	}
	setInt := func(name string, dst *int) {
		if fl.Changed(name) {
			*dst, _ = fl.GetInt(name)
		}
	}
	setString("frames", &env.FramesDir)
	setInt("interval", &env.Interval)
	setInt("workers", &env.Workers)
	setString("ocr", &env.OCRBackend)
	setString("ledger", &env.LedgerPath)
	setString("metrics-file", &env.MetricsFile)
	setString("log-level", &env.LogLevel)
	setString("downloads", &env.DownloadsDir)
	setString("questions", &env.QuestionsDir)
	setString("out", &env.MergedFile)

	log, err := logger.New(env.LogLevel, env.LogFormat)
	if err != nil {
		return pipeline.Config{}, fmt.Errorf("config: %w", err)
	}

	cfg := pipeline.Config{
		DownloadsDir:       env.DownloadsDir,
		FramesDir:          env.FramesDir,
		Interval:           env.Interval,
		Workers:            env.Workers,
		QuestionsDir:       env.QuestionsDir,
		MergedFile:         env.MergedFile,
		LedgerPath:         env.LedgerPath,
		MetricsFile:        env.MetricsFile,
		MediaBackend:       env.MediaBackend,
		FFmpegPath:         env.FFmpegPath,
		FFprobePath:        env.FFprobePath,
		YtDlpPath:          env.YtDlpPath,
		OCRBackend:         env.OCRBackend,
		TesseractPath:      env.TesseractPath,
		TesseractLang:      env.TesseractLang,
		VisionAPIKey:       env.VisionAPIKey,
		VisionBaseURL:      env.VisionBaseURL,
		VisionAllowedHosts: env.VisionAllowedHosts,
		Log:                log,
	}
	setString("name", &cfg.VideoName)
	if noMerge, _ := fl.GetBool("no-merge"); noMerge {
		cfg.QuestionsDir = ""
	}
	return cfg, nil
}

func runPipeline(cmd *cobra.Command, url string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer syncLog(cfg.Log)

	ctx, cancel := context.WithTimeout(cmd.Context(), runTimeout)
	defer cancel()

	rep, err := pipeline.Run(ctx, cfg, url)
	if err != nil {
		if st := usecase.FailedStage(err); st != "" {
			return fmt.Errorf("harvest failed at %s stage: %w", st, err)
		}
		return err
	}
	printReport(cmd.OutOrStdout(), rep)
	return nil
}

func runFrames(cmd *cobra.Command, video string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer syncLog(cfg.Log)

	ctx, cancel := context.WithTimeout(cmd.Context(), runTimeout)
	defer cancel()

	res, err := pipeline.Frames(ctx, cfg, video)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "frames: %d written to %s\n", len(res.Frames), res.Dir)
	for _, f := range res.Failures {
		fmt.Fprintf(out, "failed: %ds (frame %d): %v\n", f.Timestamp, f.FrameIndex, f.Err)
	}
	return nil
}

func runOCR(cmd *cobra.Command, dir string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer syncLog(cfg.Log)

	ctx, cancel := context.WithTimeout(cmd.Context(), runTimeout)
	defer cancel()

	sum, err := pipeline.OCR(ctx, cfg, dir)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "annotated: %d\n", len(sum.Annotations))
	for _, f := range sum.Failures {
		fmt.Fprintf(out, "failed: %s: %v\n", f.Image, f.Err)
	}
	return nil
}

func runMerge(cmd *cobra.Command, dir string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer syncLog(cfg.Log)

	if dir == "" {
		dir = cfg.QuestionsDir
	}
	n, err := pipeline.Merge(cfg, dir, cfg.MergedFile)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "questions: %d merged into %s\n", n, cfg.MergedFile)
	return nil
}

func runLedger(cmd *cobra.Command, video string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer syncLog(cfg.Log)

	recs, err := pipeline.LedgerFrames(cmd.Context(), cfg, video)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(recs) == 0 {
		fmt.Fprintf(out, "no frames recorded for %s\n", video)
		return nil
	}
	for _, r := range recs {
		line := fmt.Sprintf("%6ds  frame %-8d %-9s %s", r.TimestampSec, r.FrameIndex, r.Status, r.Path)
		if r.Error != "" {
			line += "  " + r.Error
		}
		fmt.Fprintln(out, line)
	}
	return nil
}

func printReport(w io.Writer, rep types.Report) {
	fmt.Fprintf(w, "video: %s\n", rep.VideoPath)
	fmt.Fprintf(w, "frames: %d written to %s\n", rep.Frames, rep.FramesDir)
	for _, f := range rep.FailedFrames {
		fmt.Fprintf(w, "failed: %ds (frame %d): %s\n", f.TimestampSec, f.FrameIndex, f.Error)
	}
	if rep.OCRImages > 0 || len(rep.FailedImages) > 0 {
		fmt.Fprintf(w, "ocr: %d annotated, %d failed\n", rep.OCRImages, len(rep.FailedImages))
	}
	if rep.MergedFile != "" {
		fmt.Fprintf(w, "questions: %d merged into %s\n", rep.Questions, rep.MergedFile)
	}
}

func syncLog(l *zap.Logger) {
	_ = l.Sync()
}
