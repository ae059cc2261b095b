package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/forPelevin/harvester/internal/infra/fsx"
	"github.com/forPelevin/harvester/internal/infra/ledger"
	"github.com/forPelevin/harvester/internal/infra/metrics"
	"github.com/forPelevin/harvester/internal/logger"
	"github.com/forPelevin/harvester/internal/ports"
	"github.com/forPelevin/harvester/internal/ports/adapters/tesseract"
	"github.com/forPelevin/harvester/internal/ports/adapters/vision"
	"github.com/forPelevin/harvester/internal/ports/adapters/webpage"
	"github.com/forPelevin/harvester/internal/ports/adapters/ytdlp"
	"github.com/forPelevin/harvester/internal/types"
	"github.com/forPelevin/harvester/internal/usecase"
)

const (
	OCRTesseract = "tesseract"
	OCRVision    = "vision"
	OCRNone      = "none"

	MediaFFmpeg = "ffmpeg"
	MediaOpenCV = "opencv"

	reportName = "report.json"
)

// Config is everything a run needs. Nothing is read from the environment here.
type Config struct {
	VideoName    string
	DownloadsDir string
	FramesDir    string
	Interval     int
	Workers      int

	// QuestionsDir empty skips the merge stage of Run.
	QuestionsDir string
	MergedFile   string

	LedgerPath  string
	MetricsFile string

	MediaBackend string
	FFmpegPath   string
	FFprobePath  string
	YtDlpPath    string

	OCRBackend         string
	TesseractPath      string
	TesseractLang      string
	VisionAPIKey       string
	VisionBaseURL      string
	VisionAllowedHosts []string

	Log *zap.Logger
}

// Defaults mirrors the folder layout the harvester has always used.
func Defaults() Config {
	return Config{
		DownloadsDir: "downloads",
		FramesDir:    "frames",
		Interval:     10,
		Workers:      1,
		QuestionsDir: "questions/verified",
		MergedFile:   "questions/full_questions.json",
		MediaBackend: MediaFFmpeg,
		OCRBackend:   OCRTesseract,
	}
}

func (c Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be > 0, got %d", usecase.ErrInvalidArgument, c.Interval)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must be >= 0, got %d", usecase.ErrInvalidArgument, c.Workers)
	}
	if strings.TrimSpace(c.FramesDir) == "" {
		return errors.New("frames dir is empty")
	}
	if c.QuestionsDir != "" && strings.TrimSpace(c.MergedFile) == "" {
		return errors.New("merged file is required when a questions dir is set")
	}
	switch c.MediaBackend {
	case "", MediaFFmpeg:
	case MediaOpenCV:
		if openCV == nil {
			return errors.New("media backend opencv needs a build with -tags gocv")
		}
	default:
		return fmt.Errorf("unknown media backend %q", c.MediaBackend)
	}
	switch c.OCRBackend {
	case "", OCRTesseract, OCRNone:
		return nil
	case OCRVision:
		if c.VisionAPIKey == "" {
			return errors.New("GOOGLE_VISION_API_KEY is required for the vision backend")
		}
		return vision.ValidateBaseURL(c.VisionBaseURL, c.VisionAllowedHosts)
	default:
		return fmt.Errorf("unknown ocr backend %q", c.OCRBackend)
	}
}

type runtime struct {
	uc      usecase.Usecase
	metrics *metrics.Metrics
	ledger  *ledger.Ledger
	log     *zap.Logger
	cfg     Config
}

func open(cfg Config) (*runtime, error) {
	log := logger.OrNop(cfg.Log)
	rt := &runtime{metrics: metrics.New(), log: log, cfg: cfg}

	deps := usecase.Deps{
		Acquirer: ytdlp.New(cfg.YtDlpPath, webpage.New(&http.Client{Timeout: 20 * time.Second}), log),
		Media:    newMedia(cfg),
		OCR:      newRecognizer(cfg),
		Metrics:  rt.metrics,
		Log:      log,
	}
	if cfg.LedgerPath != "" {
		l, err := ledger.Open(cfg.LedgerPath)
		if err != nil {
			return nil, err
		}
		rt.ledger = l
		deps.Ledger = l
		log.Info("frame ledger enabled", zap.String("path", cfg.LedgerPath))
	}
	rt.uc = usecase.New(deps)
	return rt, nil
}

func (rt *runtime) close() {
	if rt.cfg.MetricsFile != "" {
		if err := rt.metrics.WriteTextfile(rt.cfg.MetricsFile); err != nil {
			rt.log.Warn("write metrics textfile", zap.String("path", rt.cfg.MetricsFile), zap.Error(err))
		}
	}
	if rt.ledger != nil {
		if err := rt.ledger.Close(); err != nil {
			rt.log.Warn("close ledger", zap.Error(err))
		}
	}
}

func newRecognizer(cfg Config) ports.Recognizer {
	switch cfg.OCRBackend {
	case OCRNone:
		return nil
	case OCRVision:
		return vision.New(cfg.VisionAPIKey, cfg.VisionBaseURL)
	default:
		return tesseract.New(cfg.TesseractPath, cfg.TesseractLang)
	}
}

// Run downloads url and pushes it through every stage. The report is written next to the frames.
func Run(ctx context.Context, cfg Config, url string) (types.Report, error) {
	if strings.TrimSpace(url) == "" {
		return types.Report{}, fmt.Errorf("%w: url is empty", usecase.ErrInvalidArgument)
	}
	if err := cfg.Validate(); err != nil {
		return types.Report{}, err
	}
	rt, err := open(cfg)
	if err != nil {
		return types.Report{}, err
	}
	defer rt.close()

	res, err := rt.uc.Run(ctx, usecase.Input{
		URL:          url,
		VideoName:    cfg.VideoName,
		DownloadsDir: cfg.DownloadsDir,
		FramesDir:    cfg.FramesDir,
		Interval:     cfg.Interval,
		Workers:      cfg.Workers,
		QuestionsDir: cfg.QuestionsDir,
		MergedFile:   cfg.MergedFile,
	})
	if err != nil {
		return res.Report, err
	}
	if err := writeReport(res.Report); err != nil {
		return res.Report, err
	}
	rt.log.Info("run finished",
		zap.Int("frames", res.Report.Frames),
		zap.Int("failed_frames", len(res.Report.FailedFrames)),
		zap.Int("questions", res.Report.Questions),
	)
	return res.Report, nil
}

// Frames samples a local video file.
func Frames(ctx context.Context, cfg Config, videoPath string) (usecase.SampleResult, error) {
	if err := cfg.Validate(); err != nil {
		return usecase.SampleResult{}, err
	}
	rt, err := open(cfg)
	if err != nil {
		return usecase.SampleResult{}, err
	}
	defer rt.close()

	s := rt.uc.Sampler()
	s.Workers = cfg.Workers
	start := time.Now()
	res, err := s.Sample(ctx, videoPath, cfg.FramesDir, cfg.Interval)
	rt.metrics.ObserveStage(usecase.StageSample, time.Since(start))
	return res, err
}

// OCR annotates every image in dir with the configured backend.
func OCR(ctx context.Context, cfg Config, dir string) (usecase.OCRSummary, error) {
	if cfg.OCRBackend == OCRNone {
		return usecase.OCRSummary{}, errors.New("ocr backend is none")
	}
	if err := cfg.Validate(); err != nil {
		return usecase.OCRSummary{}, err
	}
	rt, err := open(cfg)
	if err != nil {
		return usecase.OCRSummary{}, err
	}
	defer rt.close()

	start := time.Now()
	sum, err := rt.uc.TextExtractor().Extract(ctx, dir)
	rt.metrics.ObserveStage(usecase.StageOCR, time.Since(start))
	return sum, err
}

// Merge combines the question files in dir into out.
func Merge(cfg Config, dir, out string) (int, error) {
	if strings.TrimSpace(out) == "" {
		return 0, errors.New("merged file is empty")
	}
	rt := &runtime{metrics: metrics.New(), log: logger.OrNop(cfg.Log), cfg: cfg}
	rt.uc = usecase.New(usecase.Deps{Metrics: rt.metrics, Log: rt.log})
	defer rt.close()
	return rt.uc.Merge(dir, out)
}

// LedgerFrames lists what the ledger knows about a video folder name.
func LedgerFrames(ctx context.Context, cfg Config, video string) ([]types.FrameRecord, error) {
	if cfg.LedgerPath == "" {
		return nil, errors.New("HARVEST_LEDGER is not set")
	}
	l, err := ledger.Open(cfg.LedgerPath)
	if err != nil {
		return nil, err
	}
	defer l.Close()
	return l.Frames(ctx, video)
}

func writeReport(rep types.Report) error {
	if rep.FramesDir == "" {
		return nil
	}
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return fsx.WriteFileAtomic(rep.FramesDir, reportName, append(b, '\n'))
}

// ensure adapters implement ports
var _ ports.Acquirer = (*ytdlp.Adapter)(nil)
var _ ports.TitleResolver = (*ytdlp.Adapter)(nil)
var _ ports.TitleResolver = (*webpage.Resolver)(nil)
var _ ports.Recognizer = (*vision.Adapter)(nil)
var _ ports.Recognizer = (*tesseract.Adapter)(nil)
var _ ports.FrameLedger = (*ledger.Ledger)(nil)
