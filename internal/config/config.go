// Package config reads harvester settings from the environment.
package config

import (
	"github.com/caarlos0/env/v11"
)

type Config struct {
	DownloadsDir string `env:"HARVEST_DOWNLOADS_DIR" envDefault:"downloads"`
	FramesDir    string `env:"HARVEST_FRAMES_DIR"    envDefault:"frames"`
	Interval     int    `env:"HARVEST_INTERVAL"      envDefault:"10"`
	Workers      int    `env:"HARVEST_WORKERS"       envDefault:"1"`
	QuestionsDir string `env:"HARVEST_QUESTIONS_DIR" envDefault:"questions/verified"`
	MergedFile   string `env:"HARVEST_MERGED_FILE"   envDefault:"questions/full_questions.json"`
	LedgerPath   string `env:"HARVEST_LEDGER"`
	MetricsFile  string `env:"HARVEST_METRICS_FILE"`
	LogLevel     string `env:"HARVEST_LOG_LEVEL"     envDefault:"info"`
	LogFormat    string `env:"HARVEST_LOG_FORMAT"    envDefault:"json"`

	MediaBackend string `env:"MEDIA_BACKEND" envDefault:"ffmpeg"`
	FFmpegPath   string `env:"FFMPEG_PATH"   envDefault:"ffmpeg"`
	FFprobePath  string `env:"FFPROBE_PATH"  envDefault:"ffprobe"`
	YtDlpPath    string `env:"YTDLP_PATH"    envDefault:"yt-dlp"`

	OCRBackend         string   `env:"OCR_BACKEND"                 envDefault:"tesseract"`
	TesseractPath      string   `env:"TESSERACT_PATH"              envDefault:"tesseract"`
	TesseractLang      string   `env:"TESSERACT_LANG"              envDefault:"eng"`
	VisionAPIKey       string   `env:"GOOGLE_VISION_API_KEY"`
	VisionBaseURL      string   `env:"GOOGLE_VISION_BASE_URL"      envDefault:"https://vision.googleapis.com"`
	VisionAllowedHosts []string `env:"GOOGLE_VISION_ALLOWED_HOSTS" envSeparator:","`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
