package pipeline

import (
	"github.com/forPelevin/harvester/internal/ports"
	"github.com/forPelevin/harvester/internal/ports/adapters/ffmpeg"
)

// openCV is set when the binary is built with -tags gocv.
var openCV func() ports.MediaOpener

func newMedia(cfg Config) ports.MediaOpener {
	if cfg.MediaBackend == MediaOpenCV && openCV != nil {
		return openCV()
	}
	return ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath)
}

var _ ports.MediaOpener = (*ffmpeg.Adapter)(nil)
