package ports

import (
	"context"
	"image"

	"github.com/forPelevin/harvester/internal/types"
)

// MediaInfo is what a media backend reports about an opened video stream.
type MediaInfo struct {
	FrameRate  float64
	FrameCount int64
}

// Duration in seconds. Zero when the frame rate is unusable.
func (m MediaInfo) Duration() float64 {
	if m.FrameRate <= 0 {
		return 0
	}
	return float64(m.FrameCount) / m.FrameRate
}

// MediaHandle is an open video source. Callers must Close it.
type MediaHandle interface {
	Info() MediaInfo
	ReadFrame(ctx context.Context, index int64) (image.Image, error)
	Close() error
}

type MediaOpener interface {
	Open(ctx context.Context, path string) (MediaHandle, error)
}

type Acquirer interface {
	Acquire(ctx context.Context, url, outDir, name string) (string, error)
}

type TitleResolver interface {
	ResolveTitle(ctx context.Context, url string) (string, error)
}

type Recognizer interface {
	Name() string
	Recognize(ctx context.Context, img []byte) (types.Recognition, error)
}

type FrameLedger interface {
	Record(ctx context.Context, r types.FrameRecord) error
}
