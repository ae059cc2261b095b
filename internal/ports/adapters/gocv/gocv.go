//go:build gocv

// Package gocv opens videos through OpenCV. Build with -tags gocv.
package gocv

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"sync"

	"gocv.io/x/gocv"

	"github.com/forPelevin/harvester/internal/ports"
)

type Adapter struct{}

func New() *Adapter { return &Adapter{} }

func (a *Adapter) Open(ctx context.Context, path string) (ports.MediaHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("opencv open: %w", err)
	}
	if !vc.IsOpened() {
		_ = vc.Close()
		return nil, errors.New("opencv could not open the video")
	}
	fps := vc.Get(gocv.VideoCaptureFPS)
	count := vc.Get(gocv.VideoCaptureFrameCount)
	if math.IsNaN(count) || count < 0 {
		count = 0
	}
	return &handle{
		vc:   vc,
		info: ports.MediaInfo{FrameRate: fps, FrameCount: int64(count)},
	}, nil
}

// handle serializes access; a VideoCapture has a single read position.
type handle struct {
	mu     sync.Mutex
	vc     *gocv.VideoCapture
	info   ports.MediaInfo
	closed bool
}

func (h *handle) Info() ports.MediaInfo { return h.info }

func (h *handle) ReadFrame(ctx context.Context, index int64) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, errors.New("read on closed handle")
	}

	h.vc.Set(gocv.VideoCapturePosFrames, float64(index))
	mat := gocv.NewMat()
	defer mat.Close()
	if ok := h.vc.Read(&mat); !ok || mat.Empty() {
		return nil, fmt.Errorf("opencv read frame %d failed", index)
	}
	img, err := mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert frame %d: %w", index, err)
	}
	return img, nil
}

func (h *handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	return h.vc.Close()
}
