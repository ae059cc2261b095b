package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"math"
	"os/exec"
	"strconv"
	"strings"

	ffmpeggo "github.com/u2takey/ffmpeg-go"

	"github.com/forPelevin/harvester/internal/ports"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

// Open probes the first video stream. Frames are decoded lazily, one ffmpeg call per ReadFrame.
func (a *Adapter) Open(ctx context.Context, path string) (ports.MediaHandle, error) {
	info, err := a.Probe(ctx, path)
	if err != nil {
		return nil, err
	}
	return &handle{a: a, path: path, info: info}, nil
}

func (a *Adapter) Probe(ctx context.Context, path string) (ports.MediaInfo, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-select_streams", "v:0",
		"-count_packets",
		"-show_entries", "stream=r_frame_rate,avg_frame_rate,nb_frames,nb_read_packets,duration:format=duration",
		"-of", "json",
		path,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	b, err := cmd.Output()
	if err != nil {
		return ports.MediaInfo{}, fmt.Errorf("ffprobe: %w\n%s", err, stderr.String())
	}
	return parseProbe(b)
}

type probeOutput struct {
	Streams []struct {
		RFrameRate    string `json:"r_frame_rate"`
		AvgFrameRate  string `json:"avg_frame_rate"`
		NbFrames      string `json:"nb_frames"`
		NbReadPackets string `json:"nb_read_packets"`
		Duration      string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func parseProbe(b []byte) (ports.MediaInfo, error) {
	var p probeOutput
	if err := json.Unmarshal(b, &p); err != nil {
		return ports.MediaInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(p.Streams) == 0 {
		return ports.MediaInfo{}, errors.New("no video stream")
	}
	st := p.Streams[0]

	fps, err := parseRate(st.AvgFrameRate)
	if err != nil || fps <= 0 {
		fps, err = parseRate(st.RFrameRate)
	}
	if err != nil {
		return ports.MediaInfo{}, err
	}
	if fps <= 0 {
		return ports.MediaInfo{}, fmt.Errorf("frame rate %q is not positive", st.RFrameRate)
	}

	for _, s := range []string{st.NbFrames, st.NbReadPackets} {
		if n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil && n >= 0 {
			return ports.MediaInfo{FrameRate: fps, FrameCount: n}, nil
		}
	}
	for _, s := range []string{st.Duration, p.Format.Duration} {
		if sec, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil && sec >= 0 {
			return ports.MediaInfo{FrameRate: fps, FrameCount: int64(math.Round(sec * fps))}, nil
		}
	}
	return ports.MediaInfo{}, errors.New("ffprobe reported neither frame count nor duration")
}

// parseRate accepts "30000/1001" or a plain decimal.
func parseRate(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty frame rate")
	}
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		return strconv.ParseFloat(s, 64)
	}
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("parse frame rate %q: %w", s, err)
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil {
		return 0, fmt.Errorf("parse frame rate %q: %w", s, err)
	}
	if d == 0 {
		return 0, nil
	}
	return n / d, nil
}

type handle struct {
	a    *Adapter
	path string
	info ports.MediaInfo
}

func (h *handle) Info() ports.MediaInfo { return h.info }

func (h *handle) ReadFrame(ctx context.Context, index int64) (image.Image, error) {
	if index < 0 || (h.info.FrameCount > 0 && index >= h.info.FrameCount) {
		return nil, fmt.Errorf("frame index %d out of range [0,%d)", index, h.info.FrameCount)
	}
	args := grabArgs(h.path, float64(index)/h.info.FrameRate)

	cmd := exec.CommandContext(ctx, h.a.ffmpeg, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg grab frame: %w\n%s", err, stderr.String())
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no frame at index %d", index)
	}
	img, err := png.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("decode frame %d: %w", index, err)
	}
	return img, nil
}

func (h *handle) Close() error { return nil }

// grabArgs seeks before -i so ffmpeg decodes forward from the nearest keyframe to sec.
// Global options go first: ffmpeg ignores trailing options after the last output.
func grabArgs(path string, sec float64) []string {
	args := ffmpeggo.
		Input(path, ffmpeggo.KwArgs{"ss": strconv.FormatFloat(sec, 'f', 6, 64)}).
		Output("pipe:", ffmpeggo.KwArgs{
			"frames:v": 1,
			"f":        "image2",
			"c:v":      "png",
		}).
		GetArgs()
	return append([]string{"-nostdin", "-loglevel", "error"}, args...)
}
