//go:build integration

package itest

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// synthClip renders a test pattern clip with ffmpeg's lavfi source.
func synthClip(t *testing.T, dir string, seconds float64, fps string) string {
	t.Helper()
	out := filepath.Join(dir, "Lecture Clip (v2).mp4")
	src := fmt.Sprintf("testsrc=size=320x240:rate=%s:duration=%s", fps, strconv.FormatFloat(seconds, 'f', -1, 64))
	cmd := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi",
		"-i", src,
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		out,
	)
	if b, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("ffmpeg fixture failed: %v\n%s", err, string(b))
	}
	return out
}

func ffprobeFrameCount(path string) (int64, error) {
	cmd := exec.Command("ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-count_packets",
		"-show_entries", "stream=nb_read_packets",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w\n%s", err, string(b))
	}
	s := strings.TrimSpace(string(b))
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse frame count %q: %w", s, err)
	}
	return n, nil
}
