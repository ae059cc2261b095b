// Package ytdlp downloads videos by shelling out to yt-dlp.
package ytdlp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/forPelevin/harvester/internal/domain/naming"
	"github.com/forPelevin/harvester/internal/infra/fsx"
	"github.com/forPelevin/harvester/internal/logger"
	"github.com/forPelevin/harvester/internal/ports"
)

const (
	DefaultName = "downloaded_video"
	format      = "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"
)

type Adapter struct {
	bin    string
	titles ports.TitleResolver // optional fallback when yt-dlp cannot print a title
	log    *zap.Logger
}

func New(binPath string, titles ports.TitleResolver, log *zap.Logger) *Adapter {
	if binPath == "" {
		binPath = "yt-dlp"
	}
	return &Adapter{bin: binPath, titles: titles, log: logger.OrNop(log)}
}

// Acquire downloads url into outDir/<snake_case name>.mp4 and returns that path.
// An empty name is resolved from the video title.
func (a *Adapter) Acquire(ctx context.Context, url, outDir, name string) (string, error) {
	if strings.TrimSpace(url) == "" {
		return "", errors.New("empty video url")
	}
	if err := fsx.EnsureDir(outDir); err != nil {
		return "", err
	}
	if strings.TrimSpace(name) == "" {
		name = a.title(ctx, url)
	}
	file := naming.SnakeCase(name)
	if file == "" {
		file = DefaultName
	}
	out := filepath.Join(outDir, file+".mp4")

	cmd := exec.CommandContext(ctx, a.bin, downloadArgs(url, out)...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("yt-dlp download: %w\n%s", err, string(b))
	}
	if _, err := os.Stat(out); err != nil {
		return "", fmt.Errorf("yt-dlp reported success but %s is missing: %w", out, err)
	}
	a.log.Info("video downloaded", zap.String("url", url), zap.String("path", out))
	return out, nil
}

func (a *Adapter) ResolveTitle(ctx context.Context, url string) (string, error) {
	cmd := exec.CommandContext(ctx, a.bin, titleArgs(url)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	b, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("yt-dlp title: %w\n%s", err, stderr.String())
	}
	t := firstLine(string(b))
	if t == "" || t == "NA" {
		return "", errors.New("yt-dlp printed no title")
	}
	return t, nil
}

func (a *Adapter) title(ctx context.Context, url string) string {
	t, err := a.ResolveTitle(ctx, url)
	if err == nil {
		return t
	}
	a.log.Warn("yt-dlp title lookup failed", zap.String("url", url), zap.Error(err))
	if a.titles != nil {
		t, err = a.titles.ResolveTitle(ctx, url)
		if err == nil {
			return t
		}
		a.log.Warn("page title lookup failed", zap.String("url", url), zap.Error(err))
	}
	return DefaultName
}

func titleArgs(url string) []string {
	return []string{"--skip-download", "--no-warnings", "--no-playlist", "--print", "title", url}
}

func downloadArgs(url, out string) []string {
	return []string{
		"--no-playlist",
		"--no-progress",
		"-f", format,
		"--merge-output-format", "mp4",
		"-o", out,
		url,
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
