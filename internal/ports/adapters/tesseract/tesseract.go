package tesseract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/forPelevin/harvester/internal/types"
)

type Adapter struct {
	bin  string
	lang string
}

func New(binPath, lang string) *Adapter {
	if binPath == "" {
		binPath = "tesseract"
	}
	if lang == "" {
		lang = "eng"
	}
	return &Adapter{bin: binPath, lang: lang}
}

func (a *Adapter) Name() string { return "tesseract" }

func (a *Adapter) Recognize(ctx context.Context, img []byte) (types.Recognition, error) {
	if len(img) == 0 {
		return types.Recognition{}, errors.New("empty image")
	}
	f, err := os.CreateTemp("", "harvester-ocr-*")
	if err != nil {
		return types.Recognition{}, err
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(img); err != nil {
		f.Close()
		return types.Recognition{}, err
	}
	if err := f.Close(); err != nil {
		return types.Recognition{}, err
	}

	cmd := exec.CommandContext(ctx, a.bin, f.Name(), "stdout", "-l", a.lang)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	b, err := cmd.Output()
	if err != nil {
		return types.Recognition{}, fmt.Errorf("tesseract failed: %w\n%s", err, stderr.String())
	}

	text := strings.TrimSpace(strings.ReplaceAll(string(b), "\f", ""))
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return types.Recognition{Text: text, Lines: lines}, nil
}
