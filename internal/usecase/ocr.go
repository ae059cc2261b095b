package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/forPelevin/harvester/internal/infra/fsx"
	"github.com/forPelevin/harvester/internal/infra/metrics"
	"github.com/forPelevin/harvester/internal/logger"
	"github.com/forPelevin/harvester/internal/ports"
	"github.com/forPelevin/harvester/internal/types"
)

// ErrAnnotationConflict marks an image whose annotation file belongs to another image
// with the same base name.
var ErrAnnotationConflict = errors.New("annotation name conflict")

var imageExts = map[string]struct{}{".png": {}, ".jpg": {}, ".jpeg": {}}

// TextExtractor runs OCR over every image in a directory and writes <image>.json next to it.
type TextExtractor struct {
	OCR     ports.Recognizer
	Metrics *metrics.Metrics
	Log     *zap.Logger
}

type ImageError struct {
	Image string
	Err   error
}

func (e *ImageError) Error() string { return fmt.Sprintf("ocr %s: %v", e.Image, e.Err) }

func (e *ImageError) Unwrap() error { return e.Err }

type OCRSummary struct {
	Annotations []string
	Failures    []*ImageError
}

func (x TextExtractor) Extract(ctx context.Context, imageDir string) (OCRSummary, error) {
	log := logger.OrNop(x.Log).With(zap.String("dir", imageDir), zap.String("backend", x.OCR.Name()))

	images, err := listImages(imageDir)
	if err != nil {
		return OCRSummary{}, err
	}
	log.Info("running ocr", zap.Int("images", len(images)))

	var sum OCRSummary
	owners := make(map[string]string, len(images))
	for _, name := range images {
		if err := ctx.Err(); err != nil {
			return OCRSummary{}, err
		}
		outName := annotationName(name)
		if owner, taken := owners[outName]; taken {
			err := fmt.Errorf("%w: %s is already written for %s", ErrAnnotationConflict, outName, owner)
			log.Warn("ocr skipped", zap.String("image", name), zap.Error(err))
			x.Metrics.OCRImage(false)
			sum.Failures = append(sum.Failures, &ImageError{Image: name, Err: err})
			continue
		}
		owners[outName] = name

		out, err := x.annotate(ctx, imageDir, name, outName)
		if err != nil {
			if ctx.Err() != nil {
				return OCRSummary{}, ctx.Err()
			}
			log.Warn("ocr failed", zap.String("image", name), zap.Error(err))
			x.Metrics.OCRImage(false)
			sum.Failures = append(sum.Failures, &ImageError{Image: name, Err: err})
			continue
		}
		x.Metrics.OCRImage(true)
		sum.Annotations = append(sum.Annotations, out)
	}
	log.Info("ocr done", zap.Int("annotated", len(sum.Annotations)), zap.Int("failed", len(sum.Failures)))
	return sum, nil
}

func (x TextExtractor) annotate(ctx context.Context, dir, name, outName string) (string, error) {
	b, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}
	rec, err := x.OCR.Recognize(ctx, b)
	if err != nil {
		return "", err
	}
	lines := rec.Lines
	if lines == nil {
		lines = []string{}
	}
	jb, err := json.MarshalIndent(types.OCRResult{
		Image:   name,
		Backend: x.OCR.Name(),
		Text:    rec.Text,
		Lines:   lines,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal ocr result: %w", err)
	}
	if err := fsx.WriteFileAtomic(dir, outName, jb); err != nil {
		return "", err
	}
	return filepath.Join(dir, outName), nil
}

func annotationName(image string) string {
	return strings.TrimSuffix(image, filepath.Ext(image)) + ".json"
}

func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read image dir: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if _, ok := imageExts[strings.ToLower(filepath.Ext(e.Name()))]; ok {
			out = append(out, e.Name())
		}
	}
	return out, nil
}
