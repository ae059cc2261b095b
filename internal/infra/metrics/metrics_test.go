package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()
	m.FrameExtracted()
	m.FrameExtracted()
	m.FrameFailed()
	m.OCRImage(true)
	m.OCRImage(false)
	m.QuestionsMerged(42)
	m.ObserveStage("sample", 1500*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.framesExtracted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.frameFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ocrImages.WithLabelValues("failed")))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.questions))
	assert.Equal(t, 1, testutil.CollectAndCount(m.stageDuration))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.FrameExtracted()
	m.FrameFailed()
	m.OCRImage(true)
	m.QuestionsMerged(1)
	m.ObserveStage("merge", time.Second)
	assert.Nil(t, m.Registry())
	assert.NoError(t, m.WriteTextfile("ignored.prom"))
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := New()
	m.FrameExtracted()

	path := filepath.Join(t.TempDir(), "harvester.prom")
	require.NoError(t, m.WriteTextfile(path))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(b), "harvester_frames_extracted_total 1"))
}
