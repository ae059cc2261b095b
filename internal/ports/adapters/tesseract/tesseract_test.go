package tesseract

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stub prints its arguments' language and a fixed page, ending with a form feed like tesseract does.
func stub(t *testing.T, exit int) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stub")
	}
	p := filepath.Join(t.TempDir(), "tesseract")
	script := "#!/bin/sh\n" +
		"[ \"$2\" = stdout ] || exit 2\n" +
		"[ -s \"$1\" ] || exit 3\n" +
		"printf 'lang=%s\\n\\n  What is 2+2?  \\n4\\n\\f' \"$4\"\n" +
		"exit " + string(rune('0'+exit)) + "\n"
	require.NoError(t, os.WriteFile(p, []byte(script), 0o755))
	return p
}

func TestRecognize(t *testing.T) {
	a := New(stub(t, 0), "deu")
	rec, err := a.Recognize(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, []string{"lang=deu", "What is 2+2?", "4"}, rec.Lines)
	assert.NotContains(t, rec.Text, "\f")
	assert.Equal(t, "tesseract", a.Name())
}

func TestRecognize_Failure(t *testing.T) {
	_, err := New(stub(t, 1), "").Recognize(context.Background(), []byte("img"))
	assert.Error(t, err)

	_, err = New(stub(t, 0), "").Recognize(context.Background(), nil)
	assert.Error(t, err)
}
