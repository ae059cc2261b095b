package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "AIza-test-secret"

func newServer(t *testing.T, status int, body string) (*httptest.Server, *annotateRequest) {
	t.Helper()
	var got annotateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/images:annotate", r.URL.Path)
		assert.Equal(t, testKey, r.URL.Query().Get("key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestRecognize(t *testing.T) {
	srv, req := newServer(t, http.StatusOK, `{"responses":[{"textAnnotations":[
		{"description":"Question 1\n  Which organelle?\n\nA) Nucleus\n"},
		{"description":"Question"}
	]}]}`)

	rec, err := New(testKey, srv.URL).Recognize(context.Background(), []byte("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "Question 1\n  Which organelle?\n\nA) Nucleus", rec.Text)
	assert.Equal(t, []string{"Question 1", "Which organelle?", "A) Nucleus"}, rec.Lines)

	require.Len(t, req.Requests, 1)
	assert.Equal(t, "TEXT_DETECTION", req.Requests[0].Features[0].Type)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("png-bytes")), req.Requests[0].Image.Content)
}

func TestRecognize_FullTextPreferred(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, `{"responses":[{"fullTextAnnotation":{"text":"full"},"textAnnotations":[{"description":"partial"}]}]}`)
	rec, err := New(testKey, srv.URL).Recognize(context.Background(), []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "full", rec.Text)
}

func TestRecognize_NoText(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, `{"responses":[{}]}`)
	rec, err := New(testKey, srv.URL).Recognize(context.Background(), []byte("x"))
	require.NoError(t, err)
	assert.Empty(t, rec.Text)
	assert.Empty(t, rec.Lines)
}

func TestRecognize_Errors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"http status", http.StatusForbidden, `{"error":{"message":"bad key=` + testKey + `"}}`, "vision status 403"},
		{"per image error", http.StatusOK, `{"responses":[{"error":{"code":3,"message":"Bad image data."}}]}`, "Bad image data."},
		{"top level error", http.StatusOK, `{"error":{"code":8,"message":"quota"}}`, "quota"},
		{"empty responses", http.StatusOK, `{"responses":[]}`, "no responses"},
		{"garbage", http.StatusOK, `<html>`, "decode"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := newServer(t, tc.status, tc.body)
			_, err := New(testKey, srv.URL).Recognize(context.Background(), []byte("x"))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
			assert.NotContains(t, err.Error(), testKey)
		})
	}
}

func TestRecognize_RejectsBeforeRequest(t *testing.T) {
	_, err := New(testKey, "").Recognize(context.Background(), nil)
	assert.Error(t, err)
	_, err = New("", "").Recognize(context.Background(), []byte("x"))
	assert.Error(t, err)
}

func TestRedactSecrets(t *testing.T) {
	in := `Post "https://vision.googleapis.com/v1/images:annotate?key=` + testKey + `": dial tcp; api_key=other`
	got := redactSecrets(in, testKey)
	assert.NotContains(t, got, testKey)
	assert.True(t, strings.Contains(got, "key=[REDACTED]"))
	assert.Contains(t, got, "api_key=[REDACTED]")
}
