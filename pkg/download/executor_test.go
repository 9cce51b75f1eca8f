package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/cperrin88/grabvid/pkg/errors"
	"github.com/cperrin88/grabvid/pkg/model"
)

func TestNewExecutor(t *testing.T) {
	tests := []struct {
		name       string
		timeout    time.Duration
		userAgent  string
		expectedUA string
	}{
		{
			name:       "default user agent",
			timeout:    time.Second,
			expectedUA: DefaultUserAgent,
		},
		{
			name:       "custom user agent",
			timeout:    0,
			userAgent:  "test-agent/1.0",
			expectedUA: "test-agent/1.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExecutor(tt.timeout, tt.userAgent)
			require.NotNil(t, e)
			assert.Equal(t, tt.timeout, e.client.Timeout)
			assert.Equal(t, tt.expectedUA, e.userAgent)
		})
	}
}

func request(dir, mediaURL string) model.DownloadRequest {
	return model.DownloadRequest{
		URL:       "https://example.com/watch?v=abc",
		VariantID: "22",
		Dir:       dir,
		Title:     "My: Video?",
		Variant:   &model.VariantDescriptor{ID: "22", Container: "mp4", URL: mediaURL},
	}
}

func TestDownload(t *testing.T) {
	tests := []struct {
		name           string
		handler        http.HandlerFunc
		expectError    bool
		expectErrorMsg string
	}{
		{
			name: "successful download",
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
				_, _ = w.Write([]byte("test content"))
			},
		},
		{
			name: "not found",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			expectError:    true,
			expectErrorMsg: "unexpected status code: 404",
		},
		{
			name: "forbidden",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusForbidden)
			},
			expectError:    true,
			expectErrorMsg: "unexpected status code: 403",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			dir := t.TempDir()
			path, err := NewExecutor(5*time.Second, "").Download(context.Background(), request(dir, server.URL+"/media.mp4"))

			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectErrorMsg)
				assert.ErrorIs(t, err, pkgerrors.ErrDownloadFailed)
				entries, _ := os.ReadDir(dir)
				assert.Empty(t, entries, "no partial files left behind")
				return
			}

			require.NoError(t, err)
			assert.Equal(t, filepath.Join(dir, "My_ Video_.mp4"), path)
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, "test content", string(data))

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Len(t, entries, 1, "temp file must be renamed, not copied")
		})
	}
}

func TestDownload_RequiresDirectURL(t *testing.T) {
	e := NewExecutor(0, "")
	req := request(t.TempDir(), "")
	_, err := e.Download(context.Background(), req)
	assert.ErrorIs(t, err, pkgerrors.ErrNoDirectURL)

	req.Variant = nil
	_, err = e.Download(context.Background(), req)
	assert.ErrorIs(t, err, pkgerrors.ErrNoDirectURL)
}

func TestDownload_RequiresAbsoluteDir(t *testing.T) {
	_, err := NewExecutor(0, "").Download(context.Background(), request("relative", "http://127.0.0.1/x"))
	assert.ErrorIs(t, err, pkgerrors.ErrDownloadFailed)
}

func TestDownload_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	dir := t.TempDir()
	_, err := NewExecutor(0, "").Download(ctx, request(dir, server.URL))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTargetName(t *testing.T) {
	req := model.DownloadRequest{VariantID: "18", Variant: &model.VariantDescriptor{}}
	assert.Equal(t, "18.bin", targetName(req))

	req.Title = "a/b"
	req.Variant.Container = ".WEBM"
	assert.Equal(t, "a_b.webm", targetName(req))
}
