package downloader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dskvich/signvideo/pkg/domain"
)

func newTestDownloader(retryMax int) *downloader {
	d := New(retryMax)
	d.hc.RetryWaitMin = time.Millisecond
	d.hc.RetryWaitMax = time.Millisecond
	return d
}

func TestDownloadWritesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("video-bytes"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "input.mp4")
	if err := newTestDownloader(0).Download(context.Background(), srv.URL+"/clip.mp4", dest); err != nil {
		t.Fatalf("Download: %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "video-bytes" {
		t.Errorf("body = %q", got)
	}
}

func TestDownloadRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "input.mp4")
	if err := newTestDownloader(3).Download(context.Background(), srv.URL, dest); err != nil {
		t.Fatalf("Download: %v", err)
	}
	if hits.Load() != 3 {
		t.Errorf("hits = %d, want 3", hits.Load())
	}
}

func TestDownloadFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing":
			http.NotFound(w, r)
		case "/empty":
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	tests := []struct {
		name string
		url  string
	}{
		{"not found", srv.URL + "/missing"},
		{"empty body", srv.URL + "/empty"},
		{"bad scheme", "ftp://example.com/video.mp4"},
		{"no host", "http:///video.mp4"},
		{"garbage", "::not a url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dest := filepath.Join(t.TempDir(), "input.mp4")

			err := newTestDownloader(0).Download(context.Background(), tt.url, dest)
			if !errors.Is(err, domain.ErrDownloadFailed) {
				t.Fatalf("Download() error = %v, want ErrDownloadFailed", err)
			}
			if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
				t.Errorf("partial file left at %s", dest)
			}
		})
	}
}
