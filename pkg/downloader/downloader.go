package downloader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/dskvich/signvideo/pkg/domain"
)

const downloadFilePerm = 0o644

type downloader struct {
	hc *retryablehttp.Client
}

// New returns a downloader that retries connection errors and 5xx responses
// up to retryMax times.
func New(retryMax int) *downloader {
	hc := retryablehttp.NewClient()
	hc.RetryMax = retryMax
	hc.RetryWaitMin = 500 * time.Millisecond
	hc.RetryWaitMax = 5 * time.Second
	hc.Logger = slog.Default()

	return &downloader{hc: hc}
}

// Download saves the body of rawURL to destPath. Anything short of a complete,
// non-empty 2xx body is an error and leaves no file behind.
func (d *downloader) Download(ctx context.Context, rawURL, destPath string) (err error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: unsupported url %q", domain.ErrDownloadFailed, rawURL)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("%w: creating request: %w", domain.ErrDownloadFailed, err)
	}

	resp, err := d.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrDownloadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: unexpected status code %d", domain.ErrDownloadFailed, resp.StatusCode)
	}

	out, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, downloadFilePerm)
	if err != nil {
		return fmt.Errorf("%w: creating file: %w", domain.ErrDownloadFailed, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: closing file: %w", domain.ErrDownloadFailed, cerr)
		}
		if err != nil {
			os.Remove(destPath)
		}
	}()

	n, err := io.Copy(out, resp.Body)
	if err != nil {
		return fmt.Errorf("%w: writing body: %w", domain.ErrDownloadFailed, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: empty body", domain.ErrDownloadFailed)
	}
	if resp.ContentLength > 0 && n != resp.ContentLength {
		return fmt.Errorf("%w: got %d of %d bytes", domain.ErrDownloadFailed, n, resp.ContentLength)
	}

	slog.InfoContext(ctx, "Download successful", "url", u.Redacted(), "bytes", n, "path", destPath)

	return nil
}
