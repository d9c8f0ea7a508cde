package bookstack

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	domainerrors "github.com/faithconnect/bookstack-sync/internal/errors"
)

const (
	// maxCoverSize limits download size to prevent memory exhaustion.
	maxCoverSize = 10 * 1024 * 1024 // 10MB

	// downloadTimeout is the maximum time for a cover download.
	downloadTimeout = 30 * time.Second
)

// Downloader fetches cover image binaries by URL.
// Covers served by the source instance itself get the source token attached,
// since BookStack may protect uploaded images behind authentication.
type Downloader struct {
	httpClient *http.Client
	creds      Credentials
	logger     *slog.Logger
}

// NewDownloader creates a downloader that authenticates same-origin requests with creds.
func NewDownloader(creds Credentials, logger *slog.Logger) *Downloader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Downloader{
		httpClient: &http.Client{
			Timeout: downloadTimeout,
		},
		creds:  creds,
		logger: logger,
	}
}

// Fetch downloads the binary at url. Any failure is a DOWNLOAD error, except
// caller cancellation which is reported as CANCELED.
func (d *Downloader) Fetch(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, domainerrors.Download("empty cover URL", nil)
	}

	downloadCtx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(downloadCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, domainerrors.Download("create request", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if d.creds.SameOrigin(url) {
		req.Header.Set("Authorization", d.creds.AuthorizationHeader())
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, domainerrors.Wrap(err, domainerrors.CodeCanceled, "download cover")
		}
		return nil, domainerrors.Download("download cover", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domainerrors.Download(fmt.Sprintf("download failed: status %d", resp.StatusCode), nil)
	}

	// Read one byte past the limit to detect oversized covers.
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCoverSize+1))
	if err != nil {
		return nil, domainerrors.Download("read cover", err)
	}
	if len(data) > maxCoverSize {
		return nil, domainerrors.Download(fmt.Sprintf("cover exceeds %d bytes", maxCoverSize), nil)
	}
	if len(data) == 0 {
		return nil, domainerrors.Download("empty cover body", nil)
	}

	d.logger.Debug("downloaded cover",
		"url", url,
		"size", len(data),
		"content_type", resp.Header.Get("Content-Type"),
	)

	return data, nil
}
