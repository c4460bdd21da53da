package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
)

// HTTPDownloader fetches archives over HTTP, retrying transient failures.
type HTTPDownloader struct {
	Client    *http.Client
	UserAgent string
	Attempts  uint64
	// InitialInterval is the first retry delay.
	InitialInterval time.Duration
	Logger          log.FieldLogger
}

// NewHTTPDownloader returns a downloader with three attempts per file.
func NewHTTPDownloader(logger log.FieldLogger) *HTTPDownloader {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &HTTPDownloader{
		Client:          http.DefaultClient,
		UserAgent:       "getcmake/1.0",
		Attempts:        3,
		InitialInterval: 500 * time.Millisecond,
		Logger:          logger,
	}
}

// Download saves url under dir with a generated name and returns its path. The
// name carries no archive suffix.
func (d *HTTPDownloader) Download(ctx context.Context, url, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("prepare download destination: %w", err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = d.InitialInterval
	retries := uint64(0)
	if d.Attempts > 1 {
		retries = d.Attempts - 1
	}

	var saved string
	attempt := 0
	op := func() error {
		attempt++
		path, err := d.fetch(ctx, url, dir)
		if err != nil {
			d.Logger.WithField("attempt", attempt).Debugf("download %s: %v", url, err)
			return err
		}
		saved = path
		return nil
	}
	b := backoff.WithContext(backoff.WithMaxRetries(policy, retries), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return "", err
	}
	return saved, nil
}

func (d *HTTPDownloader) fetch(ctx context.Context, url, dir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("User-Agent", d.UserAgent)

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("download %s: unexpected status %s", url, resp.Status)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return "", backoff.Permanent(err)
		}
		return "", err
	}

	tmpFile, err := os.CreateTemp(dir, "download-*")
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("create temp file: %w", err))
	}
	tmpPath := tmpFile.Name()

	if _, err := io.Copy(tmpFile, resp.Body); err != nil {
		tmpFile.Close()
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return tmpPath, nil
}
