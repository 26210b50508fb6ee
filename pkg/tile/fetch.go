package tile

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// DefaultUserAgent is sent with remote image requests
const DefaultUserAgent = "stereogram/1.0.0"

// MaxFetchBytes bounds the size of a remote image
const MaxFetchBytes = 64 << 20

// Loader reads image bytes from local files or http(s) URLs
type Loader struct {
	client    *http.Client
	userAgent string
}

// NewLoader creates a loader; timeout bounds each remote request
func NewLoader(userAgent string, timeout time.Duration) *Loader {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Loader{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// IsRemote reports whether src names an http(s) URL
func IsRemote(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

// Load returns the contents of src, downloading it when it is a URL
func (l *Loader) Load(ctx context.Context, src string) ([]byte, error) {
	if IsRemote(src) {
		return l.Download(ctx, src)
	}
	return os.ReadFile(src)
}

// Download fetches url and returns the body of a 200 response
func (l *Loader) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", l.userAgent)

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxFetchBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxFetchBytes {
		return nil, fmt.Errorf("%s: image larger than %d bytes", url, MaxFetchBytes)
	}
	return data, nil
}
