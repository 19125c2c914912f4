package fetch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/agentic-research/docforge/internal/address"
)

// NewHTTPClient builds the client used for template downloads: connect
// timeout on the dialer, overall timeout on the client.
func NewHTTPClient(connectTimeout, readTimeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: readTimeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   connectTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
		},
	}
}

// HTTPDownloader fetches http@/https@ addresses, whose payload is the full
// URL, with a plain GET.
type HTTPDownloader struct {
	scheme string
	client *http.Client
}

// NewHTTPDownloader returns a downloader for the given scheme tag ("http"
// or "https") sharing the given client.
func NewHTTPDownloader(scheme string, client *http.Client) *HTTPDownloader {
	return &HTTPDownloader{scheme: scheme, client: client}
}

// Scheme implements Downloader.
func (d *HTTPDownloader) Scheme() string { return d.scheme }

// Fetch implements Downloader.
func (d *HTTPDownloader) Fetch(ctx context.Context, addr address.Address, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr.Payload, nil)
	if err != nil {
		return fmt.Errorf("fetch %s: %w: %w", addr, ErrDownload, err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w: %w", addr, ErrDownload, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("fetch %s: %w: status %s", addr, ErrDownload, resp.Status)
	}

	if err := writeAtomic(dst, resp.Body); err != nil {
		return fmt.Errorf("fetch %s: %w: %w", addr, ErrDownload, err)
	}
	return nil
}
