package scrape

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const maxHTMLBytes = 4 << 20

// HTTPBrowser fetches raw HTML over net/http. It runs no JavaScript and cannot
// take screenshots, so it suits static sites and machines without Chrome.
type HTTPBrowser struct {
	client    *http.Client
	userAgent string
}

// NewHTTPBrowser creates an HTTPBrowser with sensible transport timeouts.
func NewHTTPBrowser(userAgent string) *HTTPBrowser {
	if userAgent == "" {
		userAgent = "Mozilla/5.0 (compatible; BarScout/1.0)"
	}
	return &HTTPBrowser{
		client: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		userAgent: userAgent,
	}
}

func (b *HTTPBrowser) Open(_ context.Context) (Session, error) {
	return &httpSession{browser: b}, nil
}

type httpSession struct {
	browser *HTTPBrowser
}

func (s *httpSession) Navigate(ctx context.Context, targetURL string, timeout time.Duration) (*Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "http browser: create request")
	}
	req.Header.Set("User-Agent", s.browser.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.browser.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "http browser: fetch %s", targetURL)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxHTMLBytes))
	if err != nil {
		return nil, eris.Wrapf(err, "http browser: read %s", targetURL)
	}
	if resp.StatusCode >= 400 {
		return nil, eris.Errorf("http browser: %s returned status %d", targetURL, resp.StatusCode)
	}

	return &Snapshot{URL: resp.Request.URL.String(), HTML: string(body)}, nil
}

func (s *httpSession) Screenshot(_ context.Context) ([]byte, error) {
	return nil, ErrScreenshotUnsupported
}

func (s *httpSession) Close() error { return nil }
