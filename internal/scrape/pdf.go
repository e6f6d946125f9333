package scrape

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/barscout/barscout-cli/internal/pdftext"
)

// PDFFetcher downloads PDF menus and extracts their text.
type PDFFetcher struct {
	client    *http.Client
	extractor pdftext.Extractor
	maxBytes  int64
	timeout   time.Duration
	userAgent string
}

// PDFOption configures a PDFFetcher.
type PDFOption func(*PDFFetcher)

// WithPDFHTTPClient sets the HTTP client used for downloads.
func WithPDFHTTPClient(c *http.Client) PDFOption {
	return func(f *PDFFetcher) { f.client = c }
}

// WithPDFMaxBytes caps the download size. Larger documents are rejected.
func WithPDFMaxBytes(n int64) PDFOption {
	return func(f *PDFFetcher) { f.maxBytes = n }
}

// WithPDFTimeout bounds each download.
func WithPDFTimeout(d time.Duration) PDFOption {
	return func(f *PDFFetcher) { f.timeout = d }
}

// NewPDFFetcher creates a PDFFetcher backed by extractor.
func NewPDFFetcher(extractor pdftext.Extractor, userAgent string, opts ...PDFOption) *PDFFetcher {
	f := &PDFFetcher{
		client:    &http.Client{},
		extractor: extractor,
		maxBytes:  10 << 20,
		timeout:   30 * time.Second,
		userAgent: userAgent,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// FetchText downloads the PDF at url and returns its text.
func (f *PDFFetcher) FetchText(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", eris.Wrap(err, "pdf: create request")
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "application/pdf")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", eris.Wrapf(err, "pdf: fetch %s", url)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return "", eris.Errorf("pdf: %s returned status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return "", eris.Wrapf(err, "pdf: read %s", url)
	}
	if int64(len(data)) > f.maxBytes {
		return "", eris.Errorf("pdf: %s exceeds %d bytes", url, f.maxBytes)
	}

	text, err := f.extractor.ExtractText(ctx, data)
	if err != nil {
		return "", eris.Wrapf(err, "pdf: extract %s", url)
	}
	return text, nil
}
