package pdftext

import (
	"bytes"
	"context"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rotisserie/eris"
)

// Native extracts text in-process with ledongthuc/pdf.
type Native struct{}

// NewNative creates a Native extractor.
func NewNative() *Native { return &Native{} }

// ExtractText concatenates the plain text of every non-empty page, one page
// per line.
func (n *Native) ExtractText(ctx context.Context, data []byte) (text string, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("pdftext: malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", eris.Wrap(err, "pdftext: open pdf")
	}

	var pages []string
	numPages := r.NumPage()
	for i := 0; i < numPages; i++ {
		if err := ctx.Err(); err != nil {
			return "", eris.Wrap(err, "pdftext: extract")
		}
		page := r.Page(i + 1)
		if page.V.IsNull() {
			continue
		}
		t, err := page.GetPlainText(nil)
		if err != nil {
			return "", eris.Wrapf(err, "pdftext: extract page %d", i+1)
		}
		if t = strings.TrimSpace(t); t != "" {
			pages = append(pages, t)
		}
	}
	return strings.Join(pages, "\n"), nil
}
