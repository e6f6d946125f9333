// Package pdftext turns PDF menus into plain text.
package pdftext

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/barscout/barscout-cli/internal/config"
)

// Extractor extracts text content from PDF bytes.
type Extractor interface {
	ExtractText(ctx context.Context, data []byte) (string, error)
}

// NewExtractor creates an Extractor based on config.
func NewExtractor(cfg config.ExtractConfig) (Extractor, error) {
	switch cfg.PDFEngine {
	case "native", "":
		return NewNative(), nil
	case "pdftotext":
		return NewPdfToText(cfg.PdfToTextPath), nil
	default:
		return nil, eris.Errorf("pdftext: unknown engine %q", cfg.PDFEngine)
	}
}
