package pdftext

import (
	"bytes"
	"context"
	"os"
	"os/exec"

	"github.com/rotisserie/eris"
)

// PdfToText extracts text from PDFs using the pdftotext CLI tool.
type PdfToText struct {
	binPath string
}

// NewPdfToText creates a PdfToText extractor. If binPath is empty, "pdftotext" is used.
func NewPdfToText(binPath string) *PdfToText {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &PdfToText{binPath: binPath}
}

// ExtractText spools data to a temp file, runs pdftotext -layout on it and
// returns stdout.
func (p *PdfToText) ExtractText(ctx context.Context, data []byte) (string, error) {
	f, err := os.CreateTemp("", "barscout-*.pdf")
	if err != nil {
		return "", eris.Wrap(err, "pdftext: create temp file")
	}
	defer func() { _ = os.Remove(f.Name()) }()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return "", eris.Wrap(err, "pdftext: write temp file")
	}
	if err := f.Close(); err != nil {
		return "", eris.Wrap(err, "pdftext: close temp file")
	}

	cmd := exec.CommandContext(ctx, p.binPath, "-layout", f.Name(), "-")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", eris.Wrapf(err, "pdftext: pdftotext failed: %s", stderr.String())
	}

	return stdout.String(), nil
}
