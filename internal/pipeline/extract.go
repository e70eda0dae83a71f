package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// PdftotextExtractor extracts plain text from PDF bytes using Poppler's
// pdftotext, streamed over stdin/stdout so no temp files are written.
type PdftotextExtractor struct{}

// NewPdftotextExtractor creates a new Poppler-based text extractor
func NewPdftotextExtractor() *PdftotextExtractor {
	return &PdftotextExtractor{}
}

// Extract runs pdftotext over the document bytes and returns the text.
func (e *PdftotextExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return "", fmt.Errorf("pdftotext not found in PATH: %w (install poppler-utils)", err)
	}

	// -q: no warnings on stderr noise
	// -enc UTF-8: force predictable output encoding
	// "- -": read the PDF from stdin, write text to stdout
	cmd := exec.CommandContext(ctx, "pdftotext", "-q", "-enc", "UTF-8", "-", "-")
	cmd.Stdin = bytes.NewReader(data)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("pdftotext failed: %w\nOutput: %s", err, stderr.String())
	}

	return stdout.String(), nil
}
