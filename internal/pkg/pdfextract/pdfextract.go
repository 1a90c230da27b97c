package pdfextract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

var ErrEmptyInput = errors.New("pdf input is empty")

// Extractor adapts ExtractBytes to the knowledge upload flow.
type Extractor struct{}

func (Extractor) Extract(data []byte) (string, error) {
	return ExtractBytes(data)
}

// ExtractText reads the entire content of r and extracts plain text from the PDF.
func ExtractText(r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read pdf failed: %w", err)
	}
	return ExtractBytes(b)
}

// ExtractBytes returns an empty string and nil error for a valid PDF without
// extractable text. The parser panics on some malformed files; that is
// reported as an error.
func ExtractBytes(b []byte) (text string, err error) {
	if len(b) == 0 {
		return "", ErrEmptyInput
	}
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	readerAt := bytes.NewReader(b)
	pdfReader, err := pdf.NewReader(readerAt, int64(len(b)))
	if err != nil {
		return "", fmt.Errorf("open pdf failed: %w", err)
	}
	plainReader, err := pdfReader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf text failed: %w", err)
	}
	out, err := io.ReadAll(plainReader)
	if err != nil {
		return "", fmt.Errorf("read pdf text failed: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}
