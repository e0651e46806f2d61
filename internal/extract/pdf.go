package extract

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// PDF extracts plain text from PDF filings. It treats the PDF format as a
// black box: file path in, concatenated page text out.
type PDF struct{}

// NewPDF returns a PDF text extractor.
func NewPDF() PDF { return PDF{} }

// Extract reads the file at path and returns its plain text. A corrupt or
// unreadable file yields an error wrapping the path so callers can isolate
// the failure to that document.
func (PDF) Extract(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract text from %s: %w", path, err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("read text of %s: %w", path, err)
	}
	return buf.String(), nil
}
