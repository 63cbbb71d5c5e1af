package classifier

import (
	"bytes"

	"github.com/ledongthuc/pdf"
)

// CountPDFPages returns the page count of a PDF, or 0 when the bytes cannot
// be read as a PDF.
func CountPDFPages(data []byte) (n int) {
	if len(data) == 0 {
		return 0
	}
	defer func() {
		// the reader panics on some truncated xref tables
		if r := recover(); r != nil {
			n = 0
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0
	}
	return r.NumPage()
}
