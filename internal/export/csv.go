package export

import (
	"encoding/csv"
	"io"

	"invoiceflow/internal/domain"
)

// BOM is written first so spreadsheet tools detect UTF-8.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV writes the fields table, a blank line, then the line-item table.
func WriteCSV(w io.Writer, doc *domain.StructuredDocument) error {
	if _, err := w.Write(BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(fieldColumns); err != nil {
		return err
	}
	if err := cw.WriteAll(fieldRows(doc)); err != nil {
		return err
	}
	if len(doc.LineItems) > 0 {
		if err := cw.Write([]string{}); err != nil {
			return err
		}
		if err := cw.Write(lineItemColumns); err != nil {
			return err
		}
		if err := cw.WriteAll(lineItemRows(doc)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
