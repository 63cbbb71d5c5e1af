package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"invoiceflow/internal/domain"
)

// Sheet names in the XLSX workbook.
const (
	SheetFields    = "Fields"
	SheetLineItems = "Line Items"
)

// WriteXLSX writes a workbook with a Fields sheet and a Line Items sheet.
func WriteXLSX(w io.Writer, doc *domain.StructuredDocument) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetFields); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetLineItems); err != nil {
		return fmt.Errorf("creating sheet: %w", err)
	}

	if err := writeSheet(f, SheetFields, fieldColumns, fieldRows(doc)); err != nil {
		return err
	}
	if err := writeSheet(f, SheetLineItems, lineItemColumns, lineItemRows(doc)); err != nil {
		return err
	}
	_ = f.SetColWidth(SheetFields, "A", "B", 28)
	_ = f.SetColWidth(SheetLineItems, "B", "B", 40)

	return f.Write(w)
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]string) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("writing %s header: %w", sheet, err)
	}
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
