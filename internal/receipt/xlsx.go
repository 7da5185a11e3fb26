package receipt

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "Receipt"

var xlsxHeaders = []string{"Name", "Quantity", "Unit", "Unit Price", "Line Total", "Category", "Checked"}

// ExportXLSX renders a record as a single-sheet workbook: store and date on top,
// one row per item, and the receipt total last.
func ExportXLSX(d ReceiptData) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}

	set := func(col, row int, v any) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		return f.SetCellValue(xlsxSheet, cell, v)
	}

	if err := set(1, 1, d.Store); err != nil {
		return nil, fmt.Errorf("writing store: %w", err)
	}
	if err := set(2, 1, d.Date); err != nil {
		return nil, fmt.Errorf("writing date: %w", err)
	}

	for i, h := range xlsxHeaders {
		if err := set(i+1, 3, h); err != nil {
			return nil, fmt.Errorf("writing header: %w", err)
		}
	}

	row := 4
	for _, it := range d.Items {
		values := []any{
			it.Name,
			it.Quantity,
			it.Unit,
			it.Price,
			ItemsTotal([]ReceiptItem{it}),
			it.Category,
			it.Checked,
		}
		for col, v := range values {
			if err := set(col+1, row, v); err != nil {
				return nil, fmt.Errorf("writing item row %d: %w", row, err)
			}
		}
		row++
	}

	if err := set(1, row, "Total"); err != nil {
		return nil, fmt.Errorf("writing total: %w", err)
	}
	if err := set(5, row, d.Total); err != nil {
		return nil, fmt.Errorf("writing total: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}
