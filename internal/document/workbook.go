package document

import (
	"fmt"

	"irrigation-backend/internal/models"

	"github.com/xuri/excelize/v2"
)

var boqHeaders = []string{"Item", "Section", "Description", "Qty", "Unit", "Rate", "Amount"}

// BOQWorkbook renders the bill of quantities as an xlsx workbook.
func BOQWorkbook(q *models.Quote, products []models.Product, company Company) ([]byte, string, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "BOQ"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, "", fmt.Errorf("rename sheet: %w", err)
	}

	w := &sheetWriter{f: f, sheet: sheet}
	titleStyle := w.newStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	headerStyle := w.newStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DCFCE7"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	boldStyle := w.newStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})

	w.set("A1", company.Name)
	w.style("A1", "A1", titleStyle)
	w.set("A2", fmt.Sprintf("Bill of Quantities %s", q.QuoteNumber))
	w.set("A3", fmt.Sprintf("%s, %s %s, %s", q.ProjectType, formatQuantity(q.AreaSize), areaUnit(q.AreaUnit), q.Location))
	w.set("A4", fmt.Sprintf("Customer: %s", q.CustomerName))

	headerRow := 6
	for i, h := range boqHeaders {
		cell := w.cell(i+1, headerRow)
		w.set(cell, h)
		w.style(cell, cell, headerStyle)
	}

	r := headerRow
	names, grouped := groupItems(q, products)
	for _, name := range names {
		for _, it := range grouped[name] {
			r++
			w.set(fmt.Sprintf("A%d", r), r-headerRow)
			w.set(fmt.Sprintf("B%d", r), name)
			w.set(fmt.Sprintf("C%d", r), it.Description)
			w.set(fmt.Sprintf("D%d", r), it.Quantity)
			w.set(fmt.Sprintf("E%d", r), it.Unit)
			w.set(fmt.Sprintf("F%d", r), it.UnitPrice)
			w.set(fmt.Sprintf("G%d", r), round2(it.LineTotal()))
		}
	}

	totals := ComputeTotals(q.Subtotal)
	summary := []struct {
		label string
		value *float64
	}{
		{"Subtotal", totals.Subtotal},
		{fmt.Sprintf("VAT (%.0f%%)", VATRate*100), totals.VAT},
		{"Total", totals.Total},
	}
	r++
	for _, s := range summary {
		r++
		w.set(fmt.Sprintf("F%d", r), s.label)
		if s.value == nil {
			w.set(fmt.Sprintf("G%d", r), Placeholder)
		} else {
			w.set(fmt.Sprintf("G%d", r), *s.value)
		}
		w.style(fmt.Sprintf("F%d", r), fmt.Sprintf("G%d", r), boldStyle)
	}

	colWidths := []float64{6, 18, 40, 8, 8, 14, 16}
	for i, width := range colWidths {
		w.width(i+1, width)
	}
	if w.err != nil {
		return nil, "", w.err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), fmt.Sprintf("BOQ_%s.xlsx", q.QuoteNumber), nil
}

// sheetWriter keeps the first excelize error so the layout code stays flat.
// Every call after a failure is a no-op.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	err   error
}

func (w *sheetWriter) newStyle(style *excelize.Style) int {
	if w.err != nil {
		return 0
	}
	id, err := w.f.NewStyle(style)
	if err != nil {
		w.err = fmt.Errorf("create style: %w", err)
	}
	return id
}

func (w *sheetWriter) cell(col, row int) string {
	if w.err != nil {
		return ""
	}
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		w.err = fmt.Errorf("cell name: %w", err)
	}
	return name
}

func (w *sheetWriter) set(cell string, value interface{}) {
	if w.err != nil {
		return
	}
	if err := w.f.SetCellValue(w.sheet, cell, value); err != nil {
		w.err = fmt.Errorf("set %s: %w", cell, err)
	}
}

func (w *sheetWriter) style(from, to string, id int) {
	if w.err != nil {
		return
	}
	if err := w.f.SetCellStyle(w.sheet, from, to, id); err != nil {
		w.err = fmt.Errorf("style %s:%s: %w", from, to, err)
	}
}

func (w *sheetWriter) width(col int, width float64) {
	if w.err != nil {
		return
	}
	name, err := excelize.ColumnNumberToName(col)
	if err == nil {
		err = w.f.SetColWidth(w.sheet, name, name, width)
	}
	if err != nil {
		w.err = fmt.Errorf("column width: %w", err)
	}
}
