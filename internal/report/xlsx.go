package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"inspection_log/internal/errs"
	"inspection_log/internal/model"
)

// XLSXContentType is the MIME type of the workbook written by WriteFormsXLSX
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const formsSheet = "Forms"

var formColumns = []string{
	"Document No.", "Status", "Inspection Date", "Product", "Size No.", "Shift",
	"Variant", "Line No.", "Customer", "Sample Size", "Lacquers", "QA Exe.",
	"Operator", "Submitted By", "Submitted At", "Reviewed By", "Reviewed At", "Comments",
}

// WriteFormsXLSX writes one row per form to a single-sheet workbook
func WriteFormsXLSX(forms []model.InspectionForm, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", formsSheet); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrRender, err)
	}

	for i, title := range formColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(formsSheet, cell, title)
	}
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"E6E6E6"}, Pattern: 1},
	})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(formColumns), 1)
		f.SetCellStyle(formsSheet, "A1", last, style)
	}

	for i, form := range forms {
		row := i + 2
		values := []interface{}{
			form.DocumentNo,
			string(form.Status),
			formatDate(form.InspectionDate),
			form.Product,
			form.SizeNo,
			form.Shift,
			form.Variant,
			form.LineNo,
			form.Customer,
			form.SampleSize,
			lacquerSummary(form.Lacquers),
			form.QAExecutive,
			form.ProductionOperator,
			form.SubmittedBy,
			formatTime(form.SubmittedAt),
			form.ReviewedBy,
			formatTime(form.ReviewedAt),
			form.Comments,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(formsSheet, cell, v)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrRender, err)
	}
	return nil
}

func lacquerSummary(lacquers []model.Lacquer) string {
	parts := make([]string, 0, len(lacquers))
	for _, l := range lacquers {
		if strings.TrimSpace(l.Name) == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %s %s", l.Name, l.Weight, LacquerUnit(l.Name)))
	}
	return strings.Join(parts, "; ")
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(datetimeLayout)
}
