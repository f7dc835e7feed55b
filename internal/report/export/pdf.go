package export

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/ledgerly/reportflow/internal/report"
)

type PDFEncoder struct{}

func NewPDFEncoder() *PDFEncoder {
	return &PDFEncoder{}
}

func (e *PDFEncoder) Encode(ctx context.Context, data *report.ReportData) (*report.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(data.Title, true)
	pdf.SetCreator("reportflow", true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, data.Title, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	if data.OwnerName != "" {
		pdf.CellFormat(0, 6, "Prepared for "+data.OwnerName, "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, 6, "Generated "+data.GeneratedAt.Format("2006-01-02 15:04 MST"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	writeSummary(pdf, data)

	if len(data.Categories) > 0 {
		pdf.Ln(4)
		writeHeading(pdf, "Categories")
		writeTable(pdf,
			[]string{"Category", "Type", "Count", "Amount", "Share"},
			[]float64{60, 30, 20, 40, 30},
			categoryRows(data.Categories),
		)
	}

	if len(data.Trend) > 0 {
		pdf.Ln(4)
		writeHeading(pdf, "Trend")
		writeTable(pdf,
			[]string{"Period", "Income", "Expense", "Net"},
			[]float64{45, 45, 45, 45},
			trendRows(data.Trend),
		)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}

	return &report.Artifact{
		FileName:    BaseName(data) + ".pdf",
		ContentType: ContentTypePDF,
		Data:        buf.Bytes(),
	}, nil
}

func writeHeading(pdf *gofpdf.Fpdf, text string) {
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, text, "", 1, "L", false, 0, "")
}

func writeSummary(pdf *gofpdf.Fpdf, data *report.ReportData) {
	writeHeading(pdf, "Summary")
	pdf.SetFont("Helvetica", "", 11)
	rows := [][2]string{
		{"Income", money(data.TotalIncome)},
		{"Expenses", money(data.TotalExpense)},
		{"Net", money(data.Net())},
		{"Transactions", fmt.Sprintf("%d", data.Transactions)},
	}
	for _, row := range rows {
		pdf.CellFormat(50, 7, row[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(50, 7, row[1], "", 1, "R", false, 0, "")
	}
}

func writeTable(pdf *gofpdf.Fpdf, header []string, widths []float64, rows [][]string) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range header {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, row := range rows {
		for i, cell := range row {
			align := "R"
			if i == 0 {
				align = "L"
			}
			pdf.CellFormat(widths[i], 6, cell, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
}

func categoryRows(categories []report.CategoryTotal) [][]string {
	rows := make([][]string, 0, len(categories))
	for _, c := range categories {
		rows = append(rows, []string{
			c.Category,
			c.Kind,
			fmt.Sprintf("%d", c.Count),
			money(c.Amount),
			fmt.Sprintf("%.1f%%", c.Share),
		})
	}
	return rows
}

func trendRows(points []report.TrendPoint) [][]string {
	rows := make([][]string, 0, len(points))
	for _, p := range points {
		rows = append(rows, []string{p.Label, money(p.Income), money(p.Expense), money(p.Net())})
	}
	return rows
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
