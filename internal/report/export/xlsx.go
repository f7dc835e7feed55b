package export

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/ledgerly/reportflow/internal/report"
)

const (
	summarySheet    = "Summary"
	categoriesSheet = "Categories"
	trendSheet      = "Trend"
)

type XLSXEncoder struct{}

func NewXLSXEncoder() *XLSXEncoder {
	return &XLSXEncoder{}
}

func (e *XLSXEncoder) Encode(ctx context.Context, data *report.ReportData) (*report.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6E6E6"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}

	summary := [][]interface{}{
		{"Report", data.Title},
		{"Period", data.Period.Label()},
		{"Generated", data.GeneratedAt.Format("2006-01-02 15:04:05")},
		{"Income", data.TotalIncome},
		{"Expenses", data.TotalExpense},
		{"Net", data.Net()},
		{"Transactions", data.Transactions},
	}
	if err := writeRows(f, summarySheet, summary); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(summarySheet, "A", "B", 24); err != nil {
		return nil, err
	}

	if len(data.Categories) > 0 {
		rows := [][]interface{}{{"Category", "Type", "Count", "Amount", "Share %"}}
		for _, c := range data.Categories {
			rows = append(rows, []interface{}{c.Category, c.Kind, c.Count, c.Amount, c.Share})
		}
		if err := addSheet(f, categoriesSheet, rows, headerStyle); err != nil {
			return nil, err
		}
	}

	if len(data.Trend) > 0 {
		rows := [][]interface{}{{"Period", "Income", "Expense", "Net"}}
		for _, p := range data.Trend {
			rows = append(rows, []interface{}{p.Label, p.Income, p.Expense, p.Net()})
		}
		if err := addSheet(f, trendSheet, rows, headerStyle); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write spreadsheet: %w", err)
	}

	return &report.Artifact{
		FileName:    BaseName(data) + ".xlsx",
		ContentType: ContentTypeXLSX,
		Data:        buf.Bytes(),
	}, nil
}

func addSheet(f *excelize.File, name string, rows [][]interface{}, headerStyle int) error {
	if _, err := f.NewSheet(name); err != nil {
		return err
	}
	if err := writeRows(f, name, rows); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(name, "A1", last, headerStyle); err != nil {
		return err
	}
	return f.SetColWidth(name, "A", "E", 16)
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
