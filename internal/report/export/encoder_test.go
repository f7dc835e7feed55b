package export

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ledgerly/reportflow/internal/domain/models"
	"github.com/ledgerly/reportflow/internal/report"
)

func sampleData() *report.ReportData {
	return &report.ReportData{
		Type:         models.ReportTypePeriodSummary,
		OwnerID:      uuid.New(),
		OwnerName:    "Ada Lovelace",
		Period:       report.Period{Year: 2025, Month: time.March},
		Title:        "Period Summary March 2025",
		TotalIncome:  4200,
		TotalExpense: 1800.5,
		Transactions: 3,
		Categories: []report.CategoryTotal{
			{Category: "Rent", Kind: models.TransactionExpense, Amount: 1500, Count: 1, Share: 83.3},
			{Category: "Food", Kind: models.TransactionExpense, Amount: 300.5, Count: 1, Share: 16.7},
			{Category: "Salary", Kind: models.TransactionIncome, Amount: 4200, Count: 1, Share: 100},
		},
		Trend: []report.TrendPoint{
			{Label: "2025-03-01", Income: 4200},
			{Label: "2025-03-02", Expense: 1800.5},
		},
		GeneratedAt: time.Date(2025, time.April, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestBaseName(t *testing.T) {
	data := sampleData()
	assert.Equal(t, "period-summary-2025-03", BaseName(data))

	data.Type = models.ReportTypeAnnualSummary
	data.Period = report.Period{Year: 2025}
	assert.Equal(t, "annual-summary-2025", BaseName(data))
}

func TestPDFEncoder(t *testing.T) {
	artifact, err := NewPDFEncoder().Encode(context.Background(), sampleData())
	require.NoError(t, err)

	assert.Equal(t, "period-summary-2025-03.pdf", artifact.FileName)
	assert.Equal(t, ContentTypePDF, artifact.ContentType)
	assert.True(t, bytes.HasPrefix(artifact.Data, []byte("%PDF-")))
}

func TestXLSXEncoder(t *testing.T) {
	artifact, err := NewXLSXEncoder().Encode(context.Background(), sampleData())
	require.NoError(t, err)
	assert.Equal(t, "period-summary-2025-03.xlsx", artifact.FileName)

	f, err := excelize.OpenReader(bytes.NewReader(artifact.Data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{summarySheet, categoriesSheet, trendSheet}, f.GetSheetList())

	title, err := f.GetCellValue(summarySheet, "B1")
	require.NoError(t, err)
	assert.Equal(t, "Period Summary March 2025", title)

	category, err := f.GetCellValue(categoriesSheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, "Rent", category)

	rows, err := f.GetRows(trendSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestFormatEncoder_Both(t *testing.T) {
	artifact, err := NewDefaultEncoder().Encode(context.Background(), sampleData(), models.FormatBoth)
	require.NoError(t, err)
	assert.Equal(t, "period-summary-2025-03.zip", artifact.FileName)
	assert.Equal(t, ContentTypeZIP, artifact.ContentType)

	zr, err := zip.NewReader(bytes.NewReader(artifact.Data), int64(len(artifact.Data)))
	require.NoError(t, err)

	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"period-summary-2025-03.pdf", "period-summary-2025-03.xlsx"}, names)
}

type failingEncoder struct{ err error }

func (e failingEncoder) Encode(context.Context, *report.ReportData) (*report.Artifact, error) {
	return nil, e.err
}

func TestFormatEncoder_Dispatch(t *testing.T) {
	boom := errors.New("boom")
	enc := NewFormatEncoder(NewPDFEncoder(), failingEncoder{err: boom})

	doc, err := enc.Encode(context.Background(), sampleData(), models.FormatDocument)
	require.NoError(t, err)
	assert.Equal(t, ContentTypePDF, doc.ContentType)

	_, err = enc.Encode(context.Background(), sampleData(), models.FormatSpreadsheet)
	assert.ErrorIs(t, err, boom)

	_, err = enc.Encode(context.Background(), sampleData(), models.FormatBoth)
	assert.ErrorIs(t, err, boom)

	_, err = enc.Encode(context.Background(), sampleData(), "HTML")
	assert.Error(t, err)
}

func TestEncodeHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPDFEncoder().Encode(ctx, sampleData())
	assert.ErrorIs(t, err, context.Canceled)

	_, err = NewXLSXEncoder().Encode(ctx, sampleData())
	assert.ErrorIs(t, err, context.Canceled)
}
