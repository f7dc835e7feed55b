package report

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerly/reportflow/internal/domain/models"
	"github.com/ledgerly/reportflow/internal/pkg/database"
)

func TestPeriodFor(t *testing.T) {
	now := time.Date(2025, time.January, 1, 8, 0, 0, 0, time.UTC)

	assert.Equal(t, Period{Year: 2024, Month: time.December}, PeriodFor(models.ReportTypePeriodSummary, now))
	assert.Equal(t, Period{Year: 2024, Month: time.December}, PeriodFor(models.ReportTypeCategoryDetail, now))
	assert.Equal(t, Period{Year: 2025}, PeriodFor(models.ReportTypeAnnualSummary, now))

	mid := time.Date(2025, time.March, 31, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, Period{Year: 2025, Month: time.February}, PeriodFor(models.ReportTypePeriodSummary, mid))
}

func TestPeriodLabelAndRange(t *testing.T) {
	p := Period{Year: 2024, Month: time.February}
	assert.Equal(t, "2024-02", p.Label())
	assert.Equal(t, "February 2024", p.String())

	start, end := p.Range(time.UTC)
	assert.Equal(t, time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), end)

	year := Period{Year: 2024}
	assert.True(t, year.IsAnnual())
	assert.Equal(t, "2024", year.Label())
	start, end = year.Range(time.UTC)
	assert.Equal(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), end)
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), start)
}

func TestLedgerRenderer(t *testing.T) {
	db := database.NewTestDB(t)
	ctx := context.Background()

	owner := uuid.New()
	other := uuid.New()
	march := func(day int) time.Time { return time.Date(2025, time.March, day, 12, 0, 0, 0, time.UTC) }

	txs := []models.Transaction{
		{UserID: owner, Category: "Salary", Kind: models.TransactionIncome, Amount: 3000, OccurredAt: march(1)},
		{UserID: owner, Category: "Rent", Kind: models.TransactionExpense, Amount: 1200, OccurredAt: march(2)},
		{UserID: owner, Category: "Food", Kind: models.TransactionExpense, Amount: 300, OccurredAt: march(2)},
		{UserID: owner, Category: "Food", Kind: models.TransactionExpense, Amount: 300, OccurredAt: march(20)},
		{UserID: owner, Category: "Rent", Kind: models.TransactionExpense, Amount: 1200, OccurredAt: time.Date(2025, time.April, 2, 0, 0, 0, 0, time.UTC)},
		{UserID: other, Category: "Salary", Kind: models.TransactionIncome, Amount: 9999, OccurredAt: march(1)},
	}
	require.NoError(t, db.Create(&txs).Error)

	r := NewLedgerRenderer(db)
	data, err := r.Render(ctx, owner, models.ReportTypePeriodSummary, Period{Year: 2025, Month: time.March}, nil)
	require.NoError(t, err)

	assert.Equal(t, "Period Summary March 2025", data.Title)
	assert.Equal(t, 4, data.Transactions)
	assert.InDelta(t, 3000, data.TotalIncome, 0.001)
	assert.InDelta(t, 1800, data.TotalExpense, 0.001)
	assert.InDelta(t, 1200, data.Net(), 0.001)

	require.Len(t, data.Categories, 3)
	assert.Equal(t, "Rent", data.Categories[0].Category)
	assert.InDelta(t, 66.67, data.Categories[0].Share, 0.01)
	assert.Equal(t, "Food", data.Categories[1].Category)
	assert.Equal(t, 2, data.Categories[1].Count)
	assert.Equal(t, "Salary", data.Categories[2].Category)

	require.Len(t, data.Trend, 31)
	assert.InDelta(t, 1500, data.Trend[1].Expense, 0.001)

	annual, err := r.Render(ctx, owner, models.ReportTypeAnnualSummary, Period{Year: 2025}, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, annual.Transactions)
	require.Len(t, annual.Trend, 12)
	assert.InDelta(t, 1200, annual.Trend[3].Expense, 0.001)

	detail, err := r.Render(ctx, owner, models.ReportTypeCategoryDetail, Period{Year: 2025, Month: time.March}, nil)
	require.NoError(t, err)
	assert.Empty(t, detail.Trend)
	assert.Len(t, detail.Categories, 3)

	_, err = r.Render(ctx, owner, "UNKNOWN", Period{Year: 2025}, nil)
	assert.Error(t, err)
}

func TestLedgerRenderer_UsesScheduleTimezone(t *testing.T) {
	db := database.NewTestDB(t)
	ctx := context.Background()
	owner := uuid.New()
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 2025-03-01 03:00 UTC is still February 28 in New York
	txs := []models.Transaction{
		{UserID: owner, Category: "Food", Kind: models.TransactionExpense, Amount: 50, OccurredAt: time.Date(2025, time.March, 1, 3, 0, 0, 0, time.UTC)},
		{UserID: owner, Category: "Rent", Kind: models.TransactionExpense, Amount: 900, OccurredAt: time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)},
	}
	require.NoError(t, db.Create(&txs).Error)

	r := NewLedgerRenderer(db)

	feb, err := r.Render(ctx, owner, models.ReportTypePeriodSummary, Period{Year: 2025, Month: time.February}, ny)
	require.NoError(t, err)
	assert.Equal(t, 1, feb.Transactions)
	assert.InDelta(t, 50, feb.TotalExpense, 0.001)
	require.Len(t, feb.Trend, 28)
	assert.InDelta(t, 50, feb.Trend[27].Expense, 0.001)

	mar, err := r.Render(ctx, owner, models.ReportTypePeriodSummary, Period{Year: 2025, Month: time.March}, ny)
	require.NoError(t, err)
	assert.Equal(t, 1, mar.Transactions)
	assert.InDelta(t, 900, mar.TotalExpense, 0.001)

	utc, err := r.Render(ctx, owner, models.ReportTypePeriodSummary, Period{Year: 2025, Month: time.March}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, utc.Transactions)
}
