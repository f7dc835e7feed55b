package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ledgerly/reportflow/internal/domain/models"
)

type Renderer interface {
	// Render aggregates the period as seen from loc; nil means UTC.
	Render(ctx context.Context, ownerID uuid.UUID, t models.ReportType, period Period, loc *time.Location) (*ReportData, error)
}

// LedgerRenderer aggregates an owner's transactions into report data.
type LedgerRenderer struct {
	db  *gorm.DB
	now func() time.Time
}

func NewLedgerRenderer(db *gorm.DB) *LedgerRenderer {
	return &LedgerRenderer{db: db, now: time.Now}
}

func (r *LedgerRenderer) Render(ctx context.Context, ownerID uuid.UUID, t models.ReportType, period Period, loc *time.Location) (*ReportData, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("unknown report type %q", t)
	}
	if loc == nil {
		loc = time.UTC
	}

	start, end := period.Range(loc)

	var txs []models.Transaction
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND occurred_at >= ? AND occurred_at < ?", ownerID, start.UTC(), end.UTC()).
		Order("occurred_at ASC").
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	data := &ReportData{
		Type:         t,
		OwnerID:      ownerID,
		Period:       period,
		Title:        title(t, period),
		Transactions: len(txs),
		GeneratedAt:  r.now().UTC(),
	}

	for _, tx := range txs {
		switch tx.Kind {
		case models.TransactionIncome:
			data.TotalIncome += tx.Amount
		case models.TransactionExpense:
			data.TotalExpense += tx.Amount
		}
	}

	data.Categories = categoryTotals(txs, data.TotalIncome, data.TotalExpense)
	if t == models.ReportTypePeriodSummary || t == models.ReportTypeAnnualSummary {
		data.Trend = trend(txs, period, loc)
	}
	if t == models.ReportTypePeriodSummary {
		data.Categories = topCategories(data.Categories, 10)
	}

	return data, nil
}

func title(t models.ReportType, p Period) string {
	switch t {
	case models.ReportTypeAnnualSummary:
		return fmt.Sprintf("Annual Summary %s", p)
	case models.ReportTypeCategoryDetail:
		return fmt.Sprintf("Category Detail %s", p)
	default:
		return fmt.Sprintf("Period Summary %s", p)
	}
}

func categoryTotals(txs []models.Transaction, income, expense float64) []CategoryTotal {
	type key struct{ category, kind string }
	totals := make(map[key]*CategoryTotal)

	for _, tx := range txs {
		k := key{tx.Category, tx.Kind}
		ct, ok := totals[k]
		if !ok {
			ct = &CategoryTotal{Category: tx.Category, Kind: tx.Kind}
			totals[k] = ct
		}
		ct.Amount += tx.Amount
		ct.Count++
	}

	result := make([]CategoryTotal, 0, len(totals))
	for _, ct := range totals {
		base := expense
		if ct.Kind == models.TransactionIncome {
			base = income
		}
		if base > 0 {
			ct.Share = ct.Amount / base * 100
		}
		result = append(result, *ct)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Kind != result[j].Kind {
			return result[i].Kind == models.TransactionExpense
		}
		if result[i].Amount != result[j].Amount {
			return result[i].Amount > result[j].Amount
		}
		return result[i].Category < result[j].Category
	})
	return result
}

func topCategories(categories []CategoryTotal, n int) []CategoryTotal {
	var out []CategoryTotal
	perKind := make(map[string]int)
	for _, c := range categories {
		if perKind[c.Kind] >= n {
			continue
		}
		perKind[c.Kind]++
		out = append(out, c)
	}
	return out
}

// trend buckets by day for a month and by month for a year.
func trend(txs []models.Transaction, p Period, loc *time.Location) []TrendPoint {
	start, end := p.Range(loc)

	var points []TrendPoint
	index := make(map[string]int)
	for cur := start; cur.Before(end); {
		var label string
		if p.IsAnnual() {
			label = cur.Format("2006-01")
			cur = cur.AddDate(0, 1, 0)
		} else {
			label = cur.Format("2006-01-02")
			cur = cur.AddDate(0, 0, 1)
		}
		index[label] = len(points)
		points = append(points, TrendPoint{Label: label})
	}

	for _, tx := range txs {
		at := tx.OccurredAt.In(loc)
		label := at.Format("2006-01-02")
		if p.IsAnnual() {
			label = at.Format("2006-01")
		}
		i, ok := index[label]
		if !ok {
			continue
		}
		switch tx.Kind {
		case models.TransactionIncome:
			points[i].Income += tx.Amount
		case models.TransactionExpense:
			points[i].Expense += tx.Amount
		}
	}
	return points
}
