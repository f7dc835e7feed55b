package report

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerly/reportflow/internal/domain/models"
)

// Period identifies the reporting window. Month is zero for a whole year.
type Period struct {
	Year  int
	Month time.Month
}

// PeriodFor picks the window a report of type t covers when generated at now:
// the previous completed month, or the current year for annual summaries.
func PeriodFor(t models.ReportType, now time.Time) Period {
	if t == models.ReportTypeAnnualSummary {
		return Period{Year: now.Year()}
	}
	prev := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -1, 0)
	return Period{Year: prev.Year(), Month: prev.Month()}
}

func (p Period) IsAnnual() bool {
	return p.Month == 0
}

// Range returns the half-open [start, end) interval covered by the period.
func (p Period) Range(loc *time.Location) (time.Time, time.Time) {
	if p.IsAnnual() {
		start := time.Date(p.Year, time.January, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(1, 0, 0)
	}
	start := time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}

// Label is a sortable identifier such as 2025-03 or 2025.
func (p Period) Label() string {
	if p.IsAnnual() {
		return fmt.Sprintf("%04d", p.Year)
	}
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

func (p Period) String() string {
	if p.IsAnnual() {
		return fmt.Sprintf("%d", p.Year)
	}
	return fmt.Sprintf("%s %d", p.Month, p.Year)
}

type CategoryTotal struct {
	Category string
	Kind     string
	Amount   float64
	Count    int
	Share    float64 // percent of the kind's total
}

type TrendPoint struct {
	Label   string
	Income  float64
	Expense float64
}

func (p TrendPoint) Net() float64 {
	return p.Income - p.Expense
}

// ReportData is a fully computed report, ready for encoding.
type ReportData struct {
	Type         models.ReportType
	OwnerID      uuid.UUID
	OwnerName    string
	Period       Period
	Title        string
	TotalIncome  float64
	TotalExpense float64
	Transactions int
	Categories   []CategoryTotal
	Trend        []TrendPoint
	GeneratedAt  time.Time
}

func (d *ReportData) Net() float64 {
	return d.TotalIncome - d.TotalExpense
}

// Artifact is an encoded report payload.
type Artifact struct {
	FileName    string
	ContentType string
	Data        []byte
}

func (a *Artifact) Size() int64 {
	if a == nil {
		return 0
	}
	return int64(len(a.Data))
}

// Delivery is a report notification for one recipient.
type Delivery struct {
	To            string
	RecipientName string
	Subject       string
	Report        *ReportData
	Attachment    *Artifact
}
