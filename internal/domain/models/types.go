package models

// ReportType selects what the renderer computes for a schedule.
type ReportType string

const (
	ReportTypePeriodSummary  ReportType = "PERIOD_SUMMARY"
	ReportTypeAnnualSummary  ReportType = "ANNUAL_SUMMARY"
	ReportTypeCategoryDetail ReportType = "CATEGORY_DETAIL"
)

func (t ReportType) Valid() bool {
	switch t {
	case ReportTypePeriodSummary, ReportTypeAnnualSummary, ReportTypeCategoryDetail:
		return true
	}
	return false
}

// Frequency is the natural recurrence unit of a schedule.
type Frequency string

const (
	FrequencyDaily     Frequency = "DAILY"
	FrequencyWeekly    Frequency = "WEEKLY"
	FrequencyMonthly   Frequency = "MONTHLY"
	FrequencyQuarterly Frequency = "QUARTERLY"
	FrequencyYearly    Frequency = "YEARLY"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
		return true
	}
	return false
}

// Format is the artifact format requested for a schedule.
type Format string

const (
	FormatDocument    Format = "DOCUMENT"
	FormatSpreadsheet Format = "SPREADSHEET"
	FormatBoth        Format = "BOTH"
)

func (f Format) Valid() bool {
	switch f {
	case FormatDocument, FormatSpreadsheet, FormatBoth:
		return true
	}
	return false
}

// Run trigger constants
const (
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
)

// Run status constants
const (
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
	RunStatusSkipped   = "skipped"
)

// User status constants
const (
	UserStatusActive    = "active"
	UserStatusSuspended = "suspended"
)

// Transaction kind constants
const (
	TransactionIncome  = "income"
	TransactionExpense = "expense"
)
