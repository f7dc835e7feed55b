package dto

// Report schedules
type TimingRequest struct {
	Hour       *int `json:"hour,omitempty" validate:"omitempty,min=0,max=23"`
	Minute     *int `json:"minute,omitempty" validate:"omitempty,min=0,max=59"`
	DayOfWeek  *int `json:"day_of_week,omitempty" validate:"omitempty,min=1,max=7"`
	DayOfMonth *int `json:"day_of_month,omitempty" validate:"omitempty,min=1,max=31"`
}

type CreateReportScheduleRequest struct {
	ReportType     string         `json:"report_type" validate:"required,uppercase_enum,oneof=PERIOD_SUMMARY ANNUAL_SUMMARY CATEGORY_DETAIL"`
	Frequency      string         `json:"frequency" validate:"required,uppercase_enum,oneof=DAILY WEEKLY MONTHLY QUARTERLY YEARLY"`
	Format         string         `json:"format" validate:"required,uppercase_enum,oneof=DOCUMENT SPREADSHEET BOTH"`
	DeliverByEmail *bool          `json:"deliver_by_email,omitempty"`
	Timing         *TimingRequest `json:"timing,omitempty"`
	Timezone       string         `json:"timezone,omitempty" validate:"omitempty,timezone"`
}

type UpdateReportScheduleRequest struct {
	ReportType     *string        `json:"report_type,omitempty" validate:"omitempty,uppercase_enum,oneof=PERIOD_SUMMARY ANNUAL_SUMMARY CATEGORY_DETAIL"`
	Frequency      *string        `json:"frequency,omitempty" validate:"omitempty,uppercase_enum,oneof=DAILY WEEKLY MONTHLY QUARTERLY YEARLY"`
	Format         *string        `json:"format,omitempty" validate:"omitempty,uppercase_enum,oneof=DOCUMENT SPREADSHEET BOTH"`
	DeliverByEmail *bool          `json:"deliver_by_email,omitempty"`
	Timing         *TimingRequest `json:"timing,omitempty"`
	Timezone       *string        `json:"timezone,omitempty" validate:"omitempty,timezone"`
}
