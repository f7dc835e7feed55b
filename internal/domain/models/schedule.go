package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReportSchedule struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID             uuid.UUID  `gorm:"type:uuid;index;not null" json:"owner_id"`
	ReportType          ReportType `gorm:"size:32;not null" json:"report_type"`
	Frequency           Frequency  `gorm:"size:16;not null" json:"frequency"`
	Format              Format     `gorm:"size:16;not null" json:"format"`
	DeliverByEmail      bool       `gorm:"not null" json:"deliver_by_email"`
	IsActive            bool       `gorm:"not null;index:idx_report_schedules_due,priority:1" json:"is_active"`
	ScheduledHour       *int       `json:"scheduled_hour,omitempty"`
	ScheduledMinute     *int       `json:"scheduled_minute,omitempty"`
	ScheduledDayOfWeek  *int       `json:"scheduled_day_of_week,omitempty"`
	ScheduledDayOfMonth *int       `json:"scheduled_day_of_month,omitempty"`
	Timezone            string     `gorm:"size:50;not null;default:UTC" json:"timezone"`
	LastRunAt           *time.Time `json:"last_run_at,omitempty"`
	NextRunAt           *time.Time `gorm:"index:idx_report_schedules_due,priority:2" json:"next_run_at,omitempty"`
	RunCount            int64      `gorm:"not null;default:0" json:"run_count"`
	LastManualSendAt    *time.Time `json:"last_manual_send_at,omitempty"`
	ClaimedBy           *string    `gorm:"size:100" json:"-"`
	ClaimedUntil        *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`

	Owner User `gorm:"foreignKey:OwnerID" json:"-"`
}

func (ReportSchedule) TableName() string {
	return "report_schedules"
}

func (s *ReportSchedule) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Timezone == "" {
		s.Timezone = "UTC"
	}
	return nil
}

// Location resolves the schedule's timezone, falling back to UTC.
func (s *ReportSchedule) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsDue reports whether the schedule is active and its next run has elapsed.
func (s *ReportSchedule) IsDue(now time.Time) bool {
	return s.IsActive && s.NextRunAt != nil && !s.NextRunAt.After(now)
}
