package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReportRun is one attempt at producing a scheduled or manual report.
type ReportRun struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ScheduleID   uuid.UUID  `gorm:"type:uuid;index;not null" json:"schedule_id"`
	OwnerID      uuid.UUID  `gorm:"type:uuid;index;not null" json:"owner_id"`
	Trigger      string     `gorm:"size:20;not null" json:"trigger"`
	Status       string     `gorm:"size:20;not null;index" json:"status"`
	ErrorMessage *string    `gorm:"type:text" json:"error_message,omitempty"`
	Period       string     `gorm:"size:20" json:"period,omitempty"`
	Format       Format     `gorm:"size:16" json:"format,omitempty"`
	FileName     string     `gorm:"size:255" json:"file_name,omitempty"`
	SizeBytes    int64      `json:"size_bytes"`
	ArchiveKey   *string    `gorm:"size:500" json:"archive_key,omitempty"`
	Delivered    bool       `json:"delivered"`
	StartedAt    time.Time  `gorm:"not null" json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	DurationMs   int64      `json:"duration_ms"`
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`
}

func (ReportRun) TableName() string {
	return "report_runs"
}

func (r *ReportRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
