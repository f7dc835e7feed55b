package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Transaction is a ledger entry owned by a user. The scheduler only reads it.
type Transaction struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;index:idx_transactions_user_time,priority:1;not null" json:"user_id"`
	Category    string    `gorm:"size:100;not null" json:"category"`
	Kind        string    `gorm:"size:10;not null" json:"kind"`
	Amount      float64   `gorm:"type:numeric(14,2);not null" json:"amount"`
	Description string    `gorm:"size:255" json:"description"`
	OccurredAt  time.Time `gorm:"index:idx_transactions_user_time,priority:2;not null" json:"occurred_at"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
