package guard

import (
	"fmt"
	"math"
	"time"

	"github.com/ledgerly/reportflow/internal/domain/models"
)

const DefaultCooldown = 10 * time.Second

// CooldownError is returned when a manual send is attempted too soon.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("manual send is cooling down, retry in %ds", e.RemainingSeconds())
}

// RemainingSeconds rounds the remaining wait up to whole seconds.
func (e *CooldownError) RemainingSeconds() int {
	return int(math.Ceil(e.Remaining.Seconds()))
}

// ManualTrigger enforces a minimum interval between user initiated sends of
// the same schedule.
type ManualTrigger struct {
	cooldown time.Duration
}

func NewManualTrigger(cooldown time.Duration) *ManualTrigger {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &ManualTrigger{cooldown: cooldown}
}

func (g *ManualTrigger) Cooldown() time.Duration {
	return g.cooldown
}

func (g *ManualTrigger) CanSendManually(s *models.ReportSchedule, now time.Time) bool {
	return g.RemainingCooldown(s, now) == 0
}

func (g *ManualTrigger) RemainingCooldown(s *models.ReportSchedule, now time.Time) time.Duration {
	if s.LastManualSendAt == nil {
		return 0
	}
	remaining := s.LastManualSendAt.Add(g.cooldown).Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Check returns a *CooldownError when the schedule is still cooling down.
func (g *ManualTrigger) Check(s *models.ReportSchedule, now time.Time) error {
	if remaining := g.RemainingCooldown(s, now); remaining > 0 {
		return &CooldownError{Remaining: remaining}
	}
	return nil
}

// Threshold is the latest last-manual-send time that still allows a send at now.
func (g *ManualTrigger) Threshold(now time.Time) time.Time {
	return now.Add(-g.cooldown)
}
