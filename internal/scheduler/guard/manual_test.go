package guard

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerly/reportflow/internal/domain/models"
)

func TestManualTrigger_NeverSent(t *testing.T) {
	g := NewManualTrigger(10 * time.Second)
	s := &models.ReportSchedule{}

	now := time.Date(2025, time.April, 1, 8, 0, 0, 0, time.UTC)
	assert.True(t, g.CanSendManually(s, now))
	assert.Zero(t, g.RemainingCooldown(s, now))
	assert.NoError(t, g.Check(s, now))
}

func TestManualTrigger_Cooldown(t *testing.T) {
	g := NewManualTrigger(10 * time.Second)
	sentAt := time.Date(2025, time.April, 1, 8, 0, 0, 0, time.UTC)
	s := &models.ReportSchedule{LastManualSendAt: &sentAt}

	previous := g.RemainingCooldown(s, sentAt)
	assert.Equal(t, 10*time.Second, previous)

	for offset := 250 * time.Millisecond; offset < 10*time.Second; offset += 250 * time.Millisecond {
		now := sentAt.Add(offset)
		require.False(t, g.CanSendManually(s, now), "offset %s", offset)

		remaining := g.RemainingCooldown(s, now)
		require.Less(t, remaining, previous)
		require.Greater(t, remaining, time.Duration(0))
		previous = remaining
	}

	assert.True(t, g.CanSendManually(s, sentAt.Add(10*time.Second)))
	assert.Zero(t, g.RemainingCooldown(s, sentAt.Add(10*time.Second)))
	assert.True(t, g.CanSendManually(s, sentAt.Add(time.Hour)))
}

func TestManualTrigger_CheckReturnsCooldownError(t *testing.T) {
	g := NewManualTrigger(0)
	assert.Equal(t, DefaultCooldown, g.Cooldown())

	sentAt := time.Date(2025, time.April, 1, 8, 0, 0, 0, time.UTC)
	s := &models.ReportSchedule{LastManualSendAt: &sentAt}

	err := g.Check(s, sentAt.Add(2500*time.Millisecond))
	require.Error(t, err)

	var cooldownErr *CooldownError
	require.True(t, errors.As(err, &cooldownErr))
	assert.Equal(t, 7500*time.Millisecond, cooldownErr.Remaining)
	assert.Equal(t, 8, cooldownErr.RemainingSeconds())
	assert.Contains(t, err.Error(), "8s")
}

func TestManualTrigger_Threshold(t *testing.T) {
	g := NewManualTrigger(10 * time.Second)
	now := time.Date(2025, time.April, 1, 8, 0, 10, 0, time.UTC)
	assert.Equal(t, time.Date(2025, time.April, 1, 8, 0, 0, 0, time.UTC), g.Threshold(now))
}
