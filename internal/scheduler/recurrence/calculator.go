package recurrence

import (
	"errors"
	"fmt"
	"time"

	"github.com/ledgerly/reportflow/internal/domain/models"
)

var (
	ErrUnknownFrequency = errors.New("unknown frequency")
	ErrInvalidHint      = errors.New("invalid schedule hint")
)

// Hints pin parts of the computed run. Nil fields are unset.
type Hints struct {
	Hour       *int
	Minute     *int
	DayOfWeek  *int // ISO weekday, 1 = Monday .. 7 = Sunday
	DayOfMonth *int
}

// HintsFor extracts the scheduling hints stored on a schedule.
func HintsFor(s *models.ReportSchedule) Hints {
	return Hints{
		Hour:       s.ScheduledHour,
		Minute:     s.ScheduledMinute,
		DayOfWeek:  s.ScheduledDayOfWeek,
		DayOfMonth: s.ScheduledDayOfMonth,
	}
}

// Validate rejects hints that are out of range or do not apply to freq.
func Validate(freq models.Frequency, h Hints) error {
	if !freq.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownFrequency, freq)
	}
	if h.Hour != nil && (*h.Hour < 0 || *h.Hour > 23) {
		return fmt.Errorf("%w: hour must be between 0 and 23", ErrInvalidHint)
	}
	if h.Minute != nil {
		if h.Hour == nil {
			return fmt.Errorf("%w: minute requires hour", ErrInvalidHint)
		}
		if *h.Minute < 0 || *h.Minute > 59 {
			return fmt.Errorf("%w: minute must be between 0 and 59", ErrInvalidHint)
		}
	}
	if h.DayOfWeek != nil {
		if freq != models.FrequencyWeekly {
			return fmt.Errorf("%w: day of week only applies to %s", ErrInvalidHint, models.FrequencyWeekly)
		}
		if *h.DayOfWeek < 1 || *h.DayOfWeek > 7 {
			return fmt.Errorf("%w: day of week must be between 1 and 7", ErrInvalidHint)
		}
	}
	if h.DayOfMonth != nil {
		if freq != models.FrequencyMonthly {
			return fmt.Errorf("%w: day of month only applies to %s", ErrInvalidHint, models.FrequencyMonthly)
		}
		if *h.DayOfMonth < 1 || *h.DayOfMonth > 31 {
			return fmt.Errorf("%w: day of month must be between 1 and 31", ErrInvalidHint)
		}
	}
	return nil
}

// NextRun returns the first run strictly after anchor. The result is in
// anchor's location and depends only on its arguments.
func NextRun(freq models.Frequency, anchor time.Time, h Hints) time.Time {
	next := advance(freq, anchor, h)

	if h.Hour != nil {
		minute := 0
		if h.Minute != nil {
			minute = *h.Minute
		}
		next = time.Date(next.Year(), next.Month(), next.Day(), *h.Hour, minute, 0, 0, next.Location())
	}
	return next
}

func advance(freq models.Frequency, anchor time.Time, h Hints) time.Time {
	switch freq {
	case models.FrequencyDaily:
		return anchor.AddDate(0, 0, 1)
	case models.FrequencyWeekly:
		if h.DayOfWeek == nil {
			return anchor.AddDate(0, 0, 7)
		}
		next := anchor.AddDate(0, 0, 1)
		for isoWeekday(next) != *h.DayOfWeek {
			next = next.AddDate(0, 0, 1)
		}
		return next
	case models.FrequencyMonthly:
		if h.DayOfMonth != nil {
			return withDay(anchor, 1, *h.DayOfMonth)
		}
		return addMonths(anchor, 1)
	case models.FrequencyQuarterly:
		return addMonths(anchor, 3)
	case models.FrequencyYearly:
		return addMonths(anchor, 12)
	}
	// Unknown frequencies are rejected by Validate; fall back to daily.
	return anchor.AddDate(0, 0, 1)
}

// addMonths moves t forward by n months keeping its day when possible and
// clamping to the last day of a shorter target month.
func addMonths(t time.Time, n int) time.Time {
	return withDay(t, n, t.Day())
}

func withDay(t time.Time, months, day int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	first = first.AddDate(0, months, 0)
	if last := DaysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}
