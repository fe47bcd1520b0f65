// Package calendar computes calendar-aligned period boundaries.
//
// Every function first discards the time of day of the supplied instant, so
// callers can pass a wall-clock reading directly. Weeks start on Monday.
package calendar

import (
	"fmt"
	"time"

	"tracker/internal/core"
)

// Epoch is the lower bound of the "all" period.
var Epoch = core.NewDate(1970, 1, 1)

// StartOfWeek returns the Monday on or before now.
func StartOfWeek(now time.Time) core.Date {
	d := core.DateOf(now)
	day := int(d.Weekday()) // 0=Sunday..6=Saturday
	offset := 1 - day
	if day == 0 {
		offset = -6
	}
	return d.AddDays(offset)
}

// StartOfMonth returns the first day of now's month.
func StartOfMonth(now time.Time) core.Date {
	d := core.DateOf(now)
	return core.NewDate(d.Year(), int(d.Month()), 1)
}

// StartOfYear returns January 1 of now's year.
func StartOfYear(now time.Time) core.Date {
	return core.NewDate(core.DateOf(now).Year(), 1, 1)
}

// EndOfRange returns tomorrow relative to now, the exclusive upper bound of
// every period so that today is always included.
func EndOfRange(now time.Time) core.Date {
	return core.DateOf(now).AddDays(1)
}

// RangeForPeriod returns the half-open range [start, tomorrow) for period.
func RangeForPeriod(period core.Period, now time.Time) (core.DateRange, error) {
	end := EndOfRange(now)
	switch period {
	case core.PeriodWeek:
		return core.DateRange{Start: StartOfWeek(now), End: end}, nil
	case core.PeriodMonth:
		return core.DateRange{Start: StartOfMonth(now), End: end}, nil
	case core.PeriodYear:
		return core.DateRange{Start: StartOfYear(now), End: end}, nil
	case core.PeriodAll:
		return core.DateRange{Start: Epoch, End: end}, nil
	default:
		return core.DateRange{}, fmt.Errorf("%w: %q", core.ErrInvalidPeriod, period)
	}
}
