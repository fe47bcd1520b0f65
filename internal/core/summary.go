package core

import "time"

// CategoryTotal is the amount aggregated for one category.
type CategoryTotal struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
}

// Clock supplies the current instant. The aggregation core never reads the
// system clock itself.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time { return c.At }

// FallbackCategory is kept when every other category has been removed.
const FallbackCategory = "Other"

// DefaultCategories returns the category set of a fresh ledger.
func DefaultCategories() []string {
	return []string{"Food", "Transport", "Bills", "Groceries", "Health", "Fun", FallbackCategory}
}
