package store

import "fmt"

// weeksPerMonth is the approximation the weekly<->monthly conversion uses.
const weeksPerMonth = 4.3

// DeriveLimits expands a single budget figure into all three limits.
// period must be "daily", "weekly" or "monthly". Every limit derivation in
// the system goes through this one function so the stored daily, weekly and
// monthly limits can never disagree on rounding.
func DeriveLimits(period string, amount float64) (daily, weekly, monthly float64, err error) {
	if amount <= 0 {
		return 0, 0, 0, fmt.Errorf("budget amount must be positive, got %v", amount)
	}

	switch period {
	case "daily":
		daily = amount
		weekly = amount * 7
		monthly = amount * 30
	case "weekly":
		weekly = amount
		daily = amount / 7
		monthly = amount * weeksPerMonth
	case "monthly":
		monthly = amount
		daily = amount / 30
		weekly = amount / weeksPerMonth
	default:
		return 0, 0, 0, fmt.Errorf("period must be 'daily', 'weekly' or 'monthly', got %q", period)
	}
	return daily, weekly, monthly, nil
}
