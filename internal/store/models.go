package store

import "time"

type User struct {
	ID             int64     `json:"id"`
	ExternalUserID string    `json:"external_user_id"`
	PasswordHash   string    `json:"-"` // Do not expose this in JSON responses
	CreatedAt      time.Time `json:"created_at"`
}

// Transaction kinds. Aggregation queries only ever sum expense rows.
const (
	KindExpense = "expense"
	KindIncome  = "income"
)

// Transaction is one ledger entry. ExpenseDate is the economic date the
// entry is attributed to and is the only field aggregation may bucket on.
// RecordedAt is the ingestion timestamp and never participates in reporting.
type Transaction struct {
	ID          string    `json:"id"` // UUID
	UserID      string    `json:"user_id"`
	Amount      float64   `json:"amount"`
	Kind        string    `json:"kind"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	ExpenseDate string    `json:"expense_date"` // YYYY-MM-DD
	RecordedAt  time.Time `json:"recorded_at"`
}

// BudgetConfig is the single live budget row for a user. All three limits
// are always populated; DeriveLimits fills in the two the user did not give.
type BudgetConfig struct {
	UserID       string    `json:"user_id"`
	DailyLimit   float64   `json:"daily_limit"`
	WeeklyLimit  float64   `json:"weekly_limit"`
	MonthlyLimit float64   `json:"monthly_limit"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Goal struct {
	ID            string  `json:"id"` // UUID
	UserID        string  `json:"user_id"`
	GoalName      string  `json:"goal_name"`
	TargetAmount  float64 `json:"target_amount"`
	CurrentAmount float64 `json:"current_amount"`
	Deadline      string  `json:"deadline"` // YYYY-MM-DD
}

// Recurring rule frequencies.
const (
	FreqDaily    = "daily"
	FreqWeekly   = "weekly"
	FreqBiweekly = "biweekly"
	FreqMonthly  = "monthly"
	FreqYearly   = "yearly"
)

// ValidFrequency reports whether f is a supported recurrence frequency.
func ValidFrequency(f string) bool {
	switch f {
	case FreqDaily, FreqWeekly, FreqBiweekly, FreqMonthly, FreqYearly:
		return true
	}
	return false
}

// RecurringRule auto-records a transaction each time NextOccurrence comes
// due. The materialized transaction carries the occurrence date as its
// expense date, not the time the scheduler happened to run.
type RecurringRule struct {
	ID             int64   `json:"id"`
	UserID         string  `json:"user_id"`
	Amount         float64 `json:"amount"`
	Category       string  `json:"category"`
	Description    string  `json:"description,omitempty"`
	Frequency      string  `json:"frequency"`
	StartDate      string  `json:"start_date"`
	EndDate        string  `json:"end_date,omitempty"` // empty = indefinite
	NextOccurrence string  `json:"next_occurrence"`
	LastProcessed  string  `json:"last_processed,omitempty"`
	IsActive       bool    `json:"is_active"`
}

// NextOccurrenceAfter advances an occurrence date by one period of the given
// frequency. The scheduler and the forecast tool both step through this, so
// predicted and materialized occurrences can never drift apart.
func NextOccurrenceAfter(frequency string, from time.Time) time.Time {
	switch frequency {
	case FreqDaily:
		return from.AddDate(0, 0, 1)
	case FreqWeekly:
		return from.AddDate(0, 0, 7)
	case FreqBiweekly:
		return from.AddDate(0, 0, 14)
	case FreqYearly:
		return from.AddDate(1, 0, 0)
	default: // monthly
		return from.AddDate(0, 1, 0)
	}
}
