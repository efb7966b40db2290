package store

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func record(t *testing.T, s *SQLiteStore, userID, expenseDate string, amount float64) {
	t.Helper()
	err := s.RecordTransaction(&Transaction{
		UserID:      userID,
		Amount:      amount,
		Category:    "test",
		ExpenseDate: expenseDate,
	})
	if err != nil {
		t.Fatalf("RecordTransaction: %v", err)
	}
}

func TestSumExpensesBucketsOnExpenseDateOnly(t *testing.T) {
	s := newTestStore(t)

	// Three entries inside the week of Monday 2025-06-02, one before,
	// one after. RecordedAt is always "now" regardless of the backdated
	// expense dates; it must not influence the sum.
	record(t, s, "alice", "2025-06-02", 500)
	record(t, s, "alice", "2025-06-04", 300)
	record(t, s, "alice", "2025-06-08", 200) // Sunday, still in the week
	record(t, s, "alice", "2025-06-01", 999) // previous week
	record(t, s, "alice", "2025-06-09", 999) // next week

	start, end := PeriodBounds(PeriodWeek, date(t, "2025-06-04"))
	got, err := s.SumExpenses("alice", start, end)
	if err != nil {
		t.Fatalf("SumExpenses: %v", err)
	}
	if got != 1000 {
		t.Errorf("weekly sum = %v, want 1000", got)
	}
}

func TestSumExpensesIgnoresIncomeAndOtherUsers(t *testing.T) {
	s := newTestStore(t)

	record(t, s, "alice", "2025-06-03", 100)
	record(t, s, "bob", "2025-06-03", 50)
	if err := s.RecordTransaction(&Transaction{
		UserID:      "alice",
		Amount:      5000,
		Kind:        KindIncome,
		Category:    "salary",
		ExpenseDate: "2025-06-03",
	}); err != nil {
		t.Fatalf("RecordTransaction income: %v", err)
	}

	start, end := PeriodBounds(PeriodDay, date(t, "2025-06-03"))
	got, err := s.SumExpenses("alice", start, end)
	if err != nil {
		t.Fatalf("SumExpenses: %v", err)
	}
	if got != 100 {
		t.Errorf("daily sum = %v, want 100", got)
	}
}

func TestSumExpensesNoRowsIsZero(t *testing.T) {
	s := newTestStore(t)
	start, end := PeriodBounds(PeriodWeek, time.Now())
	got, err := s.SumExpenses("nobody", start, end)
	if err != nil {
		t.Fatalf("SumExpenses: %v", err)
	}
	if got != 0 {
		t.Errorf("sum over empty ledger = %v, want 0", got)
	}
}

func TestRecordTransactionRejectsBadDate(t *testing.T) {
	s := newTestStore(t)
	err := s.RecordTransaction(&Transaction{
		UserID:      "alice",
		Amount:      10,
		Category:    "test",
		ExpenseDate: "June 3rd",
	})
	if err == nil {
		t.Error("RecordTransaction accepted a malformed date")
	}
}

func TestExpensesOn(t *testing.T) {
	s := newTestStore(t)
	record(t, s, "alice", "2025-06-03", 40)
	record(t, s, "alice", "2025-06-03", 60)
	record(t, s, "alice", "2025-06-04", 10)

	txs, err := s.ExpensesOn("alice", "2025-06-03")
	if err != nil {
		t.Fatalf("ExpensesOn: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("got %d transactions, want 2", len(txs))
	}
}

func TestBudgetUpsertReplacesRow(t *testing.T) {
	s := newTestStore(t)

	if err := s.UpsertBudget(&BudgetConfig{UserID: "alice", DailyLimit: 100, WeeklyLimit: 700, MonthlyLimit: 3000}); err != nil {
		t.Fatalf("UpsertBudget: %v", err)
	}
	if err := s.UpsertBudget(&BudgetConfig{UserID: "alice", DailyLimit: 200, WeeklyLimit: 1400, MonthlyLimit: 6000}); err != nil {
		t.Fatalf("UpsertBudget again: %v", err)
	}

	b, err := s.GetBudget("alice")
	if err != nil {
		t.Fatalf("GetBudget: %v", err)
	}
	if b == nil || b.DailyLimit != 200 || b.WeeklyLimit != 1400 {
		t.Errorf("budget after second upsert = %+v", b)
	}
}

func TestGetBudgetMissingIsNil(t *testing.T) {
	s := newTestStore(t)
	b, err := s.GetBudget("nobody")
	if err != nil {
		t.Fatalf("GetBudget: %v", err)
	}
	if b != nil {
		t.Errorf("expected nil budget, got %+v", b)
	}
}

func TestRecurringRuleLifecycle(t *testing.T) {
	s := newTestStore(t)

	rule := &RecurringRule{
		UserID:    "alice",
		Amount:    15,
		Category:  "subscriptions",
		Frequency: FreqMonthly,
		StartDate: "2025-06-01",
	}
	if err := s.CreateRecurringRule(rule); err != nil {
		t.Fatalf("CreateRecurringRule: %v", err)
	}
	if rule.ID == 0 {
		t.Fatal("rule ID not assigned")
	}
	if rule.NextOccurrence != "2025-06-01" {
		t.Errorf("next occurrence = %s, want start date", rule.NextOccurrence)
	}

	if err := s.SetRecurringRuleActive("alice", rule.ID, false); err != nil {
		t.Fatalf("pause: %v", err)
	}
	active, err := s.ListRecurringRules("alice", true)
	if err != nil {
		t.Fatalf("ListRecurringRules: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("paused rule still listed as active")
	}

	all, err := s.ListRecurringRules("alice", false)
	if err != nil {
		t.Fatalf("ListRecurringRules all: %v", err)
	}
	if len(all) != 1 || all[0].IsActive {
		t.Errorf("all rules = %+v", all)
	}

	if err := s.DeleteRecurringRule("alice", rule.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := s.GetRecurringRule("alice", rule.ID)
	if err != nil {
		t.Fatalf("GetRecurringRule: %v", err)
	}
	if got != nil {
		t.Errorf("deleted rule still present: %+v", got)
	}
}

func TestRecurringRuleScopedToOwner(t *testing.T) {
	s := newTestStore(t)
	rule := &RecurringRule{UserID: "alice", Amount: 9.99, Category: "music", Frequency: FreqMonthly, StartDate: "2025-06-01"}
	if err := s.CreateRecurringRule(rule); err != nil {
		t.Fatalf("CreateRecurringRule: %v", err)
	}

	got, err := s.GetRecurringRule("bob", rule.ID)
	if err != nil {
		t.Fatalf("GetRecurringRule: %v", err)
	}
	if got != nil {
		t.Error("rule visible to a different user")
	}
	if err := s.DeleteRecurringRule("bob", rule.ID); err == nil {
		t.Error("delete succeeded for a different user")
	}
}

func TestDueRecurringRules(t *testing.T) {
	s := newTestStore(t)

	due := &RecurringRule{UserID: "alice", Amount: 10, Category: "a", Frequency: FreqDaily, StartDate: "2025-06-01"}
	future := &RecurringRule{UserID: "alice", Amount: 10, Category: "b", Frequency: FreqDaily, StartDate: "2025-07-01"}
	for _, r := range []*RecurringRule{due, future} {
		if err := s.CreateRecurringRule(r); err != nil {
			t.Fatalf("CreateRecurringRule: %v", err)
		}
	}

	rules, err := s.DueRecurringRules(date(t, "2025-06-15"))
	if err != nil {
		t.Fatalf("DueRecurringRules: %v", err)
	}
	if len(rules) != 1 || rules[0].Category != "a" {
		t.Errorf("due rules = %+v, want just the June rule", rules)
	}
}

func TestNextOccurrenceAfter(t *testing.T) {
	from := date(t, "2025-01-31")
	cases := []struct {
		freq string
		want string
	}{
		{FreqDaily, "2025-02-01"},
		{FreqWeekly, "2025-02-07"},
		{FreqBiweekly, "2025-02-14"},
		{FreqMonthly, "2025-03-03"}, // Jan 31 + 1 month normalizes past short February
		{FreqYearly, "2026-01-31"},
	}
	for _, tc := range cases {
		if got := FormatDate(NextOccurrenceAfter(tc.freq, from)); got != tc.want {
			t.Errorf("NextOccurrenceAfter(%s) = %s, want %s", tc.freq, got, tc.want)
		}
	}
}
