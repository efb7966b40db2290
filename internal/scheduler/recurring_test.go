package scheduler

import (
	"path/filepath"
	"testing"
	"time"

	"makwenta.app/finance-assistant/internal/store"
)

func newTestProcessor(t *testing.T) (*Processor, *store.SQLiteStore) {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return NewProcessor(s, time.Hour), s
}

func asOf(t *testing.T, date string) time.Time {
	t.Helper()
	d, err := store.ParseDate(date)
	if err != nil {
		t.Fatalf("ParseDate(%q): %v", date, err)
	}
	return d
}

func addRule(t *testing.T, s *store.SQLiteStore, r *store.RecurringRule) *store.RecurringRule {
	t.Helper()
	if err := s.CreateRecurringRule(r); err != nil {
		t.Fatalf("CreateRecurringRule: %v", err)
	}
	return r
}

func TestProcessDueMaterializesWithOccurrenceDate(t *testing.T) {
	p, s := newTestProcessor(t)
	addRule(t, s, &store.RecurringRule{
		UserID: "alice", Amount: 50, Category: "gym",
		Frequency: store.FreqMonthly, StartDate: "2025-06-10",
	})

	n, err := p.ProcessDue(asOf(t, "2025-06-15"))
	if err != nil {
		t.Fatalf("ProcessDue: %v", err)
	}
	if n != 1 {
		t.Fatalf("recorded %d transactions, want 1", n)
	}

	// The transaction carries the occurrence date, not the processing date.
	txs, err := s.ExpensesOn("alice", "2025-06-10")
	if err != nil {
		t.Fatalf("ExpensesOn: %v", err)
	}
	if len(txs) != 1 || txs[0].Amount != 50 {
		t.Errorf("materialized transactions on 2025-06-10 = %+v", txs)
	}

	rules, err := s.ListRecurringRules("alice", true)
	if err != nil {
		t.Fatalf("ListRecurringRules: %v", err)
	}
	if rules[0].NextOccurrence != "2025-07-10" {
		t.Errorf("next occurrence = %s, want 2025-07-10", rules[0].NextOccurrence)
	}
	if rules[0].LastProcessed != "2025-06-10" {
		t.Errorf("last processed = %s, want 2025-06-10", rules[0].LastProcessed)
	}
}

func TestProcessDueCatchesUpMissedOccurrences(t *testing.T) {
	p, s := newTestProcessor(t)
	addRule(t, s, &store.RecurringRule{
		UserID: "alice", Amount: 10, Category: "coffee",
		Frequency: store.FreqWeekly, StartDate: "2025-06-02",
	})

	// Three weeks of downtime: 06-02, 06-09 and 06-16 are all due.
	n, err := p.ProcessDue(asOf(t, "2025-06-16"))
	if err != nil {
		t.Fatalf("ProcessDue: %v", err)
	}
	if n != 3 {
		t.Fatalf("recorded %d transactions, want 3", n)
	}

	for _, date := range []string{"2025-06-02", "2025-06-09", "2025-06-16"} {
		txs, err := s.ExpensesOn("alice", date)
		if err != nil {
			t.Fatalf("ExpensesOn(%s): %v", date, err)
		}
		if len(txs) != 1 {
			t.Errorf("occurrence on %s has %d transactions, want 1", date, len(txs))
		}
	}
}

func TestProcessDueIsIdempotentPerOccurrence(t *testing.T) {
	p, s := newTestProcessor(t)
	addRule(t, s, &store.RecurringRule{
		UserID: "alice", Amount: 10, Category: "coffee",
		Frequency: store.FreqWeekly, StartDate: "2025-06-02",
	})

	if _, err := p.ProcessDue(asOf(t, "2025-06-03")); err != nil {
		t.Fatalf("first ProcessDue: %v", err)
	}
	n, err := p.ProcessDue(asOf(t, "2025-06-03"))
	if err != nil {
		t.Fatalf("second ProcessDue: %v", err)
	}
	if n != 0 {
		t.Errorf("second run recorded %d transactions, want 0", n)
	}
}

func TestProcessDueDeactivatesPastEndDate(t *testing.T) {
	p, s := newTestProcessor(t)
	rule := addRule(t, s, &store.RecurringRule{
		UserID: "alice", Amount: 20, Category: "trial",
		Frequency: store.FreqWeekly, StartDate: "2025-06-02", EndDate: "2025-06-10",
	})

	n, err := p.ProcessDue(asOf(t, "2025-06-30"))
	if err != nil {
		t.Fatalf("ProcessDue: %v", err)
	}
	// Only 06-02 and 06-09 fall inside the end date.
	if n != 2 {
		t.Fatalf("recorded %d transactions, want 2", n)
	}

	got, err := s.GetRecurringRule("alice", rule.ID)
	if err != nil {
		t.Fatalf("GetRecurringRule: %v", err)
	}
	if got.IsActive {
		t.Error("rule past its end date is still active")
	}
}

func TestProcessDueSkipsInactiveRules(t *testing.T) {
	p, s := newTestProcessor(t)
	rule := addRule(t, s, &store.RecurringRule{
		UserID: "alice", Amount: 10, Category: "paused",
		Frequency: store.FreqDaily, StartDate: "2025-06-01",
	})
	if err := s.SetRecurringRuleActive("alice", rule.ID, false); err != nil {
		t.Fatalf("pause: %v", err)
	}

	n, err := p.ProcessDue(asOf(t, "2025-06-05"))
	if err != nil {
		t.Fatalf("ProcessDue: %v", err)
	}
	if n != 0 {
		t.Errorf("paused rule produced %d transactions", n)
	}
}
