// Package scheduler materializes due recurring expenses into ledger
// transactions on a timer.
package scheduler

import (
	"context"
	"log"
	"time"

	"makwenta.app/finance-assistant/internal/store"
)

// Processor turns due recurring rules into transactions. now is injectable
// so tests can pin the processing date.
type Processor struct {
	store    *store.SQLiteStore
	interval time.Duration
	now      func() time.Time
}

func NewProcessor(s *store.SQLiteStore, interval time.Duration) *Processor {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Processor{store: s, interval: interval, now: time.Now}
}

// Run processes due rules immediately and then on every tick until the
// context is cancelled.
func (p *Processor) Run(ctx context.Context) {
	if _, err := p.ProcessDue(p.now()); err != nil {
		log.Printf("Recurring processing failed: %v", err)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Println("Recurring processor stopped.")
			return
		case <-ticker.C:
			if _, err := p.ProcessDue(p.now()); err != nil {
				log.Printf("Recurring processing failed: %v", err)
			}
		}
	}
}

// ProcessDue materializes every occurrence of every active rule that is due
// on or before asOf. Each materialized transaction carries the occurrence
// date as its expense date, never the time this happens to run, so weekly
// reports attribute the spend to the right bucket even when the processor
// catches up after downtime. Returns the number of transactions recorded.
func (p *Processor) ProcessDue(asOf time.Time) (int, error) {
	rules, err := p.store.DueRecurringRules(asOf)
	if err != nil {
		return 0, err
	}

	recorded := 0
	for _, rule := range rules {
		n, err := p.processRule(rule, asOf)
		if err != nil {
			log.Printf("Recurring rule %d processing failed: %v", rule.ID, err)
			continue
		}
		recorded += n
	}
	if recorded > 0 {
		log.Printf("Recurring processor recorded %d transaction(s).", recorded)
	}
	return recorded, nil
}

func (p *Processor) processRule(rule store.RecurringRule, asOf time.Time) (int, error) {
	next, err := store.ParseDate(rule.NextOccurrence)
	if err != nil {
		return 0, err
	}
	cutoff := store.FormatDate(asOf)

	recorded := 0
	for rule.NextOccurrence <= cutoff {
		if rule.EndDate != "" && rule.NextOccurrence > rule.EndDate {
			rule.IsActive = false
			break
		}

		tx := &store.Transaction{
			UserID:      rule.UserID,
			Amount:      rule.Amount,
			Kind:        store.KindExpense,
			Category:    rule.Category,
			Description: rule.Description,
			ExpenseDate: rule.NextOccurrence,
		}
		if err := p.store.RecordTransaction(tx); err != nil {
			return recorded, err
		}
		recorded++

		rule.LastProcessed = rule.NextOccurrence
		next = store.NextOccurrenceAfter(rule.Frequency, next)
		rule.NextOccurrence = store.FormatDate(next)
	}

	if rule.EndDate != "" && rule.NextOccurrence > rule.EndDate {
		rule.IsActive = false
	}
	if err := p.store.UpdateRecurringRule(&rule); err != nil {
		return recorded, err
	}
	return recorded, nil
}
