package tools

import (
	"context"
	"fmt"

	"makwenta.app/finance-assistant/internal/core"
	"makwenta.app/finance-assistant/internal/store"
)

const (
	forecastDefaultDays = 30
	forecastMaxDays     = 365
)

func (f *Financial) registerRecurringTools(r *Registry) {
	r.Register(&Tool{
		Spec: core.ToolSpec{
			Name:        "add_recurring_expense",
			Description: "Create a recurring expense that is recorded automatically on a schedule, e.g. rent or subscriptions.",
			Params: []core.Param{
				{Name: ParamUserID, Type: core.TypeString, FromContext: true},
				{Name: "amount", Type: core.TypeNumber, Description: "Positive amount charged each occurrence.", Required: true},
				{Name: "category", Type: core.TypeString, Description: "Spending category.", Required: true},
				{Name: "frequency", Type: core.TypeString, Description: "One of 'daily', 'weekly', 'biweekly', 'monthly' or 'yearly'.", Required: true},
				{Name: "start_date", Type: core.TypeDate, Description: "First occurrence date.", Required: true},
				{Name: "description", Type: core.TypeString, Description: "Optional free-text note."},
				{Name: "end_date", Type: core.TypeDate, Description: "Optional last date the expense applies. Omit for indefinite."},
			},
		},
		Mutating: true,
		Handler:  f.addRecurring,
	})

	r.Register(&Tool{
		Spec: core.ToolSpec{
			Name:        "view_recurring_expenses",
			Description: "List the user's recurring expenses.",
			Params: []core.Param{
				{Name: ParamUserID, Type: core.TypeString, FromContext: true},
				{Name: "include_inactive", Type: core.TypeBoolean, Description: "Include paused expenses. Defaults to false."},
			},
		},
		Handler: f.viewRecurring,
	})

	r.Register(&Tool{
		Spec: core.ToolSpec{
			Name:        "edit_recurring_expense",
			Description: "Change fields of an existing recurring expense. Only the provided fields are changed.",
			Params: []core.Param{
				{Name: ParamUserID, Type: core.TypeString, FromContext: true},
				{Name: "rule_id", Type: core.TypeInteger, Description: "ID of the recurring expense.", Required: true},
				{Name: "amount", Type: core.TypeNumber, Description: "New amount."},
				{Name: "category", Type: core.TypeString, Description: "New category."},
				{Name: "description", Type: core.TypeString, Description: "New description."},
				{Name: "frequency", Type: core.TypeString, Description: "New frequency."},
				{Name: "end_date", Type: core.TypeDate, Description: "New end date."},
			},
		},
		Mutating: true,
		Handler:  f.editRecurring,
	})

	r.Register(&Tool{
		Spec: core.ToolSpec{
			Name:        "pause_recurring_expense",
			Description: "Pause a recurring expense so it stops being recorded.",
			Params: []core.Param{
				{Name: ParamUserID, Type: core.TypeString, FromContext: true},
				{Name: "rule_id", Type: core.TypeInteger, Description: "ID of the recurring expense.", Required: true},
			},
		},
		Mutating: true,
		Handler:  f.setRecurringActive(false),
	})

	r.Register(&Tool{
		Spec: core.ToolSpec{
			Name:        "resume_recurring_expense",
			Description: "Resume a paused recurring expense.",
			Params: []core.Param{
				{Name: ParamUserID, Type: core.TypeString, FromContext: true},
				{Name: "rule_id", Type: core.TypeInteger, Description: "ID of the recurring expense.", Required: true},
			},
		},
		Mutating: true,
		Handler:  f.setRecurringActive(true),
	})

	r.Register(&Tool{
		Spec: core.ToolSpec{
			Name:        "delete_recurring_expense",
			Description: "Delete a recurring expense permanently.",
			Params: []core.Param{
				{Name: ParamUserID, Type: core.TypeString, FromContext: true},
				{Name: "rule_id", Type: core.TypeInteger, Description: "ID of the recurring expense.", Required: true},
			},
		},
		Mutating: true,
		Handler:  f.deleteRecurring,
	})

	r.Register(&Tool{
		Spec: core.ToolSpec{
			Name:        "forecast_recurring_expenses",
			Description: "Project the total of upcoming recurring expenses over the next N days.",
			Params: []core.Param{
				{Name: ParamUserID, Type: core.TypeString, FromContext: true},
				{Name: "days", Type: core.TypeInteger, Description: "Horizon in days, 1 to 365. Defaults to 30."},
			},
		},
		Handler: f.forecastRecurring,
	})
}

func (f *Financial) addRecurring(_ context.Context, args map[string]any) (map[string]any, error) {
	amount := argNumber(args, "amount")
	if amount <= 0 {
		return nil, Validationf("amount must be positive, got %v", amount)
	}
	frequency := argString(args, "frequency")
	if !store.ValidFrequency(frequency) {
		return nil, Validationf("frequency must be one of daily, weekly, biweekly, monthly or yearly, got %q", frequency)
	}
	startDate := argString(args, "start_date")
	endDate := argString(args, "end_date")
	if endDate != "" && endDate < startDate {
		return nil, Validationf("end_date %s is before start_date %s", endDate, startDate)
	}

	rule := &store.RecurringRule{
		UserID:      argString(args, ParamUserID),
		Amount:      amount,
		Category:    argString(args, "category"),
		Description: argString(args, "description"),
		Frequency:   frequency,
		StartDate:   startDate,
		EndDate:     endDate,
	}
	if err := f.store.CreateRecurringRule(rule); err != nil {
		return nil, err
	}

	return map[string]any{
		"rule":    rule,
		"message": fmt.Sprintf("Recurring %s expense of %.2f created, first occurrence %s.", frequency, amount, rule.NextOccurrence),
	}, nil
}

func (f *Financial) viewRecurring(_ context.Context, args map[string]any) (map[string]any, error) {
	userID := argString(args, ParamUserID)
	includeInactive := argBool(args, "include_inactive")

	rules, err := f.store.ListRecurringRules(userID, !includeInactive)
	if err != nil {
		return nil, err
	}

	var monthlyTotal float64
	for _, r := range rules {
		if !r.IsActive {
			continue
		}
		switch r.Frequency {
		case store.FreqDaily:
			monthlyTotal += r.Amount * 30
		case store.FreqWeekly:
			monthlyTotal += r.Amount * 4.3
		case store.FreqBiweekly:
			monthlyTotal += r.Amount * 2.15
		case store.FreqYearly:
			monthlyTotal += r.Amount / 12
		default:
			monthlyTotal += r.Amount
		}
	}

	return map[string]any{
		"rules":                rules,
		"count":                len(rules),
		"approx_monthly_total": monthlyTotal,
	}, nil
}

// mustGetRule resolves a rule scoped to the user, turning absence into a
// validation error rather than a store failure.
func (f *Financial) mustGetRule(userID string, args map[string]any) (*store.RecurringRule, error) {
	id, ok := argInteger(args, "rule_id")
	if !ok {
		return nil, Validationf("rule_id is required")
	}
	rule, err := f.store.GetRecurringRule(userID, id)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, Validationf("recurring expense %d not found", id)
	}
	return rule, nil
}

func (f *Financial) editRecurring(_ context.Context, args map[string]any) (map[string]any, error) {
	rule, err := f.mustGetRule(argString(args, ParamUserID), args)
	if err != nil {
		return nil, err
	}

	if _, present := args["amount"]; present {
		amount := argNumber(args, "amount")
		if amount <= 0 {
			return nil, Validationf("amount must be positive, got %v", amount)
		}
		rule.Amount = amount
	}
	if _, present := args["category"]; present {
		rule.Category = argString(args, "category")
	}
	if _, present := args["description"]; present {
		rule.Description = argString(args, "description")
	}
	if _, present := args["frequency"]; present {
		frequency := argString(args, "frequency")
		if !store.ValidFrequency(frequency) {
			return nil, Validationf("frequency must be one of daily, weekly, biweekly, monthly or yearly, got %q", frequency)
		}
		rule.Frequency = frequency
	}
	if _, present := args["end_date"]; present {
		endDate := argString(args, "end_date")
		if endDate != "" && endDate < rule.StartDate {
			return nil, Validationf("end_date %s is before start_date %s", endDate, rule.StartDate)
		}
		rule.EndDate = endDate
	}

	if err := f.store.UpdateRecurringRule(rule); err != nil {
		return nil, err
	}
	return map[string]any{
		"rule":    rule,
		"message": fmt.Sprintf("Recurring expense %d updated.", rule.ID),
	}, nil
}

func (f *Financial) setRecurringActive(active bool) Handler {
	return func(_ context.Context, args map[string]any) (map[string]any, error) {
		userID := argString(args, ParamUserID)
		rule, err := f.mustGetRule(userID, args)
		if err != nil {
			return nil, err
		}
		if err := f.store.SetRecurringRuleActive(userID, rule.ID, active); err != nil {
			return nil, err
		}
		verb := "paused"
		if active {
			verb = "resumed"
		}
		return map[string]any{
			"rule_id": rule.ID,
			"active":  active,
			"message": fmt.Sprintf("Recurring expense %d %s.", rule.ID, verb),
		}, nil
	}
}

func (f *Financial) deleteRecurring(_ context.Context, args map[string]any) (map[string]any, error) {
	userID := argString(args, ParamUserID)
	rule, err := f.mustGetRule(userID, args)
	if err != nil {
		return nil, err
	}
	if err := f.store.DeleteRecurringRule(userID, rule.ID); err != nil {
		return nil, err
	}
	return map[string]any{
		"rule_id": rule.ID,
		"message": fmt.Sprintf("Recurring expense %d deleted.", rule.ID),
	}, nil
}

// forecastRecurring walks each active rule's occurrence dates through the
// horizon using the same stepping function the scheduler materializes with.
func (f *Financial) forecastRecurring(_ context.Context, args map[string]any) (map[string]any, error) {
	userID := argString(args, ParamUserID)

	days := int64(forecastDefaultDays)
	if v, ok := argInteger(args, "days"); ok {
		days = v
	}
	if days < 1 || days > forecastMaxDays {
		return nil, Validationf("days must be between 1 and %d, got %d", forecastMaxDays, days)
	}

	rules, err := f.store.ListRecurringRules(userID, true)
	if err != nil {
		return nil, err
	}

	today, _ := store.PeriodBounds(store.PeriodDay, f.now())
	horizon := today.AddDate(0, 0, int(days))

	var total float64
	occurrences := make([]map[string]any, 0)
	for _, r := range rules {
		next, err := store.ParseDate(r.NextOccurrence)
		if err != nil {
			return nil, err
		}
		for !next.After(horizon) {
			if next.Before(today) {
				next = store.NextOccurrenceAfter(r.Frequency, next)
				continue
			}
			date := store.FormatDate(next)
			if r.EndDate != "" && date > r.EndDate {
				break
			}
			occurrences = append(occurrences, map[string]any{
				"date":        date,
				"amount":      r.Amount,
				"category":    r.Category,
				"description": r.Description,
				"rule_id":     r.ID,
			})
			total += r.Amount
			next = store.NextOccurrenceAfter(r.Frequency, next)
		}
	}

	return map[string]any{
		"horizon_days": days,
		"through":      store.FormatDate(horizon),
		"occurrences":  occurrences,
		"count":        len(occurrences),
		"total":        total,
	}, nil
}
