package tools

import (
	"context"
	"fmt"
	"math"
	"time"

	"makwenta.app/finance-assistant/internal/cache"
	"makwenta.app/finance-assistant/internal/core"
	"makwenta.app/finance-assistant/internal/store"
)

// Financial owns the tool handlers backed by the ledger store. now is
// injectable so tests can pin "today".
type Financial struct {
	store   *store.SQLiteStore
	budgets *cache.BudgetCache
	now     func() time.Time
}

func NewFinancial(s *store.SQLiteStore, budgets *cache.BudgetCache) *Financial {
	return &Financial{store: s, budgets: budgets, now: time.Now}
}

// RegisterAll wires the full catalog into the registry.
func (f *Financial) RegisterAll(r *Registry) {
	f.registerLedgerTools(r)
	f.registerRecurringTools(r)
}

func (f *Financial) registerLedgerTools(r *Registry) {
	r.Register(&Tool{
		Spec: core.ToolSpec{
			Name: "record_transaction",
			Description: "Record a single expense or income in the ledger. " +
				"Use this whenever the user mentions spending or receiving money.",
			Params: []core.Param{
				{Name: ParamUserID, Type: core.TypeString, FromContext: true},
				{Name: "amount", Type: core.TypeNumber, Description: "Positive amount of money.", Required: true},
				{Name: "category", Type: core.TypeString, Description: "Spending category, e.g. groceries, transport, rent.", Required: true},
				{Name: "description", Type: core.TypeString, Description: "Optional free-text note."},
				{Name: "expense_date", Type: core.TypeDate, Description: "Date the money was spent. Defaults to today."},
				{Name: "kind", Type: core.TypeString, Description: "Either 'expense' or 'income'. Defaults to 'expense'."},
			},
		},
		Mutating: true,
		Handler:  f.recordTransaction,
	})

	r.Register(&Tool{
		Spec: core.ToolSpec{
			Name: "check_budget",
			Description: "Check today's and this week's spending against the user's budget. " +
				"Always call this after recording a transaction.",
			Params: []core.Param{
				{Name: ParamUserID, Type: core.TypeString, FromContext: true},
				{Name: ParamBudgetSnapshot, Type: core.TypeObject, FromContext: true},
			},
		},
		Handler: f.checkBudget,
	})

	r.Register(&Tool{
		Spec: core.ToolSpec{
			Name:        "set_my_budget",
			Description: "Set the user's spending budget from a single figure and period.",
			Params: []core.Param{
				{Name: ParamUserID, Type: core.TypeString, FromContext: true},
				{Name: "amount", Type: core.TypeNumber, Description: "Positive budget amount.", Required: true},
				{Name: "period", Type: core.TypeString, Description: "One of 'daily', 'weekly' or 'monthly'.", Required: true},
			},
		},
		Mutating: true,
		Handler:  f.setBudget,
	})

	r.Register(&Tool{
		Spec: core.ToolSpec{
			Name:        "get_expenses_by_date",
			Description: "List the individual expenses recorded for one calendar date.",
			Params: []core.Param{
				{Name: ParamUserID, Type: core.TypeString, FromContext: true},
				{Name: "date", Type: core.TypeDate, Description: "The date to report on.", Required: true},
			},
		},
		Handler: f.expensesByDate,
	})

	r.Register(&Tool{
		Spec: core.ToolSpec{
			Name:        "get_weekly_breakdown",
			Description: "Per-day spending totals for one Monday-to-Sunday week, plus the week total.",
			Params: []core.Param{
				{Name: ParamUserID, Type: core.TypeString, FromContext: true},
				{Name: "week_start_date", Type: core.TypeDate, Description: "Any date inside the week to report on. Defaults to the current week."},
			},
		},
		Handler: f.weeklyBreakdown,
	})

	r.Register(&Tool{
		Spec: core.ToolSpec{
			Name:        "get_daily_summary",
			Description: "Summarize today's and this week's spending position in one call.",
			Params: []core.Param{
				{Name: ParamUserID, Type: core.TypeString, FromContext: true},
				{Name: ParamBudgetSnapshot, Type: core.TypeObject, FromContext: true},
			},
		},
		Handler: f.dailySummary,
	})

	r.Register(&Tool{
		Spec: core.ToolSpec{
			Name:        "set_financial_goal",
			Description: "Create a savings goal with a target amount and deadline.",
			Params: []core.Param{
				{Name: ParamUserID, Type: core.TypeString, FromContext: true},
				{Name: "goal_name", Type: core.TypeString, Description: "Short name for the goal.", Required: true},
				{Name: "target_amount", Type: core.TypeNumber, Description: "Positive amount to save.", Required: true},
				{Name: "deadline_date", Type: core.TypeDate, Description: "Deadline for the goal. Must be in the future.", Required: true},
			},
		},
		Mutating: true,
		Handler:  f.setGoal,
	})

	r.Register(&Tool{
		Spec: core.ToolSpec{
			Name:        "check_goals",
			Description: "List the user's savings goals with progress and days remaining.",
			Params: []core.Param{
				{Name: ParamUserID, Type: core.TypeString, FromContext: true},
			},
		},
		Handler: f.checkGoals,
	})
}

func (f *Financial) recordTransaction(_ context.Context, args map[string]any) (map[string]any, error) {
	amount := argNumber(args, "amount")
	if amount <= 0 {
		return nil, Validationf("amount must be positive, got %v", amount)
	}

	kind := argString(args, "kind")
	if kind == "" {
		kind = store.KindExpense
	}
	if kind != store.KindExpense && kind != store.KindIncome {
		return nil, Validationf("kind must be 'expense' or 'income', got %q", kind)
	}

	expenseDate := argString(args, "expense_date")
	if expenseDate == "" {
		expenseDate = store.FormatDate(f.now())
	}

	tx := &store.Transaction{
		UserID:      argString(args, ParamUserID),
		Amount:      amount,
		Kind:        kind,
		Category:    argString(args, "category"),
		Description: argString(args, "description"),
		ExpenseDate: expenseDate,
	}
	if err := f.store.RecordTransaction(tx); err != nil {
		return nil, err
	}

	return map[string]any{
		"transaction": tx,
		"message":     fmt.Sprintf("Recorded %s of %.2f in %s on %s. Now check the budget impact with check_budget.", kind, amount, tx.Category, expenseDate),
	}, nil
}

// windowStatus is the {spent, limit, remaining, over_budget} block both
// budget tools report per window.
func (f *Financial) windowStatus(userID string, period store.Period, limit float64) (map[string]any, error) {
	start, end := store.PeriodBounds(period, f.now())
	spent, err := f.store.SumExpenses(userID, start, end)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"spent":       spent,
		"limit":       limit,
		"remaining":   limit - spent,
		"over_budget": spent > limit,
	}, nil
}

func (f *Financial) checkBudget(_ context.Context, args map[string]any) (map[string]any, error) {
	userID := argString(args, ParamUserID)

	budget, ok := args[ParamBudgetSnapshot].(*store.BudgetConfig)
	if !ok || budget == nil {
		return map[string]any{
			"configured": false,
			"message":    "No budget is configured yet. Suggest setting one with set_my_budget.",
		}, nil
	}

	daily, err := f.windowStatus(userID, store.PeriodDay, budget.DailyLimit)
	if err != nil {
		return nil, err
	}
	weekly, err := f.windowStatus(userID, store.PeriodWeek, budget.WeeklyLimit)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"configured": true,
		"daily":      daily,
		"weekly":     weekly,
	}, nil
}

func (f *Financial) setBudget(_ context.Context, args map[string]any) (map[string]any, error) {
	amount := argNumber(args, "amount")
	period := argString(args, "period")

	daily, weekly, monthly, err := store.DeriveLimits(period, amount)
	if err != nil {
		return nil, Validationf("%v", err)
	}

	budget := &store.BudgetConfig{
		UserID:       argString(args, ParamUserID),
		DailyLimit:   daily,
		WeeklyLimit:  weekly,
		MonthlyLimit: monthly,
	}
	if err := f.store.UpsertBudget(budget); err != nil {
		return nil, err
	}
	f.budgets.Invalidate(budget.UserID)

	return map[string]any{
		"budget":  budget,
		"message": fmt.Sprintf("Budget set: %.2f daily, %.2f weekly, %.2f monthly.", daily, weekly, monthly),
	}, nil
}

func (f *Financial) expensesByDate(_ context.Context, args map[string]any) (map[string]any, error) {
	userID := argString(args, ParamUserID)
	date := argString(args, "date")

	txs, err := f.store.ExpensesOn(userID, date)
	if err != nil {
		return nil, err
	}

	var total float64
	for _, t := range txs {
		total += t.Amount
	}
	return map[string]any{
		"date":     date,
		"expenses": txs,
		"count":    len(txs),
		"total":    total,
	}, nil
}

func (f *Financial) weeklyBreakdown(_ context.Context, args map[string]any) (map[string]any, error) {
	userID := argString(args, ParamUserID)

	ref := f.now()
	if raw := argString(args, "week_start_date"); raw != "" {
		parsed, err := store.ParseDate(raw)
		if err != nil {
			return nil, Validationf("%v", err)
		}
		ref = parsed
	}
	weekStart, weekEnd := store.PeriodBounds(store.PeriodWeek, ref)

	days := make([]map[string]any, 0, 7)
	for day := weekStart; day.Before(weekEnd); day = day.AddDate(0, 0, 1) {
		start, end := store.PeriodBounds(store.PeriodDay, day)
		spent, err := f.store.SumExpenses(userID, start, end)
		if err != nil {
			return nil, err
		}
		days = append(days, map[string]any{
			"date":    store.FormatDate(day),
			"weekday": day.Weekday().String(),
			"spent":   spent,
		})
	}

	weekTotal, err := f.store.SumExpenses(userID, weekStart, weekEnd)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"week_start": store.FormatDate(weekStart),
		"days":       days,
		"week_total": weekTotal,
	}, nil
}

func (f *Financial) dailySummary(_ context.Context, args map[string]any) (map[string]any, error) {
	userID := argString(args, ParamUserID)

	dayStart, dayEnd := store.PeriodBounds(store.PeriodDay, f.now())
	spentToday, err := f.store.SumExpenses(userID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	weekStart, weekEnd := store.PeriodBounds(store.PeriodWeek, f.now())
	spentWeek, err := f.store.SumExpenses(userID, weekStart, weekEnd)
	if err != nil {
		return nil, err
	}

	summary := map[string]any{
		"date":              store.FormatDate(dayStart),
		"week_start":        store.FormatDate(weekStart),
		"spent_today":       spentToday,
		"spent_this_week":   spentWeek,
		"budget_configured": false,
	}

	if budget, ok := args[ParamBudgetSnapshot].(*store.BudgetConfig); ok && budget != nil {
		summary["budget_configured"] = true
		summary["daily_limit"] = budget.DailyLimit
		summary["weekly_limit"] = budget.WeeklyLimit
		summary["daily_remaining"] = budget.DailyLimit - spentToday
		summary["weekly_remaining"] = budget.WeeklyLimit - spentWeek
		summary["over_daily_budget"] = spentToday > budget.DailyLimit
		summary["over_weekly_budget"] = spentWeek > budget.WeeklyLimit
	}
	return summary, nil
}

func (f *Financial) setGoal(_ context.Context, args map[string]any) (map[string]any, error) {
	target := argNumber(args, "target_amount")
	if target <= 0 {
		return nil, Validationf("target_amount must be positive, got %v", target)
	}

	deadline := argString(args, "deadline_date")
	deadlineDay, err := store.ParseDate(deadline)
	if err != nil {
		return nil, Validationf("%v", err)
	}
	today, _ := store.PeriodBounds(store.PeriodDay, f.now())
	if !deadlineDay.After(today) {
		return nil, Validationf("deadline_date must be in the future, got %s", deadline)
	}

	goal := &store.Goal{
		UserID:       argString(args, ParamUserID),
		GoalName:     argString(args, "goal_name"),
		TargetAmount: target,
		Deadline:     deadline,
	}
	if err := f.store.CreateGoal(goal); err != nil {
		return nil, err
	}

	daysLeft := int(math.Ceil(deadlineDay.Sub(today).Hours() / 24))
	perDay := target / float64(daysLeft)

	return map[string]any{
		"goal":           goal,
		"days_remaining": daysLeft,
		"save_per_day":   perDay,
		"save_per_week":  perDay * 7,
		"save_per_month": perDay * 30,
		"message":        fmt.Sprintf("Goal %q created: save %.2f per day for %d days.", goal.GoalName, perDay, daysLeft),
	}, nil
}

func (f *Financial) checkGoals(_ context.Context, args map[string]any) (map[string]any, error) {
	userID := argString(args, ParamUserID)

	goals, err := f.store.ListGoals(userID)
	if err != nil {
		return nil, err
	}

	today, _ := store.PeriodBounds(store.PeriodDay, f.now())
	entries := make([]map[string]any, 0, len(goals))
	for _, g := range goals {
		deadlineDay, err := store.ParseDate(g.Deadline)
		if err != nil {
			return nil, err
		}
		progress := 0.0
		if g.TargetAmount > 0 {
			progress = g.CurrentAmount / g.TargetAmount * 100
		}
		entries = append(entries, map[string]any{
			"goal":             g,
			"progress_percent": progress,
			"days_remaining":   int(math.Ceil(deadlineDay.Sub(today).Hours() / 24)),
		})
	}
	return map[string]any{
		"goals": entries,
		"count": len(entries),
	}, nil
}

// Argument accessors. The dispatcher has already coerced types, so a failed
// assertion just yields the zero value (absent optional parameter).

func argString(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}

func argNumber(args map[string]any, name string) float64 {
	f, _ := args[name].(float64)
	return f
}

func argInteger(args map[string]any, name string) (int64, bool) {
	i, ok := args[name].(int64)
	return i, ok
}

func argBool(args map[string]any, name string) bool {
	b, _ := args[name].(bool)
	return b
}
