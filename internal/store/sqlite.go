package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        external_user_id TEXT UNIQUE NOT NULL,
        password_hash TEXT NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS transactions (
        id TEXT PRIMARY KEY, -- UUID
        user_id TEXT NOT NULL,
        amount REAL NOT NULL,
        kind TEXT NOT NULL DEFAULT 'expense' CHECK (kind IN ('expense', 'income')),
        category TEXT NOT NULL,
        description TEXT,
        expense_date TEXT NOT NULL, -- YYYY-MM-DD, the economic date
        recorded_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE INDEX IF NOT EXISTS idx_transactions_user_date
        ON transactions(user_id, expense_date);

    CREATE TABLE IF NOT EXISTS budgets (
        user_id TEXT PRIMARY KEY,
        daily_limit REAL NOT NULL,
        weekly_limit REAL NOT NULL,
        monthly_limit REAL NOT NULL,
        updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS goals (
        id TEXT PRIMARY KEY, -- UUID
        user_id TEXT NOT NULL,
        goal_name TEXT NOT NULL,
        target_amount REAL NOT NULL,
        current_amount REAL NOT NULL DEFAULT 0,
        deadline TEXT NOT NULL -- YYYY-MM-DD
    );

    CREATE TABLE IF NOT EXISTS recurring_rules (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        user_id TEXT NOT NULL,
        amount REAL NOT NULL,
        category TEXT NOT NULL,
        description TEXT,
        frequency TEXT NOT NULL CHECK (frequency IN ('daily', 'weekly', 'biweekly', 'monthly', 'yearly')),
        start_date TEXT NOT NULL,
        end_date TEXT, -- NULL = indefinite
        next_occurrence TEXT NOT NULL,
        last_processed TEXT,
        is_active INTEGER NOT NULL DEFAULT 1
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

// User methods
func (s *SQLiteStore) GetUserByExternalID(externalUserID string) (*User, error) {
	var user User
	err := s.db.QueryRow("SELECT id, external_user_id, password_hash, created_at FROM users WHERE external_user_id = ?", externalUserID).Scan(&user.ID, &user.ExternalUserID, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

func (s *SQLiteStore) CreateUser(externalUserID, passwordHash string) (*User, error) {
	res, err := s.db.Exec("INSERT INTO users (external_user_id, password_hash) VALUES (?, ?)", externalUserID, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.getUserByID(id)
}

func (s *SQLiteStore) getUserByID(id int64) (*User, error) {
	var user User
	err := s.db.QueryRow("SELECT id, external_user_id, password_hash, created_at FROM users WHERE id = ?", id).Scan(&user.ID, &user.ExternalUserID, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return &user, nil
}

// Transaction methods

// RecordTransaction inserts a single ledger entry. ID and RecordedAt are
// assigned here; the expense date is taken as given (it may be backdated).
func (s *SQLiteStore) RecordTransaction(t *Transaction) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Kind == "" {
		t.Kind = KindExpense
	}
	if _, err := ParseDate(t.ExpenseDate); err != nil {
		return err
	}
	t.RecordedAt = time.Now()

	stmt, err := s.db.Prepare("INSERT INTO transactions (id, user_id, amount, kind, category, description, expense_date, recorded_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare transaction insert: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.Exec(t.ID, t.UserID, t.Amount, t.Kind, t.Category, t.Description, t.ExpenseDate, t.RecordedAt)
	if err != nil {
		return fmt.Errorf("failed to execute transaction insert: %w", err)
	}
	return nil
}

// SumExpenses sums expense amounts for the user over expense dates in
// [start, end). It is one of the two primitives every reporting query is
// built on; callers must obtain start/end from PeriodBounds so that all
// windows agree. recorded_at deliberately never appears in the query.
func (s *SQLiteStore) SumExpenses(userID string, start, end time.Time) (float64, error) {
	var total sql.NullFloat64
	err := s.db.QueryRow(
		"SELECT SUM(amount) FROM transactions WHERE user_id = ? AND kind = 'expense' AND expense_date >= ? AND expense_date < ?",
		userID, FormatDate(start), FormatDate(end),
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum expenses: %w", err)
	}
	if !total.Valid {
		return 0, nil // no matching rows
	}
	return total.Float64, nil
}

// ExpensesOn lists the expense entries attributed to one calendar date.
func (s *SQLiteStore) ExpensesOn(userID string, date string) ([]Transaction, error) {
	if _, err := ParseDate(date); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(
		"SELECT id, user_id, amount, kind, category, description, expense_date, recorded_at FROM transactions WHERE user_id = ? AND kind = 'expense' AND expense_date = ? ORDER BY recorded_at ASC",
		userID, date,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	var txs []Transaction
	for rows.Next() {
		var t Transaction
		var desc sql.NullString
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.Kind, &t.Category, &desc, &t.ExpenseDate, &t.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		t.Description = desc.String
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// Budget methods

// UpsertBudget replaces the user's single budget row.
func (s *SQLiteStore) UpsertBudget(b *BudgetConfig) error {
	b.UpdatedAt = time.Now()
	_, err := s.db.Exec(`
        INSERT INTO budgets (user_id, daily_limit, weekly_limit, monthly_limit, updated_at)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT (user_id) DO UPDATE SET
            daily_limit = excluded.daily_limit,
            weekly_limit = excluded.weekly_limit,
            monthly_limit = excluded.monthly_limit,
            updated_at = excluded.updated_at`,
		b.UserID, b.DailyLimit, b.WeeklyLimit, b.MonthlyLimit, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert budget: %w", err)
	}
	return nil
}

// GetBudget returns the user's budget config, or nil if none is set.
func (s *SQLiteStore) GetBudget(userID string) (*BudgetConfig, error) {
	var b BudgetConfig
	err := s.db.QueryRow(
		"SELECT user_id, daily_limit, weekly_limit, monthly_limit, updated_at FROM budgets WHERE user_id = ?",
		userID,
	).Scan(&b.UserID, &b.DailyLimit, &b.WeeklyLimit, &b.MonthlyLimit, &b.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query budget: %w", err)
	}
	return &b, nil
}

// Goal methods
func (s *SQLiteStore) CreateGoal(g *Goal) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if _, err := ParseDate(g.Deadline); err != nil {
		return err
	}
	_, err := s.db.Exec(
		"INSERT INTO goals (id, user_id, goal_name, target_amount, current_amount, deadline) VALUES (?, ?, ?, ?, ?, ?)",
		g.ID, g.UserID, g.GoalName, g.TargetAmount, g.CurrentAmount, g.Deadline,
	)
	if err != nil {
		return fmt.Errorf("failed to insert goal: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListGoals(userID string) ([]Goal, error) {
	rows, err := s.db.Query(
		"SELECT id, user_id, goal_name, target_amount, current_amount, deadline FROM goals WHERE user_id = ? ORDER BY deadline ASC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query goals: %w", err)
	}
	defer rows.Close()

	var goals []Goal
	for rows.Next() {
		var g Goal
		if err := rows.Scan(&g.ID, &g.UserID, &g.GoalName, &g.TargetAmount, &g.CurrentAmount, &g.Deadline); err != nil {
			return nil, fmt.Errorf("failed to scan goal row: %w", err)
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

// Recurring rule methods
func (s *SQLiteStore) CreateRecurringRule(r *RecurringRule) error {
	if !ValidFrequency(r.Frequency) {
		return fmt.Errorf("invalid frequency %q", r.Frequency)
	}
	if _, err := ParseDate(r.StartDate); err != nil {
		return err
	}
	if r.NextOccurrence == "" {
		r.NextOccurrence = r.StartDate
	}
	endDate := sql.NullString{String: r.EndDate, Valid: r.EndDate != ""}

	res, err := s.db.Exec(
		"INSERT INTO recurring_rules (user_id, amount, category, description, frequency, start_date, end_date, next_occurrence, is_active) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)",
		r.UserID, r.Amount, r.Category, r.Description, r.Frequency, r.StartDate, endDate, r.NextOccurrence,
	)
	if err != nil {
		return fmt.Errorf("failed to insert recurring rule: %w", err)
	}
	r.ID, _ = res.LastInsertId()
	r.IsActive = true
	return nil
}

const recurringColumns = "id, user_id, amount, category, description, frequency, start_date, end_date, next_occurrence, last_processed, is_active"

func (s *SQLiteStore) scanRecurringRows(rows *sql.Rows) ([]RecurringRule, error) {
	defer rows.Close()
	var rules []RecurringRule
	for rows.Next() {
		var r RecurringRule
		var desc, endDate, lastProcessed sql.NullString
		if err := rows.Scan(&r.ID, &r.UserID, &r.Amount, &r.Category, &desc, &r.Frequency, &r.StartDate, &endDate, &r.NextOccurrence, &lastProcessed, &r.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan recurring rule row: %w", err)
		}
		r.Description = desc.String
		r.EndDate = endDate.String
		r.LastProcessed = lastProcessed.String
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

// ListRecurringRules lists the user's rules, optionally restricted to
// active ones.
func (s *SQLiteStore) ListRecurringRules(userID string, activeOnly bool) ([]RecurringRule, error) {
	query := "SELECT " + recurringColumns + " FROM recurring_rules WHERE user_id = ?"
	if activeOnly {
		query += " AND is_active = 1"
	}
	query += " ORDER BY id ASC"

	rows, err := s.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query recurring rules: %w", err)
	}
	return s.scanRecurringRows(rows)
}

// GetRecurringRule fetches one rule, scoped to the owning user. Returns nil
// when the rule does not exist or belongs to someone else.
func (s *SQLiteStore) GetRecurringRule(userID string, id int64) (*RecurringRule, error) {
	rows, err := s.db.Query("SELECT "+recurringColumns+" FROM recurring_rules WHERE user_id = ? AND id = ?", userID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query recurring rule: %w", err)
	}
	rules, err := s.scanRecurringRows(rows)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, nil
	}
	return &rules[0], nil
}

// UpdateRecurringRule overwrites the mutable fields of a rule.
func (s *SQLiteStore) UpdateRecurringRule(r *RecurringRule) error {
	endDate := sql.NullString{String: r.EndDate, Valid: r.EndDate != ""}
	lastProcessed := sql.NullString{String: r.LastProcessed, Valid: r.LastProcessed != ""}

	res, err := s.db.Exec(
		"UPDATE recurring_rules SET amount = ?, category = ?, description = ?, frequency = ?, end_date = ?, next_occurrence = ?, last_processed = ?, is_active = ? WHERE id = ? AND user_id = ?",
		r.Amount, r.Category, r.Description, r.Frequency, endDate, r.NextOccurrence, lastProcessed, r.IsActive, r.ID, r.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update recurring rule: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("recurring rule %d not found for user", r.ID)
	}
	return nil
}

// SetRecurringRuleActive pauses or resumes a rule.
func (s *SQLiteStore) SetRecurringRuleActive(userID string, id int64, active bool) error {
	res, err := s.db.Exec("UPDATE recurring_rules SET is_active = ? WHERE id = ? AND user_id = ?", active, id, userID)
	if err != nil {
		return fmt.Errorf("failed to toggle recurring rule: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("recurring rule %d not found for user", id)
	}
	return nil
}

func (s *SQLiteStore) DeleteRecurringRule(userID string, id int64) error {
	res, err := s.db.Exec("DELETE FROM recurring_rules WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete recurring rule: %w", err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("recurring rule %d not found for user", id)
	}
	return nil
}

// DueRecurringRules returns the active rules whose next occurrence is on or
// before the given date, across all users.
func (s *SQLiteStore) DueRecurringRules(asOf time.Time) ([]RecurringRule, error) {
	rows, err := s.db.Query(
		"SELECT "+recurringColumns+" FROM recurring_rules WHERE is_active = 1 AND next_occurrence <= ? ORDER BY id ASC",
		FormatDate(asOf),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query due recurring rules: %w", err)
	}
	return s.scanRecurringRows(rows)
}
