package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"ledgerchat/internal/core"
)

// DateLayout is how expense and budget dates are stored in SQLite.
const DateLayout = "2006-01-02"

var (
	ErrNotFound   = errors.New("not found")
	ErrDuplicate  = errors.New("already exists")
	ErrOTPInvalid = errors.New("otp invalid or expired")
)

// Repository provides persistence over a single SQLite database.
type Repository struct {
	db *sql.DB
}

// Open opens the database, applies pragmas and migrations, and returns
// a ready Repository.
func Open(dbPath string) (*Repository, error) {
	if err := RunMigrations(dbPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite serializes writes; a single connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// --- users ---

func (r *Repository) CreateUser(ctx context.Context, u core.User) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, email, hashed_password, is_verified) VALUES (?, ?, ?, ?)`,
		u.Username, u.Email, u.HashedPassword, boolToInt(u.IsVerified))
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("create user %s: %w", u.Username, ErrDuplicate)
		}
		return 0, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, username, email, hashed_password, is_verified, created_at
		 FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *Repository) GetUserByID(ctx context.Context, id int64) (core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, username, email, hashed_password, is_verified, created_at
		 FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *Repository) MarkUserVerified(ctx context.Context, email string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET is_verified = 1 WHERE email = ?`, email)
	if err != nil {
		return fmt.Errorf("mark user verified: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark user verified: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("mark user verified %s: %w", email, ErrNotFound)
	}
	return nil
}

func scanUser(row *sql.Row) (core.User, error) {
	var (
		u        core.User
		verified int
		created  string
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.HashedPassword, &verified, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("scan user: %w", err)
	}
	u.IsVerified = verified != 0
	u.CreatedAt = parseTimestamp(created)
	return u, nil
}

// --- email OTPs ---

func (r *Repository) CreateOTP(ctx context.Context, id, email, code string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO email_otps (id, email, code, expires_at) VALUES (?, ?, ?, ?)`,
		id, email, code, expiresAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("create otp: %w", err)
	}
	return nil
}

// ConsumeOTP marks the OTP used when the code matches, the row is unused
// and has not expired. Each code is single-use.
func (r *Repository) ConsumeOTP(ctx context.Context, email, code string, now time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE email_otps SET used = 1
		 WHERE email = ? AND code = ? AND used = 0 AND expires_at > ?`,
		email, code, now.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("consume otp: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("consume otp: %w", err)
	}
	if n == 0 {
		return ErrOTPInvalid
	}
	return nil
}

// --- expenses ---

func (r *Repository) CreateExpense(ctx context.Context, e core.Expense) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (user_id, amount_cents, description, category, date, receipt_id, receipt_group_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, e.Amount.Cents, e.Description, e.Category, e.Date.Format(DateLayout),
		nullString(e.ReceiptID), nullString(e.ReceiptGroupID))
	if err != nil {
		return 0, fmt.Errorf("create expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create expense: %w", err)
	}
	return id, nil
}

func (r *Repository) GetExpense(ctx context.Context, userID, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, amount_cents, description, category, date, receipt_id, receipt_group_id, created_at
		 FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	e, err := scanExpenseRow(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, err)
	}
	return e, nil
}

func (r *Repository) ListExpenses(ctx context.Context, userID int64, limit, offset int) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, amount_cents, description, category, date, receipt_id, receipt_group_id, created_at
		 FROM expenses WHERE user_id = ?
		 ORDER BY date DESC, id DESC LIMIT ? OFFSET ?`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return collectExpenses(rows)
}

func (r *Repository) UpdateExpense(ctx context.Context, e core.Expense) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET amount_cents = ?, description = ?, category = ?, date = ?
		 WHERE id = ? AND user_id = ?`,
		e.Amount.Cents, e.Description, e.Category, e.Date.Format(DateLayout), e.ID, e.UserID)
	if err != nil {
		return fmt.Errorf("update expense %d: %w", e.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update expense %d: %w", e.ID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteExpense(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ExpensesInRange returns expenses whose date falls in [start, end],
// most recent first.
func (r *Repository) ExpensesInRange(ctx context.Context, userID int64, start, end time.Time) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, amount_cents, description, category, date, receipt_id, receipt_group_id, created_at
		 FROM expenses WHERE user_id = ? AND date >= ? AND date <= ?
		 ORDER BY date DESC, id DESC`,
		userID, start.Format(DateLayout), end.Format(DateLayout))
	if err != nil {
		return nil, fmt.Errorf("expenses in range: %w", err)
	}
	return collectExpenses(rows)
}

// SearchExpenses matches the keyword against description and category,
// case-insensitively, within [start, end].
func (r *Repository) SearchExpenses(ctx context.Context, userID int64, keyword string, start, end time.Time) ([]core.Expense, error) {
	pattern := "%" + strings.ToLower(keyword) + "%"
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, amount_cents, description, category, date, receipt_id, receipt_group_id, created_at
		 FROM expenses
		 WHERE user_id = ? AND date >= ? AND date <= ?
		   AND (LOWER(description) LIKE ? OR LOWER(category) LIKE ?)
		 ORDER BY date DESC, id DESC`,
		userID, start.Format(DateLayout), end.Format(DateLayout), pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("search expenses: %w", err)
	}
	return collectExpenses(rows)
}

func (r *Repository) SumExpenses(ctx context.Context, userID int64, start, end time.Time) (core.Money, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM expenses
		 WHERE user_id = ? AND date >= ? AND date <= ?`,
		userID, start.Format(DateLayout), end.Format(DateLayout)).Scan(&cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum expenses: %w", err)
	}
	return core.Money{Cents: cents}, nil
}

func (r *Repository) SumCategory(ctx context.Context, userID int64, category string, start, end time.Time) (core.Money, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM expenses
		 WHERE user_id = ? AND LOWER(category) = LOWER(?) AND date >= ? AND date <= ?`,
		userID, category, start.Format(DateLayout), end.Format(DateLayout)).Scan(&cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum category %s: %w", category, err)
	}
	return core.Money{Cents: cents}, nil
}

func (r *Repository) TopCategories(ctx context.Context, userID int64, start, end time.Time, limit int) ([]core.CategoryAmount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, SUM(amount_cents) AS total FROM expenses
		 WHERE user_id = ? AND date >= ? AND date <= ?
		 GROUP BY category ORDER BY total DESC LIMIT ?`,
		userID, start.Format(DateLayout), end.Format(DateLayout), limit)
	if err != nil {
		return nil, fmt.Errorf("top categories: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryAmount
	for rows.Next() {
		var (
			ca    core.CategoryAmount
			cents int64
		)
		if err := rows.Scan(&ca.Name, &cents); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		ca.Amount = core.Money{Cents: cents}
		out = append(out, ca)
	}
	return out, rows.Err()
}

// MonthlyTotals aggregates spending per calendar month over the last
// `months` months, oldest first.
func (r *Repository) MonthlyTotals(ctx context.Context, userID int64, since time.Time) ([]core.MonthTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT CAST(strftime('%Y', date) AS INTEGER),
		        CAST(strftime('%m', date) AS INTEGER),
		        SUM(amount_cents)
		 FROM expenses WHERE user_id = ? AND date >= ?
		 GROUP BY strftime('%Y-%m', date)
		 ORDER BY strftime('%Y-%m', date)`,
		userID, since.Format(DateLayout))
	if err != nil {
		return nil, fmt.Errorf("monthly totals: %w", err)
	}
	defer rows.Close()

	var out []core.MonthTotal
	for rows.Next() {
		var (
			mt    core.MonthTotal
			cents int64
		)
		if err := rows.Scan(&mt.Year, &mt.Month, &cents); err != nil {
			return nil, fmt.Errorf("scan month total: %w", err)
		}
		mt.Total = core.Money{Cents: cents}
		out = append(out, mt)
	}
	return out, rows.Err()
}

// --- budgets ---

func (r *Repository) CreateBudget(ctx context.Context, b core.Budget) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (user_id, category, amount_cents, start_date, end_date)
		 VALUES (?, ?, ?, ?, ?)`,
		b.UserID, b.Category, b.Amount.Cents,
		b.StartDate.Format(DateLayout), b.EndDate.Format(DateLayout))
	if err != nil {
		return 0, fmt.Errorf("create budget: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create budget: %w", err)
	}
	return id, nil
}

func (r *Repository) GetBudget(ctx context.Context, userID, id int64) (core.Budget, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, category, amount_cents, start_date, end_date, created_at
		 FROM budgets WHERE id = ? AND user_id = ?`, id, userID)
	b, err := scanBudget(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, ErrNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget %d: %w", id, err)
	}
	return b, nil
}

func (r *Repository) ListBudgets(ctx context.Context, userID int64) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, category, amount_cents, start_date, end_date, created_at
		 FROM budgets WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repository) UpdateBudget(ctx context.Context, b core.Budget) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE budgets SET category = ?, amount_cents = ?, start_date = ?, end_date = ?
		 WHERE id = ? AND user_id = ?`,
		b.Category, b.Amount.Cents, b.StartDate.Format(DateLayout), b.EndDate.Format(DateLayout),
		b.ID, b.UserID)
	if err != nil {
		return fmt.Errorf("update budget %d: %w", b.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update budget %d: %w", b.ID, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteBudget(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM budgets WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete budget %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete budget %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanBudget(scan func(...any) error) (core.Budget, error) {
	var (
		b                   core.Budget
		cents               int64
		start, end, created string
	)
	if err := scan(&b.ID, &b.UserID, &b.Category, &cents, &start, &end, &created); err != nil {
		return core.Budget{}, err
	}
	b.Amount = core.Money{Cents: cents}
	b.StartDate, _ = time.Parse(DateLayout, start)
	b.EndDate, _ = time.Parse(DateLayout, end)
	b.CreatedAt = parseTimestamp(created)
	return b, nil
}

// --- receipts ---

func (r *Repository) CreateReceipt(ctx context.Context, rc core.Receipt) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO receipts (id, user_id, filename, content_type, sha256, size_bytes, state)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rc.ID, rc.UserID, rc.Filename, rc.ContentType, rc.SHA256, rc.SizeBytes, rc.State)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create receipt %s: %w", rc.ID, ErrDuplicate)
		}
		return fmt.Errorf("create receipt: %w", err)
	}
	return nil
}

func (r *Repository) GetReceipt(ctx context.Context, userID int64, id string) (core.Receipt, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, filename, content_type, sha256, size_bytes, state, created_at
		 FROM receipts WHERE id = ? AND user_id = ?`, id, userID)
	var (
		rc      core.Receipt
		created string
	)
	err := row.Scan(&rc.ID, &rc.UserID, &rc.Filename, &rc.ContentType, &rc.SHA256, &rc.SizeBytes, &rc.State, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Receipt{}, ErrNotFound
	}
	if err != nil {
		return core.Receipt{}, fmt.Errorf("get receipt %s: %w", id, err)
	}
	rc.CreatedAt = parseTimestamp(created)
	return rc, nil
}

func (r *Repository) SetReceiptState(ctx context.Context, id, state string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE receipts SET state = ? WHERE id = ?`, state, id)
	if err != nil {
		return fmt.Errorf("set receipt state %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set receipt state %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- chat messages ---

func (r *Repository) InsertChatMessage(ctx context.Context, m core.ChatMessage) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO chat_messages (user_id, role, body, intent) VALUES (?, ?, ?, ?)`,
		m.UserID, m.Role, m.Body, nullString(m.Intent))
	if err != nil {
		return 0, fmt.Errorf("insert chat message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert chat message: %w", err)
	}
	return id, nil
}

// ListChatMessages returns the most recent messages, newest first.
func (r *Repository) ListChatMessages(ctx context.Context, userID int64, limit int) ([]core.ChatMessage, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, role, body, intent, created_at
		 FROM chat_messages WHERE user_id = ?
		 ORDER BY id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	defer rows.Close()

	var out []core.ChatMessage
	for rows.Next() {
		var (
			m       core.ChatMessage
			intent  sql.NullString
			created string
		)
		if err := rows.Scan(&m.ID, &m.UserID, &m.Role, &m.Body, &intent, &created); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		m.Intent = intent.String
		m.CreatedAt = parseTimestamp(created)
		out = append(out, m)
	}
	return out, rows.Err()
}

// --- export tracking ---

// PendingExports returns up to limit expenses not yet exported,
// oldest first so batches drain in insertion order.
func (r *Repository) PendingExports(ctx context.Context, limit int) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, amount_cents, description, category, date, receipt_id, receipt_group_id, created_at
		 FROM expenses WHERE export_state = 'pending'
		 ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("pending exports: %w", err)
	}
	return collectExpenses(rows)
}

func (r *Repository) MarkExported(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	query := `UPDATE expenses SET export_state = 'exported' WHERE id IN (?` +
		strings.Repeat(",?", len(ids)-1) + `)`
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	return nil
}

func (r *Repository) MarkExportError(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET export_state = 'error' WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark export error %d: %w", id, err)
	}
	return nil
}

// --- helpers ---

func scanExpenseRow(scan func(...any) error) (core.Expense, error) {
	var (
		e                  core.Expense
		cents              int64
		date, created      string
		receiptID, groupID sql.NullString
	)
	if err := scan(&e.ID, &e.UserID, &cents, &e.Description, &e.Category, &date, &receiptID, &groupID, &created); err != nil {
		return core.Expense{}, err
	}
	e.Amount = core.Money{Cents: cents}
	e.Date, _ = time.Parse(DateLayout, date)
	e.ReceiptID = receiptID.String
	e.ReceiptGroupID = groupID.String
	e.CreatedAt = parseTimestamp(created)
	return e, nil
}

func collectExpenses(rows *sql.Rows) ([]core.Expense, error) {
	defer rows.Close()
	var out []core.Expense
	for rows.Next() {
		e, err := scanExpenseRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func parseTimestamp(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", DateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint")
}
