package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"kopilka/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound marks lookups and updates against an id the store does not hold.
var ErrNotFound = errors.New("record not found")

// SQLiteRepository is the single owner of all durable records. Engines read
// snapshots through it and never hold long-lived copies.
type SQLiteRepository struct {
	db      *sql.DB
	watcher *watcher
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		watcher: newWatcher(),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	r.watcher.closeAll()
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Watch subscribes to change events for one entity kind. The returned cancel
// function must be called when the subscriber is done.
func (r *SQLiteRepository) Watch(kind EntityKind) (<-chan Change, func()) {
	return r.watcher.subscribe(kind)
}

// --- transactions ---

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", fmt.Errorf("validate transaction: %w", err)
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (id, type, category, amount_cents, description, occurred_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		tx.ID, string(tx.Type), tx.Category, tx.Amount.Cents, tx.Description, tx.OccurredAt.UnixMilli())
	if err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", tx.ID,
		"type", tx.Type,
		"category", tx.Category,
		"amount_cents", tx.Amount.Cents)

	r.watcher.emit(KindTransaction, OpCreate, tx.ID)
	return tx.ID, nil
}

// UpdateTransaction replaces the whole record; transactions have no partial edits.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("validate transaction: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET type = ?, category = ?, amount_cents = ?, description = ?, occurred_at = ?
		 WHERE id = ?`,
		string(tx.Type), tx.Category, tx.Amount.Cents, tx.Description, tx.OccurredAt.UnixMilli(), tx.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}

	r.watcher.emit(KindTransaction, OpUpdate, tx.ID)
	return nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}

	r.watcher.emit(KindTransaction, OpDelete, id)
	return nil
}

// DeleteAllTransactions clears the ledger ("delete all" user action).
func (r *SQLiteRepository) DeleteAllTransactions(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
		return fmt.Errorf("delete all transactions: %w", err)
	}

	slog.WarnContext(ctx, "All transactions deleted")
	r.watcher.emit(KindTransaction, OpDelete, "")
	return nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, type, category, amount_cents, description, occurred_at
		 FROM transactions WHERE id = ?`, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

// ListTransactions returns the full ledger snapshot, newest first.
func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, type, category, amount_cents, description, occurred_at
		 FROM transactions ORDER BY occurred_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// --- regular payments ---

func (r *SQLiteRepository) CreatePayment(ctx context.Context, p core.RegularPayment) (string, error) {
	if err := p.Validate(); err != nil {
		return "", fmt.Errorf("validate payment: %w", err)
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO regular_payments
		 (id, name, category, amount_cents, day_of_month, reminder_days_before, is_active, description, last_paid_at, next_due_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Category, p.Amount.Cents, p.DayOfMonth, p.ReminderDaysBefore,
		boolToInt(p.IsActive), p.Description, millisOrNil(p.LastPaidAt), millisOrNil(p.NextDueAt))
	if err != nil {
		return "", fmt.Errorf("insert payment: %w", err)
	}

	slog.InfoContext(ctx, "Regular payment saved",
		"id", p.ID,
		"name", p.Name,
		"day_of_month", p.DayOfMonth)

	r.watcher.emit(KindPayment, OpCreate, p.ID)
	return p.ID, nil
}

func (r *SQLiteRepository) UpdatePayment(ctx context.Context, p core.RegularPayment) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("validate payment: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE regular_payments SET name = ?, category = ?, amount_cents = ?, day_of_month = ?,
		 reminder_days_before = ?, is_active = ?, description = ?, last_paid_at = ?, next_due_at = ?
		 WHERE id = ?`,
		p.Name, p.Category, p.Amount.Cents, p.DayOfMonth, p.ReminderDaysBefore,
		boolToInt(p.IsActive), p.Description, millisOrNil(p.LastPaidAt), millisOrNil(p.NextDueAt), p.ID)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}

	r.watcher.emit(KindPayment, OpUpdate, p.ID)
	return nil
}

func (r *SQLiteRepository) DeletePayment(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM regular_payments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}

	r.watcher.emit(KindPayment, OpDelete, id)
	return nil
}

func (r *SQLiteRepository) GetPayment(ctx context.Context, id string) (core.RegularPayment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, category, amount_cents, day_of_month, reminder_days_before, is_active, description, last_paid_at, next_due_at
		 FROM regular_payments WHERE id = ?`, id)
	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RegularPayment{}, fmt.Errorf("payment %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.RegularPayment{}, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

// ListPayments returns payments grouped for calendar display, day ascending.
func (r *SQLiteRepository) ListPayments(ctx context.Context, activeOnly bool) ([]core.RegularPayment, error) {
	query := `SELECT id, name, category, amount_cents, day_of_month, reminder_days_before, is_active, description, last_paid_at, next_due_at
		 FROM regular_payments`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY day_of_month ASC, name ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []core.RegularPayment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// MarkPaymentPaid is the single atomic mutation of the paid lifecycle: it
// sets both timestamps in one statement so an abandoned caller can never
// leave a half-updated record.
func (r *SQLiteRepository) MarkPaymentPaid(ctx context.Context, id string, paidAt, nextDue time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE regular_payments SET last_paid_at = ?, next_due_at = ? WHERE id = ?`,
		paidAt.UnixMilli(), nextDue.UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("mark payment paid: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Payment marked as paid",
		"id", id,
		"paid_at", paidAt.Format("2006-01-02"),
		"next_due", nextDue.Format("2006-01-02"))

	r.watcher.emit(KindPayment, OpUpdate, id)
	return nil
}

// --- savings ---

func (r *SQLiteRepository) CreateSaving(ctx context.Context, s core.Saving) (string, error) {
	if err := s.Validate(); err != nil {
		return "", fmt.Errorf("validate saving: %w", err)
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := time.Now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO savings (id, name, category, amount_cents, currency, note, target_cents, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Name, s.Category, s.Amount.Cents, s.Currency, s.Note,
		targetOrNil(s.TargetAmount), boolToInt(s.IsActive), s.CreatedAt.UnixMilli(), s.UpdatedAt.UnixMilli())
	if err != nil {
		return "", fmt.Errorf("insert saving: %w", err)
	}

	slog.InfoContext(ctx, "Saving goal saved", "id", s.ID, "name", s.Name)
	r.watcher.emit(KindSaving, OpCreate, s.ID)
	return s.ID, nil
}

func (r *SQLiteRepository) UpdateSaving(ctx context.Context, s core.Saving) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("validate saving: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE savings SET name = ?, category = ?, amount_cents = ?, currency = ?, note = ?,
		 target_cents = ?, is_active = ?, updated_at = ?
		 WHERE id = ?`,
		s.Name, s.Category, s.Amount.Cents, s.Currency, s.Note,
		targetOrNil(s.TargetAmount), boolToInt(s.IsActive), time.Now().UnixMilli(), s.ID)
	if err != nil {
		return fmt.Errorf("update saving: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}

	r.watcher.emit(KindSaving, OpUpdate, s.ID)
	return nil
}

func (r *SQLiteRepository) DeleteSaving(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM savings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete saving: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}

	r.watcher.emit(KindSaving, OpDelete, id)
	return nil
}

func (r *SQLiteRepository) GetSaving(ctx context.Context, id string) (core.Saving, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, category, amount_cents, currency, note, target_cents, is_active, created_at, updated_at
		 FROM savings WHERE id = ?`, id)
	s, err := scanSaving(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Saving{}, fmt.Errorf("saving %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Saving{}, fmt.Errorf("get saving: %w", err)
	}
	return s, nil
}

func (r *SQLiteRepository) ListSavings(ctx context.Context, activeOnly bool) ([]core.Saving, error) {
	query := `SELECT id, name, category, amount_cents, currency, note, target_cents, is_active, created_at, updated_at
		 FROM savings`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list savings: %w", err)
	}
	defer rows.Close()

	var savings []core.Saving
	for rows.Next() {
		s, err := scanSaving(rows)
		if err != nil {
			return nil, fmt.Errorf("scan saving: %w", err)
		}
		savings = append(savings, s)
	}
	return savings, rows.Err()
}

// --- user profile ---

// GetProfile returns the singleton profile, or a zero profile when the user
// never filled one in. Absence is not an error.
func (r *SQLiteRepository) GetProfile(ctx context.Context) (core.UserProfile, error) {
	var (
		profile   core.UserProfile
		tagsJSON  string
		mutedJSON string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT dependents, tags, muted_advice FROM user_profile WHERE id = 1`).
		Scan(&profile.Dependents, &tagsJSON, &mutedJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return core.UserProfile{}, nil
	}
	if err != nil {
		return core.UserProfile{}, fmt.Errorf("get profile: %w", err)
	}

	if err := json.Unmarshal([]byte(tagsJSON), &profile.Tags); err != nil {
		return core.UserProfile{}, fmt.Errorf("decode profile tags: %w", err)
	}
	if err := json.Unmarshal([]byte(mutedJSON), &profile.MutedAdvice); err != nil {
		return core.UserProfile{}, fmt.Errorf("decode muted advice: %w", err)
	}
	return profile, nil
}

// SaveProfile upserts the single profile row (id is fixed at 1).
func (r *SQLiteRepository) SaveProfile(ctx context.Context, profile core.UserProfile) error {
	tagsJSON, err := json.Marshal(profile.Tags)
	if err != nil {
		return fmt.Errorf("encode profile tags: %w", err)
	}
	mutedJSON, err := json.Marshal(profile.MutedAdvice)
	if err != nil {
		return fmt.Errorf("encode muted advice: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO user_profile (id, dependents, tags, muted_advice) VALUES (1, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET dependents = excluded.dependents,
		                               tags = excluded.tags,
		                               muted_advice = excluded.muted_advice`,
		profile.Dependents, string(tagsJSON), string(mutedJSON))
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}

	r.watcher.emit(KindProfile, OpUpdate, "1")
	return nil
}

// --- scan helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		tx       core.Transaction
		txType   string
		occurred int64
	)
	if err := row.Scan(&tx.ID, &txType, &tx.Category, &tx.Amount.Cents, &tx.Description, &occurred); err != nil {
		return core.Transaction{}, err
	}
	tx.Type = core.TransactionType(txType)
	tx.OccurredAt = time.UnixMilli(occurred).UTC()
	return tx, nil
}

func scanPayment(row rowScanner) (core.RegularPayment, error) {
	var (
		p        core.RegularPayment
		active   int
		lastPaid sql.NullInt64
		nextDue  sql.NullInt64
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Amount.Cents, &p.DayOfMonth,
		&p.ReminderDaysBefore, &active, &p.Description, &lastPaid, &nextDue); err != nil {
		return core.RegularPayment{}, err
	}
	p.IsActive = active != 0
	if lastPaid.Valid {
		t := time.UnixMilli(lastPaid.Int64).UTC()
		p.LastPaidAt = &t
	}
	if nextDue.Valid {
		t := time.UnixMilli(nextDue.Int64).UTC()
		p.NextDueAt = &t
	}
	return p, nil
}

func scanSaving(row rowScanner) (core.Saving, error) {
	var (
		s       core.Saving
		target  sql.NullInt64
		active  int
		created int64
		updated int64
	)
	if err := row.Scan(&s.ID, &s.Name, &s.Category, &s.Amount.Cents, &s.Currency, &s.Note,
		&target, &active, &created, &updated); err != nil {
		return core.Saving{}, err
	}
	if target.Valid {
		s.TargetAmount = &core.Money{Cents: target.Int64}
	}
	s.IsActive = active != 0
	s.CreatedAt = time.UnixMilli(created).UTC()
	s.UpdatedAt = time.UnixMilli(updated).UTC()
	return s, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func millisOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func targetOrNil(m *core.Money) any {
	if m == nil {
		return nil
	}
	return m.Cents
}
