// Package postgres runs units of work as SQL transactions over a pgx pool.
// Inside a read-write unit of work every single-row read takes a row lock, and
// the engine reads transaction rows, then recurring payments, then accounts in
// ascending id order, so concurrent units of work cannot deadlock.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/GregMSThompson/finance-tracker/internal/errs"
	"github.com/GregMSThompson/finance-tracker/internal/models"
	"github.com/GregMSThompson/finance-tracker/internal/store"
	"github.com/GregMSThompson/finance-tracker/pkg/helpers"
	"github.com/GregMSThompson/finance-tracker/pkg/money"
)

var errReadOnly = errors.New("postgres store: write attempted in read-only view")

type Store struct {
	pool *pgxpool.Pool
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return New(pool), nil
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Run(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	return s.inTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, true, fn)
}

func (s *Store) View(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	return s.inTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, false, fn)
}

func (s *Store) inTx(ctx context.Context, opts pgx.TxOptions, writable bool, fn func(ctx context.Context, tx store.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, opts)
	if err != nil {
		return errs.NewDatabaseError("begin", "failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &pgTx{tx: tx, writable: writable}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return errs.NewDatabaseError("commit", "failed to commit transaction", err)
	}
	return nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

type pgTx struct {
	tx       pgx.Tx
	writable bool
}

func (t *pgTx) write() error {
	if !t.writable {
		return errReadOnly
	}
	return nil
}

// lock is appended to single-row reads.
func (t *pgTx) lock() string {
	if t.writable {
		return " FOR UPDATE"
	}
	return ""
}

// mapErr converts driver errors into the errs types callers switch on.
func mapErr(op, what string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.NewNotFoundError(what + " not found")
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return errs.NewValidationError(what + " already exists")
		case "23503":
			return errs.NewReferencedError(what + " is referenced by other records")
		}
	}
	return errs.NewDatabaseError(op, "failed to "+op, err)
}

func expectRow(tag pgconn.CommandTag, what string) error {
	if tag.RowsAffected() == 0 {
		return errs.NewNotFoundError(what + " not found")
	}
	return nil
}

// --- accounts ---

const accountColumns = `account_id, user_id, name, type, balance_cents, opening_balance_cents,
	currency, is_default, credit_limit_cents, due_day, minimum_payment_cents, interest_rate,
	created_at, updated_at`

func scanAccount(row pgx.Row) (*models.Account, error) {
	var (
		a                models.Account
		typ              string
		balance, opening int64
		limit, minimum   *int64
		rate             decimal.NullDecimal
	)
	err := row.Scan(&a.AccountID, &a.UserID, &a.Name, &typ, &balance, &opening,
		&a.Currency, &a.IsDefault, &limit, &a.DueDay, &minimum, &rate,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Type = models.AccountType(typ)
	a.Balance = money.New(balance)
	a.OpeningBalance = money.New(opening)
	if limit != nil {
		a.CreditLimit = helpers.Ptr(money.New(*limit))
	}
	if minimum != nil {
		a.MinimumPayment = helpers.Ptr(money.New(*minimum))
	}
	if rate.Valid {
		a.InterestRate = &rate.Decimal
	}
	return &a, nil
}

func (t *pgTx) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE account_id = $1`+t.lock(), accountID)
	a, err := scanAccount(row)
	if err != nil {
		return nil, mapErr("get account", "account", err)
	}
	return a, nil
}

func (t *pgTx) ListAccounts(ctx context.Context, uid string) ([]*models.Account, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE user_id = $1 ORDER BY created_at, account_id`, uid)
	if err != nil {
		return nil, mapErr("list accounts", "account", err)
	}
	defer rows.Close()

	out := make([]*models.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, mapErr("scan account", "account", err)
		}
		out = append(out, a)
	}
	return out, mapErr("list accounts", "account", rows.Err())
}

func (t *pgTx) CreateAccount(ctx context.Context, a *models.Account) error {
	if err := t.write(); err != nil {
		return err
	}
	var rate decimal.NullDecimal
	if a.InterestRate != nil {
		rate = decimal.NewNullDecimal(*a.InterestRate)
	}
	_, err := t.tx.Exec(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		a.AccountID, a.UserID, a.Name, string(a.Type), a.Balance.Cents(), a.OpeningBalance.Cents(),
		a.Currency, a.IsDefault, centsOrNil(a.CreditLimit), a.DueDay, centsOrNil(a.MinimumPayment), rate,
		a.CreatedAt, a.UpdatedAt,
	)
	return mapErr("create account", "account", err)
}

func (t *pgTx) SetDefaultAccount(ctx context.Context, accountID string, isDefault bool) error {
	if err := t.write(); err != nil {
		return err
	}
	tag, err := t.tx.Exec(ctx, `UPDATE accounts SET is_default = $2, updated_at = $3 WHERE account_id = $1`, accountID, isDefault, time.Now())
	if err != nil {
		return mapErr("update account", "account", err)
	}
	return expectRow(tag, "account")
}

func (t *pgTx) DeleteAccount(ctx context.Context, accountID string) error {
	if err := t.write(); err != nil {
		return err
	}
	tag, err := t.tx.Exec(ctx, `DELETE FROM accounts WHERE account_id = $1`, accountID)
	if err != nil {
		return mapErr("delete account", "account", err)
	}
	return expectRow(tag, "account")
}

func (t *pgTx) SetBalance(ctx context.Context, accountID string, balance money.Money) error {
	if err := t.write(); err != nil {
		return err
	}
	tag, err := t.tx.Exec(ctx, `UPDATE accounts SET balance_cents = $2, updated_at = $3 WHERE account_id = $1`, accountID, balance.Cents(), time.Now())
	if err != nil {
		return mapErr("update balance", "account", err)
	}
	return expectRow(tag, "account")
}

// --- transactions ---

const transactionColumns = `transaction_id, user_id, account_id, COALESCE(to_account_id, ''), amount_cents,
	date, kind, credit_type, COALESCE(credit_id, ''), is_repayment, is_full_settlement,
	COALESCE(recurring_payment_id, ''), category_id, counterparty, description, created_at, updated_at`

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var (
		tr               models.Transaction
		amount           int64
		kind, creditType string
	)
	err := row.Scan(&tr.TransactionID, &tr.UserID, &tr.AccountID, &tr.ToAccountID, &amount,
		&tr.Date, &kind, &creditType, &tr.CreditID, &tr.IsRepayment, &tr.IsFullSettlement,
		&tr.RecurringPaymentID, &tr.CategoryID, &tr.Counterparty, &tr.Description, &tr.CreatedAt, &tr.UpdatedAt)
	if err != nil {
		return nil, err
	}
	tr.Amount = money.New(amount)
	tr.Kind = models.TransactionKind(kind)
	tr.CreditType = models.CreditType(creditType)
	return &tr, nil
}

func (t *pgTx) GetTransaction(ctx context.Context, transactionID string) (*models.Transaction, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE transaction_id = $1`+t.lock(), transactionID)
	tr, err := scanTransaction(row)
	if err != nil {
		return nil, mapErr("get transaction", "transaction", err)
	}
	return tr, nil
}

func (t *pgTx) ListTransactions(ctx context.Context, uid string, filter store.TransactionFilter) ([]*models.Transaction, error) {
	where := []string{"user_id = $1"}
	args := []any{uid}
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.AccountID != "" {
		add("(account_id = $%[1]d OR to_account_id = $%[1]d)", filter.AccountID)
	}
	if filter.CreditID != "" {
		add("credit_id = $%d", filter.CreditID)
	}
	if filter.Kind != "" {
		add("kind = $%d", string(filter.Kind))
	}
	if filter.RecurringPaymentID != "" {
		add("recurring_payment_id = $%d", filter.RecurringPaymentID)
	}
	if filter.DateFrom != nil {
		add("date >= $%d", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		add("date <= $%d", *filter.DateTo)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY date, created_at, transaction_id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, mapErr("list transactions", "transaction", err)
	}
	defer rows.Close()

	out := make([]*models.Transaction, 0)
	for rows.Next() {
		tr, err := scanTransaction(rows)
		if err != nil {
			return nil, mapErr("scan transaction", "transaction", err)
		}
		out = append(out, tr)
	}
	return out, mapErr("list transactions", "transaction", rows.Err())
}

func (t *pgTx) CreateTransaction(ctx context.Context, tr *models.Transaction) error {
	if err := t.write(); err != nil {
		return err
	}
	_, err := t.tx.Exec(ctx, `
		INSERT INTO transactions (transaction_id, user_id, account_id, to_account_id, amount_cents,
			date, kind, credit_type, credit_id, is_repayment, is_full_settlement,
			recurring_payment_id, category_id, counterparty, description, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, NULLIF($9, ''), $10, $11,
			NULLIF($12, ''), $13, $14, $15, $16, $17)`,
		tr.TransactionID, tr.UserID, tr.AccountID, tr.ToAccountID, tr.Amount.Cents(),
		tr.Date, string(tr.Kind), string(tr.CreditType), tr.CreditID, tr.IsRepayment, tr.IsFullSettlement,
		tr.RecurringPaymentID, tr.CategoryID, tr.Counterparty, tr.Description, tr.CreatedAt, tr.UpdatedAt,
	)
	return mapErr("create transaction", "transaction", err)
}

func (t *pgTx) UpdateTransaction(ctx context.Context, tr *models.Transaction) error {
	if err := t.write(); err != nil {
		return err
	}
	tag, err := t.tx.Exec(ctx, `
		UPDATE transactions SET
			account_id = $2, to_account_id = NULLIF($3, ''), amount_cents = $4, date = $5, kind = $6,
			credit_type = $7, credit_id = NULLIF($8, ''), is_repayment = $9, is_full_settlement = $10,
			recurring_payment_id = NULLIF($11, ''), category_id = $12, counterparty = $13,
			description = $14, updated_at = $15
		WHERE transaction_id = $1`,
		tr.TransactionID, tr.AccountID, tr.ToAccountID, tr.Amount.Cents(), tr.Date, string(tr.Kind),
		string(tr.CreditType), tr.CreditID, tr.IsRepayment, tr.IsFullSettlement,
		tr.RecurringPaymentID, tr.CategoryID, tr.Counterparty, tr.Description, tr.UpdatedAt,
	)
	if err != nil {
		return mapErr("update transaction", "transaction", err)
	}
	return expectRow(tag, "transaction")
}

func (t *pgTx) DeleteTransaction(ctx context.Context, transactionID string) error {
	if err := t.write(); err != nil {
		return err
	}
	tag, err := t.tx.Exec(ctx, `DELETE FROM transactions WHERE transaction_id = $1`, transactionID)
	if err != nil {
		return mapErr("delete transaction", "transaction", err)
	}
	return expectRow(tag, "transaction")
}

// --- recurring payments ---

const recurringColumns = `recurring_payment_id, user_id, name, default_amount_cents, frequency,
	custom_interval_days, start_date, end_date, next_due_date, account_id, category_id, is_active,
	created_at, updated_at`

func scanRecurring(row pgx.Row) (*models.RecurringPayment, error) {
	var (
		p         models.RecurringPayment
		amount    int64
		frequency string
	)
	err := row.Scan(&p.RecurringPaymentID, &p.UserID, &p.Name, &amount, &frequency,
		&p.CustomIntervalDays, &p.StartDate, &p.EndDate, &p.NextDueDate, &p.AccountID, &p.CategoryID, &p.IsActive,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.DefaultAmount = money.New(amount)
	p.Frequency = models.Frequency(frequency)
	return &p, nil
}

func (t *pgTx) GetRecurring(ctx context.Context, recurringPaymentID string) (*models.RecurringPayment, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+recurringColumns+` FROM recurring_payments WHERE recurring_payment_id = $1`+t.lock(), recurringPaymentID)
	p, err := scanRecurring(row)
	if err != nil {
		return nil, mapErr("get recurring payment", "recurring payment", err)
	}
	return p, nil
}

func (t *pgTx) ListRecurring(ctx context.Context, uid string) ([]*models.RecurringPayment, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+recurringColumns+` FROM recurring_payments WHERE user_id = $1 ORDER BY next_due_date, recurring_payment_id`, uid)
	if err != nil {
		return nil, mapErr("list recurring payments", "recurring payment", err)
	}
	defer rows.Close()

	out := make([]*models.RecurringPayment, 0)
	for rows.Next() {
		p, err := scanRecurring(rows)
		if err != nil {
			return nil, mapErr("scan recurring payment", "recurring payment", err)
		}
		out = append(out, p)
	}
	return out, mapErr("list recurring payments", "recurring payment", rows.Err())
}

func (t *pgTx) CreateRecurring(ctx context.Context, p *models.RecurringPayment) error {
	if err := t.write(); err != nil {
		return err
	}
	_, err := t.tx.Exec(ctx, `
		INSERT INTO recurring_payments (`+recurringColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		p.RecurringPaymentID, p.UserID, p.Name, p.DefaultAmount.Cents(), string(p.Frequency),
		p.CustomIntervalDays, p.StartDate, p.EndDate, p.NextDueDate, p.AccountID, p.CategoryID, p.IsActive,
		p.CreatedAt, p.UpdatedAt,
	)
	return mapErr("create recurring payment", "recurring payment", err)
}

func (t *pgTx) UpdateRecurring(ctx context.Context, p *models.RecurringPayment) error {
	if err := t.write(); err != nil {
		return err
	}
	tag, err := t.tx.Exec(ctx, `
		UPDATE recurring_payments SET
			name = $2, default_amount_cents = $3, frequency = $4, custom_interval_days = $5,
			start_date = $6, end_date = $7, next_due_date = $8, account_id = $9, category_id = $10,
			is_active = $11, updated_at = $12
		WHERE recurring_payment_id = $1`,
		p.RecurringPaymentID, p.Name, p.DefaultAmount.Cents(), string(p.Frequency), p.CustomIntervalDays,
		p.StartDate, p.EndDate, p.NextDueDate, p.AccountID, p.CategoryID, p.IsActive, p.UpdatedAt,
	)
	if err != nil {
		return mapErr("update recurring payment", "recurring payment", err)
	}
	return expectRow(tag, "recurring payment")
}

func centsOrNil(m *money.Money) *int64 {
	if m == nil {
		return nil
	}
	return helpers.Ptr(m.Cents())
}
