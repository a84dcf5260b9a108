// repository/payment/repo.go
package paymentrepo

import (
	"context"
	"database/sql"
	"errors"

	"libraryrental/model"
	"libraryrental/util/database"
)

// SessionRow is a payment joined with book and user details for notifications.
type SessionRow struct {
	model.Payment
	BookTitle string
	UserEmail string
}

type Repo interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	// Upsert is keyed by (borrowing_id, pay_type): re-opening a session for the
	// same borrowing replaces the session identifiers instead of duplicating.
	Upsert(ctx context.Context, p *model.Payment) error

	BySessionID(ctx context.Context, sessionID string) (*SessionRow, error)
	Detail(ctx context.Context, id int64) (*model.Payment, error)
	List(ctx context.Context, userID int64, all bool) ([]model.Payment, error)
	ListByStatus(ctx context.Context, status model.PaymentStatus) ([]model.Payment, error)

	// HasUnsettled reports whether the user has any PENDING or EXPIRED payment.
	HasUnsettled(ctx context.Context, userID int64) (bool, error)
	OldestExpiredByUser(ctx context.Context, userID int64) (*model.Payment, error)

	// UpdateStatusIfPending is the monotonic PENDING->terminal write; it refuses
	// to touch rows that already left PENDING.
	UpdateStatusIfPending(ctx context.Context, id int64, status model.PaymentStatus) (bool, error)

	// RenewSession moves an EXPIRED payment back to PENDING with fresh session
	// identifiers.
	RenewSession(ctx context.Context, id int64, sessionID, sessionURL string) (bool, error)
}

type repo struct {
	db *sql.DB
}

func New(db *sql.DB) Repo { return &repo{db: db} }

func (r *repo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return database.WithTx(ctx, r.db, fn)
}

func (r *repo) Upsert(ctx context.Context, p *model.Payment) error {
	const q = `
		INSERT INTO payments (borrowing_id, user_id, status, pay_type, session_id, session_url, money_to_pay)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (borrowing_id, pay_type) DO UPDATE
		SET status = EXCLUDED.status,
			session_id = EXCLUDED.session_id,
			session_url = EXCLUDED.session_url,
			money_to_pay = EXCLUDED.money_to_pay
		RETURNING id, created_at`
	return database.Conn(ctx, r.db).QueryRowContext(ctx, q,
		p.BorrowingID, p.UserID, p.Status, p.Type, p.SessionID, p.SessionURL, p.MoneyToPay,
	).Scan(&p.ID, &p.CreatedAt)
}

func (r *repo) BySessionID(ctx context.Context, sessionID string) (*SessionRow, error) {
	const q = `
		SELECT p.id, p.borrowing_id, p.user_id, p.status, p.pay_type, p.session_id, p.session_url,
		       p.money_to_pay, p.created_at,
		       b.title, u.email
		FROM payments p
		JOIN borrowings br ON br.id = p.borrowing_id
		JOIN books b ON b.id = br.book_id
		JOIN users u ON u.id = p.user_id
		WHERE p.session_id = $1`
	var row SessionRow
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, q, sessionID).Scan(
		&row.ID, &row.BorrowingID, &row.UserID, &row.Status, &row.Type, &row.SessionID, &row.SessionURL,
		&row.MoneyToPay, &row.CreatedAt,
		&row.BookTitle, &row.UserEmail,
	)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repo) Detail(ctx context.Context, id int64) (*model.Payment, error) {
	const q = `
		SELECT id, borrowing_id, user_id, status, pay_type, session_id, session_url, money_to_pay, created_at
		FROM payments
		WHERE id = $1`
	var p model.Payment
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&p.ID, &p.BorrowingID, &p.UserID, &p.Status, &p.Type, &p.SessionID, &p.SessionURL, &p.MoneyToPay, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repo) List(ctx context.Context, userID int64, all bool) ([]model.Payment, error) {
	q := `
		SELECT id, borrowing_id, user_id, status, pay_type, session_id, session_url, money_to_pay, created_at
		FROM payments`
	args := []any{}
	if !all {
		q += ` WHERE user_id = $1`
		args = append(args, userID)
	}
	q += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPayments(rows)
}

func (r *repo) ListByStatus(ctx context.Context, status model.PaymentStatus) ([]model.Payment, error) {
	const q = `
		SELECT id, borrowing_id, user_id, status, pay_type, session_id, session_url, money_to_pay, created_at
		FROM payments
		WHERE status = $1
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPayments(rows)
}

func (r *repo) HasUnsettled(ctx context.Context, userID int64) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1
			FROM payments
			WHERE user_id = $1
			AND status IN ('PENDING', 'EXPIRED')
		)`
	var exists bool
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, q, userID).Scan(&exists)
	return exists, err
}

func (r *repo) OldestExpiredByUser(ctx context.Context, userID int64) (*model.Payment, error) {
	const q = `
		SELECT id, borrowing_id, user_id, status, pay_type, session_id, session_url, money_to_pay, created_at
		FROM payments
		WHERE user_id = $1
		AND status = 'EXPIRED'
		ORDER BY id
		LIMIT 1`
	var p model.Payment
	err := r.db.QueryRowContext(ctx, q, userID).Scan(
		&p.ID, &p.BorrowingID, &p.UserID, &p.Status, &p.Type, &p.SessionID, &p.SessionURL, &p.MoneyToPay, &p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repo) UpdateStatusIfPending(ctx context.Context, id int64, status model.PaymentStatus) (bool, error) {
	const q = `
		UPDATE payments
		SET status = $2
		WHERE id = $1
		AND status = 'PENDING'`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, q, id, status)
	if err != nil {
		return false, err
	}
	aff, _ := res.RowsAffected()
	return aff > 0, nil
}

func (r *repo) RenewSession(ctx context.Context, id int64, sessionID, sessionURL string) (bool, error) {
	const q = `
		UPDATE payments
		SET status = 'PENDING',
			session_id = $2,
			session_url = $3
		WHERE id = $1
		AND status = 'EXPIRED'`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, q, id, sessionID, sessionURL)
	if err != nil {
		return false, err
	}
	aff, _ := res.RowsAffected()
	return aff > 0, nil
}

func scanPayments(rows *sql.Rows) ([]model.Payment, error) {
	var out []model.Payment
	for rows.Next() {
		var p model.Payment
		if err := rows.Scan(&p.ID, &p.BorrowingID, &p.UserID, &p.Status, &p.Type, &p.SessionID, &p.SessionURL, &p.MoneyToPay, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
