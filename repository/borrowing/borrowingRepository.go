// repository/borrowing/repo.go
package borrowingrepo

import (
	"context"
	"database/sql"
	"time"

	"libraryrental/model"
	"libraryrental/util/database"

	"github.com/shopspring/decimal"
)

// LoanRow is a borrowing joined with the book and user bits the services need.
type LoanRow struct {
	model.Borrowing
	BookTitle string
	DailyFee  decimal.Decimal
	UserEmail string
}

type Repo interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	GetBook(ctx context.Context, bookID int64) (*model.Book, error)
	DecrementInventory(ctx context.Context, bookID int64) (bool, error)
	IncrementInventory(ctx context.Context, bookID int64) error

	Insert(ctx context.Context, b *model.Borrowing) error
	GetForUpdate(ctx context.Context, id int64) (*LoanRow, error)
	MarkReturned(ctx context.Context, id int64, on time.Time) (bool, error)

	List(ctx context.Context, f model.BorrowingFilter) ([]model.Borrowing, error)
	Detail(ctx context.Context, id int64) (*model.Borrowing, error)
	ListOverdueOpen(ctx context.Context, asOf time.Time) ([]LoanRow, error)
}

type repo struct {
	db *sql.DB
}

func New(db *sql.DB) Repo { return &repo{db: db} }

func (r *repo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return database.WithTx(ctx, r.db, fn)
}

func (r *repo) GetBook(ctx context.Context, bookID int64) (*model.Book, error) {
	const q = `
		SELECT id, title, author, cover, inventory, daily_fee
		FROM books
		WHERE id = $1`
	var b model.Book
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, q, bookID).Scan(
		&b.ID, &b.Title, &b.Author, &b.Cover, &b.Inventory, &b.DailyFee,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repo) DecrementInventory(ctx context.Context, bookID int64) (bool, error) {
	// Guard: only decrement while copies remain.
	const q = `
		UPDATE books
		SET inventory = inventory - 1
		WHERE id = $1
		AND inventory > 0`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, q, bookID)
	if err != nil {
		return false, err
	}
	aff, _ := res.RowsAffected()
	return aff > 0, nil
}

func (r *repo) IncrementInventory(ctx context.Context, bookID int64) error {
	const q = `
		UPDATE books
		SET inventory = inventory + 1
		WHERE id = $1`
	_, err := database.Conn(ctx, r.db).ExecContext(ctx, q, bookID)
	return err
}

func (r *repo) Insert(ctx context.Context, b *model.Borrowing) error {
	const q = `
		INSERT INTO borrowings (user_id, book_id, borrow_date, expected_return_date, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING id`
	return database.Conn(ctx, r.db).QueryRowContext(ctx, q,
		b.UserID, b.BookID, b.BorrowDate, b.ExpectedReturnDate,
	).Scan(&b.ID)
}

func (r *repo) GetForUpdate(ctx context.Context, id int64) (*LoanRow, error) {
	const q = `
		SELECT br.id, br.user_id, br.book_id, br.borrow_date, br.expected_return_date,
		       br.actual_return_date, br.is_active,
		       b.title, b.daily_fee, u.email
		FROM borrowings br
		JOIN books b ON b.id = br.book_id
		JOIN users u ON u.id = br.user_id
		WHERE br.id = $1
		FOR UPDATE OF br`
	var row LoanRow
	err := database.Conn(ctx, r.db).QueryRowContext(ctx, q, id).Scan(
		&row.ID, &row.UserID, &row.BookID, &row.BorrowDate, &row.ExpectedReturnDate,
		&row.ActualReturnDate, &row.IsActive,
		&row.BookTitle, &row.DailyFee, &row.UserEmail,
	)
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repo) MarkReturned(ctx context.Context, id int64, on time.Time) (bool, error) {
	// Guard keeps actual_return_date immutable once set.
	const q = `
		UPDATE borrowings
		SET actual_return_date = $2,
			is_active = FALSE
		WHERE id = $1
		AND actual_return_date IS NULL`
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, q, id, on)
	if err != nil {
		return false, err
	}
	aff, _ := res.RowsAffected()
	return aff > 0, nil
}

func (r *repo) List(ctx context.Context, f model.BorrowingFilter) ([]model.Borrowing, error) {
	q := `
		SELECT id, user_id, book_id, borrow_date, expected_return_date, actual_return_date, is_active
		FROM borrowings
		WHERE 1=1`
	args := []any{}
	if f.UserID > 0 {
		args = append(args, f.UserID)
		q += ` AND user_id = $1`
	}
	if f.IsActive != nil {
		args = append(args, *f.IsActive)
		if len(args) == 1 {
			q += ` AND is_active = $1`
		} else {
			q += ` AND is_active = $2`
		}
	}
	q += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Borrowing
	for rows.Next() {
		var b model.Borrowing
		if err := rows.Scan(&b.ID, &b.UserID, &b.BookID, &b.BorrowDate, &b.ExpectedReturnDate, &b.ActualReturnDate, &b.IsActive); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *repo) Detail(ctx context.Context, id int64) (*model.Borrowing, error) {
	const q = `
		SELECT id, user_id, book_id, borrow_date, expected_return_date, actual_return_date, is_active
		FROM borrowings
		WHERE id = $1`
	var b model.Borrowing
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&b.ID, &b.UserID, &b.BookID, &b.BorrowDate, &b.ExpectedReturnDate, &b.ActualReturnDate, &b.IsActive,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *repo) ListOverdueOpen(ctx context.Context, asOf time.Time) ([]LoanRow, error) {
	const q = `
		SELECT br.id, br.user_id, br.book_id, br.borrow_date, br.expected_return_date,
		       br.actual_return_date, br.is_active,
		       b.title, b.daily_fee, u.email
		FROM borrowings br
		JOIN books b ON b.id = br.book_id
		JOIN users u ON u.id = br.user_id
		WHERE br.expected_return_date <= $1
		AND br.actual_return_date IS NULL
		ORDER BY br.expected_return_date`
	rows, err := r.db.QueryContext(ctx, q, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LoanRow
	for rows.Next() {
		var row LoanRow
		if err := rows.Scan(
			&row.ID, &row.UserID, &row.BookID, &row.BorrowDate, &row.ExpectedReturnDate,
			&row.ActualReturnDate, &row.IsActive,
			&row.BookTitle, &row.DailyFee, &row.UserEmail,
		); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
