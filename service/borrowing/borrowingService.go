package borrowingsvc

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"libraryrental/model"
	borrowingrepo "libraryrental/repository/borrowing"
	paymentrepo "libraryrental/repository/payment"
	striperepo "libraryrental/repository/stripe"
	"libraryrental/service/fee"
	"libraryrental/util/clock"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// errors used by controllers

type ErrCode string

const (
	ErrBookNotFound      ErrCode = "BOOK_NOT_FOUND"
	ErrNoInventory       ErrCode = "INVENTORY_EXHAUSTED"
	ErrInvalidReturnDate ErrCode = "INVALID_RETURN_DATE"
	ErrAlreadyReturned   ErrCode = "ALREADY_RETURNED"
	ErrUnsettledPayment  ErrCode = "EXISTING_UNSETTLED_PAYMENT"
	ErrNotOwner          ErrCode = "NOT_OWNER"
	ErrNotFound          ErrCode = "NOT_FOUND"
	ErrGateway           ErrCode = "GATEWAY_UNAVAILABLE"
)

type codedError struct{ code ErrCode }

func (e codedError) Error() string { return string(e.code) }
func (e codedError) Code() ErrCode { return e.code }
func makeErr(c ErrCode) error      { return codedError{code: c} }

// Code extracts error code
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

// dto

type Created struct {
	BorrowingID        int64
	MoneyToPay         decimal.Decimal
	SessionURL         string
	ExpectedReturnDate string
}

type Returned struct {
	ActualReturnDate string
	Fine             decimal.Decimal
	FineSessionURL   string
}

type Config struct {
	FineMultiplier int64
}

type Service interface {
	// Create: borrow one copy, open a PAYMENT session, record the payment PENDING.
	Create(ctx context.Context, userID, bookID int64, expectedReturn time.Time) (*Created, error)

	// Return: close the loan, restock the copy, fine late returns.
	Return(ctx context.Context, userID, borrowingID int64) (*Returned, error)

	List(ctx context.Context, f model.BorrowingFilter) ([]model.Borrowing, error)
	Detail(ctx context.Context, userID int64, staff bool, id int64) (*model.Borrowing, error)
}

// ----- Service implementation -----

type service struct {
	r   borrowingrepo.Repo
	pr  paymentrepo.Repo
	gw  striperepo.Repo
	clk clock.Clock
	cfg Config
}

func New(r borrowingrepo.Repo, pr paymentrepo.Repo, gw striperepo.Repo, clk clock.Clock, cfg Config) Service {
	if cfg.FineMultiplier <= 0 {
		cfg.FineMultiplier = 2
	}
	return &service{r: r, pr: pr, gw: gw, clk: clk, cfg: cfg}
}

// Create validates dates and dues, opens the checkout session first (a gateway
// failure must not cost inventory), then commits decrement + borrowing +
// payment as one transaction.
func (s *service) Create(ctx context.Context, userID, bookID int64, expectedReturn time.Time) (*Created, error) {
	today := fee.DateOf(s.clk.Now())
	due := fee.DateOf(expectedReturn)
	if !due.After(today) {
		return nil, makeErr(ErrInvalidReturnDate)
	}

	// No new borrowings while unpaid dues exist, on any borrowing of this user.
	unsettled, err := s.pr.HasUnsettled(ctx, userID)
	if err != nil {
		return nil, err
	}
	if unsettled {
		return nil, makeErr(ErrUnsettledPayment)
	}

	book, err := s.r.GetBook(ctx, bookID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrBookNotFound)
		}
		return nil, err
	}
	if book.Inventory == 0 {
		return nil, makeErr(ErrNoInventory)
	}

	amount := fee.Total(today, due, book.DailyFee)

	sess, err := s.gw.CreateSession(ctx, striperepo.CreateSessionReq{
		Amount:      amount,
		Description: fmt.Sprintf("%s fee for %s", model.TypePayment, book.Title),
		Reference:   uuid.NewString(),
	})
	if err != nil {
		return nil, makeErr(ErrGateway)
	}

	b := &model.Borrowing{
		UserID:             userID,
		BookID:             bookID,
		BorrowDate:         today,
		ExpectedReturnDate: due,
		IsActive:           true,
	}

	err = s.r.WithTx(ctx, func(txCtx context.Context) error {
		ok, err := s.r.DecrementInventory(txCtx, bookID)
		if err != nil {
			return err
		}
		if !ok {
			// Lost the race for the last copy.
			return makeErr(ErrNoInventory)
		}
		if err := s.r.Insert(txCtx, b); err != nil {
			return err
		}
		return s.pr.Upsert(txCtx, &model.Payment{
			BorrowingID: b.ID,
			UserID:      userID,
			Status:      model.PaymentPending,
			Type:        model.TypePayment,
			SessionID:   sess.SessionID,
			SessionURL:  sess.SessionURL,
			MoneyToPay:  amount,
		})
	})
	if err != nil {
		return nil, err
	}

	return &Created{
		BorrowingID:        b.ID,
		MoneyToPay:         amount,
		SessionURL:         sess.SessionURL,
		ExpectedReturnDate: due.Format("2006-01-02"),
	}, nil
}

// Return is one atomic unit: row lock, mark returned, restock, and (when the
// return is late) record a FINE payment against a fresh session. A gateway
// failure rolls everything back.
func (s *service) Return(ctx context.Context, userID, borrowingID int64) (*Returned, error) {
	var out *Returned

	err := s.r.WithTx(ctx, func(txCtx context.Context) error {
		row, err := s.r.GetForUpdate(txCtx, borrowingID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return makeErr(ErrNotFound)
			}
			return err
		}
		if row.UserID != userID {
			return makeErr(ErrNotOwner)
		}
		if row.ActualReturnDate != nil {
			return makeErr(ErrAlreadyReturned)
		}

		today := fee.DateOf(s.clk.Now())
		fine := fee.Overdue(row.ExpectedReturnDate, today, row.DailyFee, s.cfg.FineMultiplier)

		var sess *striperepo.CreateSessionResp
		if fine.IsPositive() {
			sess, err = s.gw.CreateSession(txCtx, striperepo.CreateSessionReq{
				Amount:      fine,
				Description: fmt.Sprintf("%s fee for %s", model.TypeFine, row.BookTitle),
				Reference:   uuid.NewString(),
			})
			if err != nil {
				return makeErr(ErrGateway)
			}
		}

		ok, err := s.r.MarkReturned(txCtx, borrowingID, today)
		if err != nil {
			return err
		}
		if !ok {
			return makeErr(ErrAlreadyReturned)
		}
		if err := s.r.IncrementInventory(txCtx, row.BookID); err != nil {
			return err
		}

		ret := &Returned{ActualReturnDate: today.Format("2006-01-02"), Fine: fine}
		if sess != nil {
			if err := s.pr.Upsert(txCtx, &model.Payment{
				BorrowingID: borrowingID,
				UserID:      row.UserID,
				Status:      model.PaymentPending,
				Type:        model.TypeFine,
				SessionID:   sess.SessionID,
				SessionURL:  sess.SessionURL,
				MoneyToPay:  fine,
			}); err != nil {
				return err
			}
			ret.FineSessionURL = sess.SessionURL
		}
		out = ret
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) List(ctx context.Context, f model.BorrowingFilter) ([]model.Borrowing, error) {
	return s.r.List(ctx, f)
}

func (s *service) Detail(ctx context.Context, userID int64, staff bool, id int64) (*model.Borrowing, error) {
	b, err := s.r.Detail(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	if !staff && b.UserID != userID {
		return nil, makeErr(ErrNotOwner)
	}
	return b, nil
}
