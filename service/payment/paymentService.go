package paymentsvc

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"libraryrental/model"
	paymentrepo "libraryrental/repository/payment"
	striperepo "libraryrental/repository/stripe"
	telegramrepo "libraryrental/repository/telegram"
)

// errors used by controllers

type ErrCode string

const (
	ErrPaymentNotFound  ErrCode = "PAYMENT_NOT_FOUND"
	ErrAlreadyTerminal  ErrCode = "ALREADY_TERMINAL"
	ErrSessionNotPaid   ErrCode = "SESSION_NOT_PAID"
	ErrNoExpiredPayment ErrCode = "NO_EXPIRED_PAYMENT"
	ErrNotOwner         ErrCode = "NOT_OWNER"
	ErrNotFound         ErrCode = "NOT_FOUND"
	ErrGateway          ErrCode = "GATEWAY_UNAVAILABLE"
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

type Renewed struct {
	PaymentID  int64
	SessionID  string
	SessionURL string
}

type Service interface {
	// HandleSuccess reconciles the gateway's success redirect for a session.
	HandleSuccess(ctx context.Context, sessionID string) error

	// SweepExpired asks the gateway about every PENDING payment and marks the
	// expired ones. Safe to rerun; never overwrites a concurrent PAID.
	SweepExpired(ctx context.Context) (int, error)

	// RenewExpired reopens the user's oldest EXPIRED payment with a fresh session.
	RenewExpired(ctx context.Context, userID int64) (*Renewed, error)

	List(ctx context.Context, userID int64, staff bool) ([]model.Payment, error)
	Detail(ctx context.Context, userID int64, staff bool, id int64) (*model.Payment, error)
}

// ----- Service implementation -----

type service struct {
	pr paymentrepo.Repo
	gw striperepo.Repo
	n  telegramrepo.Repo
}

func New(pr paymentrepo.Repo, gw striperepo.Repo, n telegramrepo.Repo) Service {
	return &service{pr: pr, gw: gw, n: n}
}

func (s *service) HandleSuccess(ctx context.Context, sessionID string) error {
	row, err := s.pr.BySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return makeErr(ErrPaymentNotFound)
		}
		return err
	}
	if row.Status != model.PaymentPending {
		return makeErr(ErrAlreadyTerminal)
	}

	st, err := s.gw.GetSessionStatus(ctx, sessionID)
	if err != nil {
		return makeErr(ErrGateway)
	}
	if st != striperepo.StatusPaid {
		return makeErr(ErrSessionNotPaid)
	}

	ok, err := s.pr.UpdateStatusIfPending(ctx, row.ID, model.PaymentPaid)
	if err != nil {
		return err
	}
	if !ok {
		// Someone else settled it first; do not notify twice.
		return makeErr(ErrAlreadyTerminal)
	}

	msg := fmt.Sprintf(
		"Payment Successful:\nMoney to pay: $%s USD\nType: %s\nBook: %s\nUser: %s",
		row.MoneyToPay.StringFixed(2), row.Type, row.BookTitle, row.UserEmail,
	)
	if err := s.n.Send(ctx, msg); err != nil {
		slog.Warn("payment notification failed", "payment_id", row.ID, "err", err)
	}
	return nil
}

func (s *service) SweepExpired(ctx context.Context) (int, error) {
	sweepRuns.Inc()

	pending, err := s.pr.ListByStatus(ctx, model.PaymentPending)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, p := range pending {
		st, err := s.gw.GetSessionStatus(ctx, p.SessionID)
		if err != nil {
			// One bad session must not abort the whole sweep.
			sweepErrors.Inc()
			slog.Warn("sweep: session status failed", "payment_id", p.ID, "err", err)
			continue
		}
		if st != striperepo.StatusExpired {
			continue
		}
		ok, err := s.pr.UpdateStatusIfPending(ctx, p.ID, model.PaymentExpired)
		if err != nil {
			sweepErrors.Inc()
			slog.Warn("sweep: status write failed", "payment_id", p.ID, "err", err)
			continue
		}
		if ok {
			sweepExpired.Inc()
			expired++
		}
	}
	return expired, nil
}

func (s *service) RenewExpired(ctx context.Context, userID int64) (*Renewed, error) {
	p, err := s.pr.OldestExpiredByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, makeErr(ErrNoExpiredPayment)
	}

	sess, err := s.gw.CreateSession(ctx, striperepo.CreateSessionReq{
		Amount:      p.MoneyToPay,
		Description: fmt.Sprintf("%s fee renewal for borrowing %d", p.Type, p.BorrowingID),
		Reference:   fmt.Sprintf("renewal:%d", p.ID),
	})
	if err != nil {
		return nil, makeErr(ErrGateway)
	}

	ok, err := s.pr.RenewSession(ctx, p.ID, sess.SessionID, sess.SessionURL)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Paid or renewed concurrently.
		return nil, makeErr(ErrNoExpiredPayment)
	}

	return &Renewed{PaymentID: p.ID, SessionID: sess.SessionID, SessionURL: sess.SessionURL}, nil
}

func (s *service) List(ctx context.Context, userID int64, staff bool) ([]model.Payment, error) {
	return s.pr.List(ctx, userID, staff)
}

func (s *service) Detail(ctx context.Context, userID int64, staff bool, id int64) (*model.Payment, error) {
	p, err := s.pr.Detail(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, makeErr(ErrNotFound)
		}
		return nil, err
	}
	if !staff && p.UserID != userID {
		return nil, makeErr(ErrNotOwner)
	}
	return p, nil
}
