package striperepo

import (
	"context"

	"github.com/shopspring/decimal"
)

type CreateSessionReq struct {
	Amount      decimal.Decimal
	Description string
	Reference   string
}

type CreateSessionResp struct {
	SessionID  string
	SessionURL string
}

type SessionStatus string

const (
	StatusOpen    SessionStatus = "open"
	StatusPaid    SessionStatus = "paid"
	StatusExpired SessionStatus = "expired"
)

type Repo interface {
	CreateSession(ctx context.Context, req CreateSessionReq) (*CreateSessionResp, error)
	GetSessionStatus(ctx context.Context, sessionID string) (SessionStatus, error)
}
