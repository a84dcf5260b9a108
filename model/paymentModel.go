// model/payment.go
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
	PaymentExpired PaymentStatus = "EXPIRED"
)

type PaymentType string

const (
	TypePayment PaymentType = "PAYMENT"
	TypeFine    PaymentType = "FINE"
)

// Payment tracks one external checkout session for a borrowing. At most one
// PAYMENT and one FINE row exist per borrowing; status moves PENDING->PAID or
// PENDING->EXPIRED and both are terminal (EXPIRED can be renewed back to
// PENDING with a fresh session).
type Payment struct {
	ID          int64           `json:"id"`
	BorrowingID int64           `json:"borrowing_id"`
	UserID      int64           `json:"user_id"`
	Status      PaymentStatus   `json:"status"`
	Type        PaymentType     `json:"type"`
	SessionID   string          `json:"session_id"`
	SessionURL  string          `json:"session_url"`
	MoneyToPay  decimal.Decimal `json:"money_to_pay"`
	CreatedAt   time.Time       `json:"created_at"`
}
