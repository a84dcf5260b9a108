// model/borrowing.go
package model

import "time"

// Borrowing is a single loan of one book copy to one user. It is OPEN until
// ActualReturnDate is set, then terminally RETURNED.
type Borrowing struct {
	ID                 int64      `json:"id"`
	UserID             int64      `json:"user_id"`
	BookID             int64      `json:"book_id"`
	BorrowDate         time.Time  `json:"borrow_date"`
	ExpectedReturnDate time.Time  `json:"expected_return_date"`
	ActualReturnDate   *time.Time `json:"actual_return_date,omitempty"`
	IsActive           bool       `json:"is_active"`
}

// BorrowingFilter narrows list queries. UserID 0 means all users.
type BorrowingFilter struct {
	UserID   int64
	IsActive *bool
}
