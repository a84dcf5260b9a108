package borrowingsvc_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"libraryrental/model"
	bs "libraryrental/service/borrowing"
	"libraryrental/util/clock"
)

type notifierMock struct {
	fail bool
	msgs []string
}

func (n *notifierMock) Send(ctx context.Context, text string) error {
	if n.fail {
		return errors.New("telegram down")
	}
	n.msgs = append(n.msgs, text)
	return nil
}

func seedLoans(store *fakeStore) {
	store.addBook(1, "Dune", 3, "1.00")
	// Overdue and still open.
	store.borrowings[1] = &model.Borrowing{
		ID: 1, UserID: 7, BookID: 1,
		BorrowDate: day(0), ExpectedReturnDate: day(5), IsActive: true,
	}
	// Overdue but already returned.
	ret := day(6)
	store.borrowings[2] = &model.Borrowing{
		ID: 2, UserID: 7, BookID: 1,
		BorrowDate: day(0), ExpectedReturnDate: day(5),
		ActualReturnDate: &ret,
	}
	// Not yet due.
	store.borrowings[3] = &model.Borrowing{
		ID: 3, UserID: 7, BookID: 1,
		BorrowDate: day(0), ExpectedReturnDate: day(30), IsActive: true,
	}
}

func TestNotifyOverdue(t *testing.T) {
	store := newFakeStore()
	seedLoans(store)
	n := &notifierMock{}

	sent, err := bs.NewOverdueNotifier(store, n, clock.NewFixed(day(10))).NotifyOverdue(context.Background())
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if sent != 1 {
		t.Fatalf("sent %d, want 1 (open overdue loan only)", sent)
	}
	if len(n.msgs) != 1 || !strings.Contains(n.msgs[0], "Dune") {
		t.Fatalf("message %v", n.msgs)
	}
	if !strings.Contains(n.msgs[0], day(5).Format("2006-01-02")) {
		t.Fatalf("message misses the expected return date: %q", n.msgs[0])
	}
}

func TestNotifyOverdue_SendFailureIsCountedOut(t *testing.T) {
	store := newFakeStore()
	seedLoans(store)
	n := &notifierMock{fail: true}

	sent, err := bs.NewOverdueNotifier(store, n, clock.NewFixed(day(10))).NotifyOverdue(context.Background())
	if err != nil {
		t.Fatalf("a failing channel must not abort the scan: %v", err)
	}
	if sent != 0 {
		t.Fatalf("sent %d, want 0", sent)
	}
}
