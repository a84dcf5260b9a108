package borrowingsvc

import (
	"context"
	"fmt"
	"log/slog"

	borrowingrepo "libraryrental/repository/borrowing"
	telegramrepo "libraryrental/repository/telegram"
	"libraryrental/service/fee"
	"libraryrental/util/clock"
)

// OverdueNotifier pings borrowers whose loans are past the expected return
// date and still open.
type OverdueNotifier interface {
	NotifyOverdue(ctx context.Context) (int, error)
}

type overdueNotifier struct {
	r   borrowingrepo.Repo
	n   telegramrepo.Repo
	clk clock.Clock
}

func NewOverdueNotifier(r borrowingrepo.Repo, n telegramrepo.Repo, clk clock.Clock) OverdueNotifier {
	return &overdueNotifier{r: r, n: n, clk: clk}
}

func (o *overdueNotifier) NotifyOverdue(ctx context.Context) (int, error) {
	today := fee.DateOf(o.clk.Now())
	rows, err := o.r.ListOverdueOpen(ctx, today)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, row := range rows {
		msg := fmt.Sprintf(
			"Overdue Borrowing:\nBook: %s\nUser: %s\nExpected Return Date: %s\nBorrow Date: %s",
			row.BookTitle,
			row.UserEmail,
			row.ExpectedReturnDate.Format("2006-01-02"),
			row.BorrowDate.Format("2006-01-02"),
		)
		if err := o.n.Send(ctx, msg); err != nil {
			slog.Warn("overdue notification failed", "borrowing_id", row.ID, "err", err)
			continue
		}
		sent++
	}
	return sent, nil
}
