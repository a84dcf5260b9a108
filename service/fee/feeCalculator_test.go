package fee_test

import (
	"testing"
	"time"

	"libraryrental/service/fee"

	"github.com/shopspring/decimal"
)

var day0 = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func d(n int) time.Time { return day0.AddDate(0, 0, n) }

func TestTotal(t *testing.T) {
	cases := []struct {
		name     string
		borrow   time.Time
		expected time.Time
		dailyFee string
		want     string
	}{
		{"one week at 1.00", d(0), d(7), "1.00", "7.00"},
		{"one day at 2.50", d(0), d(1), "2.50", "2.50"},
		{"two weeks at 0.75", d(0), d(14), "0.75", "10.50"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fee := fee.Total(tc.borrow, tc.expected, decimal.RequireFromString(tc.dailyFee))
			if want := decimal.RequireFromString(tc.want); !fee.Equal(want) {
				t.Fatalf("got %s, want %s", fee, want)
			}
		})
	}
}

func TestTotal_IgnoresTimeOfDay(t *testing.T) {
	borrow := time.Date(2025, 3, 1, 23, 59, 0, 0, time.UTC)
	ret := time.Date(2025, 3, 8, 0, 1, 0, 0, time.UTC)
	got := fee.Total(borrow, ret, decimal.RequireFromString("1.00"))
	if want := decimal.RequireFromString("7.00"); !got.Equal(want) {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestOverdue(t *testing.T) {
	daily := decimal.RequireFromString("1.00")

	if got := fee.Overdue(d(7), d(7), daily, 2); !got.IsZero() {
		t.Fatalf("on-time return should be free, got %s", got)
	}
	if got := fee.Overdue(d(7), d(5), daily, 2); !got.IsZero() {
		t.Fatalf("early return should be free, got %s", got)
	}

	got := fee.Overdue(d(7), d(10), daily, 2)
	if want := decimal.RequireFromString("6.00"); !got.Equal(want) {
		t.Fatalf("3 late days at 1.00 x2: got %s, want %s", got, want)
	}
}

func TestOverdue_Multiplier(t *testing.T) {
	daily := decimal.RequireFromString("2.50")
	got := fee.Overdue(d(7), d(8), daily, 3)
	if want := decimal.RequireFromString("7.50"); !got.Equal(want) {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestDays(t *testing.T) {
	if n := fee.Days(d(0), d(7)); n != 7 {
		t.Fatalf("got %d, want 7", n)
	}
	if n := fee.Days(d(7), d(0)); n != -7 {
		t.Fatalf("got %d, want -7", n)
	}
}
