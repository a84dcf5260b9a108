// Package fee computes rental and overdue amounts from whole-day date math.
package fee

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateOf truncates t to a calendar date in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Days is the whole-day difference to - from.
func Days(from, to time.Time) int64 {
	return int64(DateOf(to).Sub(DateOf(from)) / (24 * time.Hour))
}

// Total is the rental fee for the planned loan window. The creation invariant
// guarantees expectedReturn is after borrowDate, so the result is positive.
func Total(borrowDate, expectedReturn time.Time, dailyFee decimal.Decimal) decimal.Decimal {
	return dailyFee.Mul(decimal.NewFromInt(Days(borrowDate, expectedReturn)))
}

// Overdue is the fine for a late return: zero when actualReturn is on or
// before expectedReturn, else lateDays * dailyFee * multiplier.
func Overdue(expectedReturn, actualReturn time.Time, dailyFee decimal.Decimal, multiplier int64) decimal.Decimal {
	late := Days(expectedReturn, actualReturn)
	if late <= 0 {
		return decimal.Zero
	}
	return dailyFee.Mul(decimal.NewFromInt(late)).Mul(decimal.NewFromInt(multiplier))
}
