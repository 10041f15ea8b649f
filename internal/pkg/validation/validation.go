package validation

import (
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

// ISO 4217 alpha code: exactly three uppercase letters.
var currencyRe = regexp.MustCompile(`^[A-Z]{3}$`)

func IsValidCurrency(code string) bool {
	return currencyRe.MatchString(code)
}

// IsPositiveAmount reports whether amt is strictly positive with at most two
// decimal places (currency minor-unit precision).
func IsPositiveAmount(amt decimal.Decimal) bool {
	return amt.IsPositive() && amt.Equal(amt.Round(2))
}

// ParseDate parses a YYYY-MM-DD date in UTC.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, time.UTC)
}
