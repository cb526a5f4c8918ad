// Package money holds monetary amounts as integer minor units (cents).
// Balances move through debit/credit chains, so float arithmetic is
// never acceptable here; conversion to decimal happens only at the
// display boundary.
package money

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/currency"
)

// Cents is an amount of money in minor units. Signed: a negative value
// represents a debit when recorded on a transaction.
type Cents int64

var ErrInvalidAmount = errors.New("invalid monetary amount")

// Unit is the wallet currency. Everything in the ledger is a single
// currency; conversion is out of scope.
var Unit = currency.ZAR

// symbol used for display formatting. The ISO code from x/text is kept
// alongside for API payloads.
const symbol = "R"

// FromRand builds an amount from whole currency units.
func FromRand(rand int64) Cents {
	return Cents(rand * 100)
}

// Parse converts a decimal string such as "50", "50.5" or "50.00" into
// minor units. At most two decimal places are accepted.
func Parse(s string) (Cents, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}

	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" {
		return 0, ErrInvalidAmount
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}

	var cents int64
	if hasFrac {
		if len(frac) == 0 || len(frac) > 2 {
			return 0, ErrInvalidAmount
		}
		if len(frac) == 1 {
			frac += "0"
		}
		cents, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, ErrInvalidAmount
		}
	}

	total := units*100 + cents
	if negative {
		total = -total
	}

	return Cents(total), nil
}

// Decimal renders the amount as a plain decimal string, e.g. "50.00".
func (c Cents) Decimal() string {
	v := int64(c)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// Display renders the amount with the currency symbol, e.g. "R50.00".
func (c Cents) Display() string {
	return symbol + c.Decimal()
}

// Code returns the ISO 4217 currency code.
func Code() string {
	return Unit.String()
}

func (c Cents) IsNegative() bool {
	return c < 0
}

func (c Cents) Negate() Cents {
	return -c
}
