package handlers

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

type (
	PaymentFailure struct {
		Fragment string
		Reason   string
	}

	// PaymentParse carries either a positive-or-negative amount in cents or
	// the reason the amount was rejected.
	PaymentParse struct {
		Cents   int64
		Failure *PaymentFailure
	}
)

var (
	payPattern    = regexp.MustCompile(`^pay\s+\$\s*(\S*)`)
	amountPattern = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
	hundred       = decimal.NewFromInt(100)
	maxCents      = decimal.NewFromInt(math.MaxInt64)
	minCents      = decimal.NewFromInt(math.MinInt64)
)

// ParsePayment reads "pay $<amount>". Only plain decimal notation is
// accepted, fractions of a cent are truncated toward zero and the result
// must fit in int64 cents.
func ParsePayment(cmd string) PaymentParse {
	cmd = strings.ToLower(strings.TrimSpace(cmd))
	m := payPattern.FindStringSubmatch(cmd)
	if m == nil {
		rest := strings.TrimSpace(strings.TrimPrefix(cmd, "pay"))
		return PaymentParse{Failure: &PaymentFailure{Fragment: rest, Reason: "missing $"}}
	}
	fragment := strings.TrimRight(m[1], ".,!?;")
	if fragment == "" {
		rest := strings.TrimSpace(strings.TrimPrefix(cmd, "pay"))
		return PaymentParse{Failure: &PaymentFailure{Fragment: rest, Reason: "missing amount"}}
	}
	if !amountPattern.MatchString(fragment) {
		return PaymentParse{Failure: &PaymentFailure{Fragment: m[1], Reason: "not a number"}}
	}
	amount, err := decimal.NewFromString(fragment)
	if err != nil {
		return PaymentParse{Failure: &PaymentFailure{Fragment: m[1], Reason: "not a number"}}
	}
	cents := amount.Mul(hundred).Truncate(0)
	if cents.GreaterThan(maxCents) || cents.LessThan(minCents) {
		return PaymentParse{Failure: &PaymentFailure{Fragment: m[1], Reason: "out of range"}}
	}
	return PaymentParse{Cents: cents.IntPart()}
}

// FormatCents renders cents as $D.CC, negative amounts as -$D.CC.
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}
