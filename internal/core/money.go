// Package core provides the domain types shared by the planner's components.
//
// This file contains the money representation and the dollar formatting used by
// the dashboard cards and chart axis.
package core

import (
	"strconv"
	"strings"
)

// Money is an amount in integer cents.
type Money struct {
	Cents int64
}

// Dollars builds a Money from a whole dollar amount.
func Dollars(d int64) Money {
	return Money{Cents: d * 100}
}

// Float returns the dollar value as a float64 for display purposes.
// Use cents for calculations to avoid floating-point precision issues.
func (m Money) Float() float64 {
	return float64(m.Cents) / 100.0
}

// String formats the amount the way the dashboard shows it.
func (m Money) String() string {
	return FormatDollars(m.Cents)
}

// FormatDollars formats cents as a US dollar string with thousands separators.
//
// Whole amounts drop the fractional part:
//
//	FormatDollars(400000) -> "$4,000"
//	FormatDollars(341050) -> "$3,410.50"
//	FormatDollars(-1500)  -> "-$15"
func FormatDollars(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	whole := groupThousands(strconv.FormatInt(cents/100, 10))
	s := "$" + whole
	if rem := cents % 100; rem != 0 {
		frac := strconv.FormatInt(rem, 10)
		if rem < 10 {
			frac = "0" + frac
		}
		s += "." + frac
	}
	if neg {
		return "-" + s
	}
	return s
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
