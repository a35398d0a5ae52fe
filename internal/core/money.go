// Package core provides money parsing and handling utilities.
//
// This file contains the amount normalizer: it turns raw user input (typed
// digits, currency formatted strings, numbers) into fixed-point decimals with
// exactly two fractional digits.
package core

import (
	"encoding/json"
	"errors"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

const amountPlaces = 2

var (
	// ErrUnparseableAmount is returned by ParseAmount when nothing numeric
	// survives stripping or the remainder is not a number.
	ErrUnparseableAmount = errors.New("unparseable amount")

	zeroAmount = decimal.New(0, -amountPlaces)
	hundred    = decimal.NewFromInt(100)
)

// ParseAmount converts a raw amount string to a 2-place decimal.
//
// Everything except digits, '.' and '-' is stripped first, so currency symbols
// and thousands separators are ignored. Rounding is half-up (away from zero for
// negative values) on the third decimal place. Negative values are returned
// as-is: rejecting non-positive amounts is the caller's concern.
//
// Examples:
//
//	ParseAmount("12.34")     -> 12.34, nil
//	ParseAmount("$1,234.5")  -> 1234.50, nil
//	ParseAmount("12.345")    -> 12.35, nil (rounds up)
//	ParseAmount("abc")       -> 0.00, ErrUnparseableAmount
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := stripAmount(raw)
	if s == "" {
		return zeroAmount, ErrUnparseableAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return zeroAmount, ErrUnparseableAmount
	}
	return Round2(d), nil
}

// NormalizeAmount is the lenient form of ParseAmount used at input-formatting
// boundaries: anything unparseable becomes 0.00 instead of an error.
func NormalizeAmount(raw string) decimal.Decimal {
	d, err := ParseAmount(raw)
	if err != nil {
		return zeroAmount
	}
	return d
}

// NormalizeValue accepts either a string or a number and normalizes it the
// same way NormalizeAmount does. Unsupported types, NaN and infinities yield 0.00.
func NormalizeValue(v any) decimal.Decimal {
	switch x := v.(type) {
	case string:
		return NormalizeAmount(x)
	case json.Number:
		return NormalizeAmount(string(x))
	case decimal.Decimal:
		return Round2(x)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return zeroAmount
		}
		return Round2(decimal.NewFromFloat(x))
	case float32:
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return zeroAmount
		}
		return Round2(decimal.NewFromFloat32(x))
	case int:
		return Round2(decimal.NewFromInt(int64(x)))
	case int32:
		return Round2(decimal.NewFromInt32(x))
	case int64:
		return Round2(decimal.NewFromInt(x))
	default:
		return zeroAmount
	}
}

// AmountFromTypedCents interprets keypad input as cents, the way an amount field
// fills from the right: "2" -> 0.02, "234" -> 2.34, "$1,000" -> 10.00.
func AmountFromTypedCents(raw string) decimal.Decimal {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	if digits == "" {
		return zeroAmount
	}
	d, err := decimal.NewFromString(digits)
	if err != nil {
		return zeroAmount
	}
	return Round2(d.Shift(-amountPlaces))
}

// Round2 rounds to two decimal places and pins the exponent, so FormatAmount
// always prints two fractional digits.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(amountPlaces)
}

// FormatAmount renders an amount with exactly two fractional digits ("12.30").
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(amountPlaces)
}

// Cents returns the amount in integer cents, for logs and sheet exports.
func Cents(d decimal.Decimal) int64 {
	return Round2(d).Shift(amountPlaces).IntPart()
}

// stripAmount keeps digits, '.' and '-' only.
func stripAmount(raw string) string {
	return strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, raw)
}
