package core

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1.00", true},
		{"1.0", "1.00", true},
		{"1.23", "1.23", true},
		{"0.01", "0.01", true},
		{"12.345", "12.35", true}, // half-up rounding
		{"12.344", "12.34", true},
		{"1.005", "1.01", true},
		{" 2.50 ", "2.50", true},
		{"$1,234.56", "1234.56", true},
		{"€ 7.65", "7.65", true},
		{".5", "0.50", true},
		{"-1", "-1.00", true},
		{"-12.345", "-12.35", true},
		{"0", "0.00", true},
		{"abc", "0.00", false},
		{"1.2.3", "0.00", false},
		{"-", "0.00", false},
		{"", "0.00", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			require.NoError(t, err, "input %q", tc.in)
		} else {
			require.ErrorIs(t, err, ErrUnparseableAmount, "input %q", tc.in)
		}
		assert.Equal(t, tc.out, FormatAmount(got), "input %q", tc.in)
	}
}

func TestNormalizeAmountFailsSafeToZero(t *testing.T) {
	for _, in := range []string{"", "abc", "$", "1.2.3", "--5"} {
		got := NormalizeAmount(in)
		assert.True(t, got.IsZero(), "input %q", in)
		assert.Equal(t, "0.00", FormatAmount(got), "input %q", in)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{"12.345", "$1,234.5", "0.005", "-3.335", "abc", "", "100", "7.65", "99.999"}
	for _, in := range inputs {
		once := NormalizeAmount(in)
		twice := NormalizeAmount(FormatAmount(once))
		assert.True(t, once.Equal(twice), "input %q: %s != %s", in, once, twice)
		assert.Equal(t, FormatAmount(once), FormatAmount(NormalizeValue(once)), "input %q", in)
	}
}

func TestNormalizeValue(t *testing.T) {
	cases := []struct {
		name string
		in   any
		out  string
	}{
		{"string", "12.345", "12.35"},
		{"float", 12.345, "12.35"},
		{"float32", float32(2.5), "2.50"},
		{"int", 7, "7.00"},
		{"int64", int64(-3), "-3.00"},
		{"json number", json.Number("4.125"), "4.13"},
		{"decimal", decimal.RequireFromString("1.999"), "2.00"},
		{"nan", math.NaN(), "0.00"},
		{"inf", math.Inf(1), "0.00"},
		{"unsupported", struct{}{}, "0.00"},
		{"nil", nil, "0.00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.out, FormatAmount(NormalizeValue(tc.in)))
		})
	}
}

func TestAmountFromTypedCents(t *testing.T) {
	cases := map[string]string{
		"":       "0.00",
		"2":      "0.02",
		"23":     "0.23",
		"234":    "2.34",
		"$1,000": "10.00",
		"0012":   "0.12",
		"abc":    "0.00",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatAmount(AmountFromTypedCents(in)), "input %q", in)
	}
}

func TestCents(t *testing.T) {
	assert.Equal(t, int64(1235), Cents(decimal.RequireFromString("12.345")))
	assert.Equal(t, int64(0), Cents(decimal.Zero))
}
