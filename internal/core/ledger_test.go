package core

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestDefaultCategoriesAreFreshAndZeroed(t *testing.T) {
	a := DefaultCategories()
	b := DefaultCategories()
	require.Len(t, a, 10)

	names := map[string]bool{}
	for i, c := range a {
		assert.Equal(t, i+1, c.ID)
		assert.True(t, c.Amount.IsZero())
		assert.Zero(t, c.TransactionCount)
		assert.Zero(t, c.Percentage)
		assert.False(t, names[c.Name], "duplicate category %q", c.Name)
		names[c.Name] = true
	}

	a[0].Name = "mutated"
	assert.Equal(t, "Food", b[0].Name)
	assert.Equal(t, "Food", DefaultCategories()[0].Name)
}

func TestApplyTransactionTouchesOnlyTheNamedCategory(t *testing.T) {
	before := DefaultCategories()
	before[0].Amount = dec("3.00")
	before[0].TransactionCount = 1

	after, err := ApplyTransaction(before, "Food", dec("2.50"))
	require.NoError(t, err)

	assert.Equal(t, "5.50", FormatAmount(after[0].Amount))
	assert.Equal(t, 2, after[0].TransactionCount)
	for i := 1; i < len(before); i++ {
		assert.Equal(t, before[i], after[i])
	}
	// input untouched
	assert.Equal(t, "3.00", FormatAmount(before[0].Amount))
	assert.Equal(t, 1, before[0].TransactionCount)
}

func TestApplyTransactionUnknownCategory(t *testing.T) {
	_, err := ApplyTransaction(DefaultCategories(), "Groceries", dec("1"))
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestRecomputePercentages(t *testing.T) {
	cats := DefaultCategories()
	cats[0].Amount = dec("7.65")
	cats[1].Amount = dec("12.35")

	out := RecomputePercentages(cats, dec("20.00"))
	assert.Equal(t, 38, out[0].Percentage)
	assert.Equal(t, 62, out[1].Percentage)
	for _, c := range out[2:] {
		assert.Zero(t, c.Percentage)
	}
	assert.Zero(t, cats[0].Percentage, "input must not be modified")
}

func TestRecomputePercentagesZeroTotal(t *testing.T) {
	cats := DefaultCategories()
	cats[0].Percentage = 80
	for _, c := range RecomputePercentages(cats, decimal.Zero) {
		assert.Zero(t, c.Percentage)
	}
}

// Independent rounding may leave the sum short of (or above) 100. That is
// accepted, never redistributed.
func TestRecomputePercentagesSumMayDifferFrom100(t *testing.T) {
	cats := DefaultCategories()
	cats[0].Amount = dec("1")
	cats[1].Amount = dec("1")
	cats[2].Amount = dec("1")

	out := RecomputePercentages(cats, dec("3"))
	sum := 0
	for _, c := range out {
		sum += c.Percentage
	}
	assert.Equal(t, 33, out[0].Percentage)
	assert.Equal(t, 33, out[1].Percentage)
	assert.Equal(t, 33, out[2].Percentage)
	assert.Equal(t, 99, sum)

	cats = DefaultCategories()
	cats[0].Amount = dec("0.5")
	cats[1].Amount = dec("0.5")
	cats[2].Amount = dec("1")
	out = RecomputePercentages(cats, dec("2"))
	assert.Equal(t, []int{25, 25, 50}, []int{out[0].Percentage, out[1].Percentage, out[2].Percentage})

	cats = DefaultCategories()
	cats[0].Amount = dec("1")
	cats[1].Amount = dec("1")
	cats[2].Amount = dec("2.5")
	cats[3].Amount = dec("2.5")
	out = RecomputePercentages(cats, dec("7"))
	sum = 0
	for _, c := range out {
		sum += c.Percentage
	}
	// 14.29 -> 14, 14.29 -> 14, 35.71 -> 36, 35.71 -> 36
	assert.Equal(t, 100, sum)
}

func TestPercentageBounds(t *testing.T) {
	assert.Equal(t, 100, percentageOf(dec("5"), dec("5")))
	assert.Equal(t, 100, percentageOf(dec("6"), dec("5")))
	assert.Equal(t, 0, percentageOf(dec("-1"), dec("5")))
	assert.Equal(t, 0, percentageOf(dec("0.01"), dec("100")))
	assert.Equal(t, 1, percentageOf(dec("0.5"), dec("100")))
}
