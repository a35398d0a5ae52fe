package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// defaultCategoryTemplate seeds every new log. It is the only place the
// default category set is declared.
var defaultCategoryTemplate = [...]Category{
	{ID: 1, Name: "Food"},
	{ID: 2, Name: "Transportation"},
	{ID: 3, Name: "Housing"},
	{ID: 4, Name: "Utilities"},
	{ID: 5, Name: "Shopping"},
	{ID: 6, Name: "Entertainment"},
	{ID: 7, Name: "Health"},
	{ID: 8, Name: "Travel"},
	{ID: 9, Name: "Education"},
	{ID: 10, Name: "Other"},
}

// DefaultCategories returns a fresh, zeroed copy of the category template.
func DefaultCategories() []Category {
	out := make([]Category, len(defaultCategoryTemplate))
	for i, c := range defaultCategoryTemplate {
		c.Amount = zeroAmount
		out[i] = c
	}
	return out
}

// FindCategory returns the index of the category with the given name. It is
// the single place that decides whether a category exists.
func FindCategory(categories []Category, name string) (int, error) {
	name = strings.TrimSpace(name)
	for i, c := range categories {
		if c.Name == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrCategoryNotFound, name)
}

// ApplyTransaction returns a copy of categories where the named entry has
// absorbed amount and one more transaction. Other entries are copied untouched.
func ApplyTransaction(categories []Category, name string, amount decimal.Decimal) ([]Category, error) {
	i, err := FindCategory(categories, name)
	if err != nil {
		return nil, err
	}
	out := append([]Category(nil), categories...)
	out[i].Amount = Round2(out[i].Amount.Add(amount))
	out[i].TransactionCount++
	return out, nil
}

// RecomputePercentages returns a copy of categories with every percentage
// derived from total. Each entry is rounded on its own, so the percentages of a
// log do not necessarily add up to 100.
func RecomputePercentages(categories []Category, total decimal.Decimal) []Category {
	out := append([]Category(nil), categories...)
	for i := range out {
		out[i].Percentage = percentageOf(out[i].Amount, total)
	}
	return out
}

func percentageOf(amount, total decimal.Decimal) int {
	if !total.IsPositive() {
		return 0
	}
	p := amount.Mul(hundred).Div(total).Round(0).IntPart()
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return int(p)
}
