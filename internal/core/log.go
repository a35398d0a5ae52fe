package core

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const maxDescriptionLen = 200

// NewLog builds an unsaved log for owner with the default categories, a zero
// total and no transactions. The persistence layer assigns the ID.
func NewLog(title, ownerID string, now time.Time) (Log, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Log{}, invalid("title", ErrEmptyTitle, "title is required")
	}
	return Log{
		Title:        title,
		TotalAmount:  zeroAmount,
		Categories:   DefaultCategories(),
		Transactions: []Transaction{},
		OwnerID:      ownerID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// AppendTransaction returns a new Log with the transaction appended, the total
// advanced and every category percentage recomputed against the new total.
//
// The operation is pure: l is never modified, and on a validation failure no
// part of the update is returned. newID may be nil, in which case a random UUID
// is used.
func AppendTransaction(l Log, in TransactionInput, newID func() string) (Log, error) {
	amount, err := in.validate(l.Categories)
	if err != nil {
		return Log{}, err
	}
	if newID == nil {
		newID = uuid.NewString
	}

	tx := Transaction{
		ID:          newID(),
		Amount:      amount,
		Description: strings.TrimSpace(in.Description),
		Category:    strings.TrimSpace(in.Category),
		Date:        in.Date,
	}

	total := Round2(l.TotalAmount.Add(amount))
	categories, err := ApplyTransaction(l.Categories, tx.Category, amount)
	if err != nil {
		return Log{}, invalid("category", err, "category does not exist in this log")
	}

	out := l.Clone()
	out.Transactions = append(out.Transactions, tx)
	out.TotalAmount = total
	out.Categories = RecomputePercentages(categories, total)
	return out, nil
}

// validate parses the amount and checks the remaining fields against the
// log's categories.
func (in TransactionInput) validate(categories []Category) (decimal.Decimal, error) {
	amount, err := ParseAmount(in.Amount)
	if err != nil {
		return amount, invalid("amount", err, "amount is not a number")
	}
	if !amount.IsPositive() {
		return amount, invalid("amount", ErrInvalidAmount, "amount must be greater than zero")
	}
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return amount, invalid("description", ErrEmptyDescription, "description is required")
	}
	if utf8.RuneCountInString(desc) > maxDescriptionLen {
		return amount, invalid("description", nil, "description too long (max 200 characters)")
	}
	if strings.TrimSpace(in.Category) == "" {
		return amount, invalid("category", ErrEmptyCategory, "category is required")
	}
	if _, err := FindCategory(categories, in.Category); err != nil {
		return amount, invalid("category", err, "category does not exist in this log")
	}
	if err := in.Date.Validate(); err != nil {
		cause := err
		if !errors.Is(err, ErrInvalidDay) && !errors.Is(err, ErrInvalidMonth) {
			cause = nil
		}
		return amount, invalid("date", cause, err.Error())
	}
	return amount, nil
}
