package core

import (
	"encoding/json"
	"fmt"
	"time"
)

type (
	// LogDocument is the persisted shape of a log. Amounts are JSON numbers
	// with two decimals and dates are YYYY-MM-DD.
	LogDocument struct {
		Title        string                `json:"title"`
		TotalAmount  json.Number           `json:"totalAmount"`
		Categories   []CategoryDocument    `json:"categories"`
		Transactions []TransactionDocument `json:"transactions"`
		OwnerID      string                `json:"ownerId"`
		CreatedAt    time.Time             `json:"createdAt"`
		UpdatedAt    time.Time             `json:"updatedAt"`
	}

	CategoryDocument struct {
		ID               int         `json:"id"`
		Name             string      `json:"name"`
		Amount           json.Number `json:"amount"`
		Percentage       int         `json:"percentage"`
		TransactionCount int         `json:"transactionCount"`
	}

	TransactionDocument struct {
		ID          string      `json:"id"`
		Amount      json.Number `json:"amount"`
		Description string      `json:"description"`
		Category    string      `json:"category"`
		Date        string      `json:"date"`
	}
)

// ToDocument converts a log to its persisted shape. The ID is the document key
// and is not part of the body.
func ToDocument(l Log) LogDocument {
	return LogDocument{
		Title:        l.Title,
		TotalAmount:  json.Number(FormatAmount(l.TotalAmount)),
		Categories:   CategoriesToDocument(l.Categories),
		Transactions: TransactionsToDocument(l.Transactions),
		OwnerID:      l.OwnerID,
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}
}

// FromDocument rebuilds a log stored under id.
func FromDocument(id string, doc LogDocument) (Log, error) {
	total, err := ParseAmount(string(doc.TotalAmount))
	if err != nil {
		return Log{}, fmt.Errorf("log %s total: %w", id, err)
	}
	categories, err := CategoriesFromDocument(doc.Categories)
	if err != nil {
		return Log{}, fmt.Errorf("log %s: %w", id, err)
	}
	transactions, err := TransactionsFromDocument(doc.Transactions)
	if err != nil {
		return Log{}, fmt.Errorf("log %s: %w", id, err)
	}
	return Log{
		ID:           id,
		Title:        doc.Title,
		TotalAmount:  total,
		Categories:   categories,
		Transactions: transactions,
		OwnerID:      doc.OwnerID,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}, nil
}

func CategoriesToDocument(categories []Category) []CategoryDocument {
	out := make([]CategoryDocument, len(categories))
	for i, c := range categories {
		out[i] = CategoryDocument{
			ID:               c.ID,
			Name:             c.Name,
			Amount:           json.Number(FormatAmount(c.Amount)),
			Percentage:       c.Percentage,
			TransactionCount: c.TransactionCount,
		}
	}
	return out
}

func CategoriesFromDocument(docs []CategoryDocument) ([]Category, error) {
	out := make([]Category, len(docs))
	for i, d := range docs {
		amount, err := ParseAmount(string(d.Amount))
		if err != nil {
			return nil, fmt.Errorf("category %q amount: %w", d.Name, err)
		}
		out[i] = Category{
			ID:               d.ID,
			Name:             d.Name,
			Amount:           amount,
			TransactionCount: d.TransactionCount,
			Percentage:       d.Percentage,
		}
	}
	return out, nil
}

func TransactionsToDocument(transactions []Transaction) []TransactionDocument {
	out := make([]TransactionDocument, len(transactions))
	for i, t := range transactions {
		out[i] = TransactionDocument{
			ID:          t.ID,
			Amount:      json.Number(FormatAmount(t.Amount)),
			Description: t.Description,
			Category:    t.Category,
			Date:        t.Date.String(),
		}
	}
	return out
}

func TransactionsFromDocument(docs []TransactionDocument) ([]Transaction, error) {
	out := make([]Transaction, len(docs))
	for i, d := range docs {
		amount, err := ParseAmount(string(d.Amount))
		if err != nil {
			return nil, fmt.Errorf("transaction %s amount: %w", d.ID, err)
		}
		date, err := ParseDate(d.Date)
		if err != nil {
			return nil, fmt.Errorf("transaction %s date: %w", d.ID, err)
		}
		out[i] = Transaction{
			ID:          d.ID,
			Amount:      amount,
			Description: d.Description,
			Category:    d.Category,
			Date:        date,
		}
	}
	return out, nil
}
