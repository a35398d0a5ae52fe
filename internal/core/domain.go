package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

type (
	Date struct {
		time.Time
	}

	// Category is one bucket of a log's ledger.
	Category struct {
		ID               int
		Name             string
		Amount           decimal.Decimal
		TransactionCount int
		Percentage       int // 0-100, derived from Amount and the log total
	}

	// Transaction is immutable once appended to a log.
	Transaction struct {
		ID          string
		Amount      decimal.Decimal
		Description string
		Category    string // name of a category of the owning log
		Date        Date
	}

	// Log is a named expense ledger. TotalAmount always equals the rounded sum
	// of the transaction amounts.
	Log struct {
		ID           string
		Title        string
		TotalAmount  decimal.Decimal
		Categories   []Category
		Transactions []Transaction
		OwnerID      string
		CreatedAt    time.Time
		UpdatedAt    time.Time
	}

	// LogUpdate carries the fields rewritten by an append.
	LogUpdate struct {
		TotalAmount  decimal.Decimal
		Categories   []Category
		Transactions []Transaction
		UpdatedAt    time.Time
	}

	// TransactionInput is a raw transaction intent as collected from the user.
	TransactionInput struct {
		Amount      string
		Description string
		Category    string
		Date        Date
	}
)

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// Clone returns a deep copy; the slices of the copy share nothing with l.
func (l Log) Clone() Log {
	out := l
	if l.Categories != nil {
		out.Categories = append([]Category(nil), l.Categories...)
	}
	if l.Transactions != nil {
		out.Transactions = append([]Transaction(nil), l.Transactions...)
	}
	return out
}

// Update extracts the fields an append rewrites.
func (l Log) Update() LogUpdate {
	c := l.Clone()
	return LogUpdate{
		TotalAmount:  c.TotalAmount,
		Categories:   c.Categories,
		Transactions: c.Transactions,
		UpdatedAt:    c.UpdatedAt,
	}
}

// Apply returns a copy of l with u's fields written over it.
func (l Log) Apply(u LogUpdate) Log {
	out := l.Clone()
	out.TotalAmount = u.TotalAmount
	out.Categories = append([]Category(nil), u.Categories...)
	out.Transactions = append([]Transaction(nil), u.Transactions...)
	out.UpdatedAt = u.UpdatedAt
	return out
}

// Category looks up a category by name.
func (l Log) Category(name string) (Category, bool) {
	i, err := FindCategory(l.Categories, name)
	if err != nil {
		return Category{}, false
	}
	return l.Categories[i], true
}

// Validate checks the aggregate invariants: the total matches the transactions,
// every category matches its transactions, and percentages are derived from the
// total.
func (l Log) Validate() error {
	sum := zeroAmount
	perCategory := make(map[string]decimal.Decimal, len(l.Categories))
	counts := make(map[string]int, len(l.Categories))
	for _, t := range l.Transactions {
		sum = sum.Add(t.Amount)
		perCategory[t.Category] = perCategory[t.Category].Add(t.Amount)
		counts[t.Category]++
	}
	if !Round2(sum).Equal(l.TotalAmount) {
		return invalid("totalAmount", ErrInvalidAmount, "total "+FormatAmount(l.TotalAmount)+" does not match transactions sum "+FormatAmount(sum))
	}
	for _, c := range l.Categories {
		if !Round2(perCategory[c.Name]).Equal(c.Amount) || counts[c.Name] != c.TransactionCount {
			return invalid("categories", ErrInvalidAmount, "category "+c.Name+" does not match its transactions")
		}
		if c.Percentage != percentageOf(c.Amount, l.TotalAmount) {
			return invalid("categories", ErrInvalidAmount, "category "+c.Name+" percentage is stale")
		}
	}
	return nil
}
