package core

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// ChangeKind names what happened to a log.
type ChangeKind string

const (
	LogCreated ChangeKind = "created"
	LogUpdated ChangeKind = "updated"
	LogDeleted ChangeKind = "deleted"
)

// LogChange is emitted after a mutation has been persisted.
type LogChange struct {
	LogID     string
	OwnerID   string
	Title     string
	Kind      ChangeKind
	Timestamp time.Time
}

// CategoryShare is one line of a log breakdown.
type CategoryShare struct {
	Name             string
	Amount           decimal.Decimal
	TransactionCount int
	Percentage       int
}

// Breakdown lists the categories that hold money, largest first. Ties keep
// template order.
func Breakdown(l Log) []CategoryShare {
	out := make([]CategoryShare, 0, len(l.Categories))
	for _, c := range l.Categories {
		if c.TransactionCount == 0 {
			continue
		}
		out = append(out, CategoryShare{
			Name:             c.Name,
			Amount:           c.Amount,
			TransactionCount: c.TransactionCount,
			Percentage:       c.Percentage,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.GreaterThan(out[j].Amount)
	})
	return out
}
