package http

import (
	"encoding/json"

	"spendlog/internal/core"
)

// logView is the API shape of a log: the persisted document plus its ID,
// whether it is the current selection, and its non-empty categories largest
// first.
type logView struct {
	ID string `json:"id"`
	core.LogDocument
	Current   bool        `json:"current"`
	Breakdown []shareView `json:"breakdown"`
}

type shareView struct {
	Name             string      `json:"name"`
	Amount           json.Number `json:"amount"`
	TransactionCount int         `json:"transactionCount"`
	Percentage       int         `json:"percentage"`
}

type logSummaryView struct {
	ID               string      `json:"id"`
	Title            string      `json:"title"`
	TotalAmount      json.Number `json:"totalAmount"`
	TransactionCount int         `json:"transactionCount"`
	Current          bool        `json:"current"`
}

type logListView struct {
	Logs      []logSummaryView `json:"logs"`
	CurrentID string           `json:"currentId,omitempty"`
}

type sessionView struct {
	UserID   string `json:"userId"`
	LogCount int    `json:"logCount"`
}

func newLogView(l core.Log, current bool) logView {
	shares := core.Breakdown(l)
	breakdown := make([]shareView, len(shares))
	for i, s := range shares {
		breakdown[i] = shareView{
			Name:             s.Name,
			Amount:           json.Number(core.FormatAmount(s.Amount)),
			TransactionCount: s.TransactionCount,
			Percentage:       s.Percentage,
		}
	}
	return logView{
		ID:          l.ID,
		LogDocument: core.ToDocument(l),
		Current:     current,
		Breakdown:   breakdown,
	}
}

func newLogListView(logs []core.Log, currentID string) logListView {
	out := logListView{Logs: make([]logSummaryView, len(logs)), CurrentID: currentID}
	for i, l := range logs {
		out.Logs[i] = logSummaryView{
			ID:               l.ID,
			Title:            l.Title,
			TotalAmount:      json.Number(core.FormatAmount(l.TotalAmount)),
			TransactionCount: len(l.Transactions),
			Current:          l.ID == currentID,
		}
	}
	return out
}
