package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentRoundTrip(t *testing.T) {
	l, err := NewLog("Trip", "u1", time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	l, err = AppendTransaction(l, TransactionInput{
		Amount: "12.345", Description: "Taxi", Category: "Transportation", Date: NewDate(2024, 1, 1),
	}, func() string { return "tx-1" })
	require.NoError(t, err)

	raw, err := json.Marshal(ToDocument(l))
	require.NoError(t, err)

	var doc LogDocument
	require.NoError(t, json.Unmarshal(raw, &doc))
	back, err := FromDocument("log-1", doc)
	require.NoError(t, err)

	assert.Equal(t, "log-1", back.ID)
	assert.Equal(t, l.Title, back.Title)
	assert.True(t, l.TotalAmount.Equal(back.TotalAmount))
	assert.True(t, l.CreatedAt.Equal(back.CreatedAt))
	require.Len(t, back.Transactions, 1)
	assert.Equal(t, NewDate(2024, 1, 1), back.Transactions[0].Date)
	assert.NoError(t, back.Validate())
}

func TestDocumentJSONShape(t *testing.T) {
	l, err := NewLog("Trip", "u1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	l, err = AppendTransaction(l, TransactionInput{
		Amount: "7.5", Description: "Lunch", Category: "Food", Date: NewDate(2024, 2, 3),
	}, func() string { return "tx-1" })
	require.NoError(t, err)

	raw, err := json.Marshal(ToDocument(l))
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(raw, &generic))
	assert.Equal(t, "Trip", generic["title"])
	assert.Equal(t, "u1", generic["ownerId"])
	assert.Contains(t, string(raw), `"totalAmount":7.50`)
	assert.Contains(t, string(raw), `"date":"2024-02-03"`)
	assert.Contains(t, string(raw), `"transactionCount":1`)
	assert.NotContains(t, generic, "id")

	txs := generic["transactions"].([]any)
	require.Len(t, txs, 1)
	assert.Equal(t, "tx-1", txs[0].(map[string]any)["id"])
}

func TestFromDocumentRejectsBadFields(t *testing.T) {
	_, err := FromDocument("x", LogDocument{TotalAmount: "abc"})
	assert.ErrorIs(t, err, ErrUnparseableAmount)

	_, err = FromDocument("x", LogDocument{
		TotalAmount:  "1.00",
		Transactions: []TransactionDocument{{ID: "t", Amount: "1.00", Date: "yesterday"}},
	})
	assert.Error(t, err)
}
