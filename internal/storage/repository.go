package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"spendlog/internal/cache"
	"spendlog/internal/core"

	_ "modernc.org/sqlite"
)

// Fixed-width UTC layout so lexical order in SQL matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteRepository stores one row per log with its categories and
// transactions as JSON documents. It implements ports.LogRepository and
// ports.LogReader.
type SQLiteRepository struct {
	db    *sql.DB
	cache cache.Cache[core.Log]
	newID func() string
}

// Option customises a repository.
type Option func(*SQLiteRepository)

// WithCache puts a read cache in front of Get.
func WithCache(c cache.Cache[core.Log]) Option {
	return func(r *SQLiteRepository) { r.cache = c }
}

func NewSQLiteRepository(dbPath string, opts ...Option) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	r := &SQLiteRepository{db: db, newID: uuid.NewString}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Create inserts l for owner under a fresh ID.
func (r *SQLiteRepository) Create(ctx context.Context, ownerID string, l core.Log) (string, error) {
	if ownerID == "" {
		return "", fmt.Errorf("create log: %w", core.ErrNoSession)
	}
	categories, transactions, err := encodeBody(l.Categories, l.Transactions)
	if err != nil {
		return "", fmt.Errorf("create log: %w", err)
	}

	id := r.newID()
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO logs (id, owner_id, title, total_amount, categories, transactions, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, ownerID, l.Title, core.FormatAmount(l.TotalAmount), categories, transactions,
		formatTime(l.CreatedAt), formatTime(l.UpdatedAt))
	if err != nil {
		return "", fmt.Errorf("insert log: %w", err)
	}

	slog.InfoContext(ctx, "Log saved to SQLite", "log_id", id, "owner_id", ownerID, "title", l.Title)
	return id, nil
}

// Query returns the owner's logs, newest first.
func (r *SQLiteRepository) Query(ctx context.Context, ownerID string) ([]core.Log, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, title, total_amount, categories, transactions, created_at, updated_at
		 FROM logs WHERE owner_id = ? ORDER BY created_at DESC, rowid DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query logs: %w", err)
	}
	defer rows.Close()

	logs := []core.Log{}
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate logs: %w", err)
	}
	return logs, nil
}

// Update rewrites the aggregate fields of a log.
func (r *SQLiteRepository) Update(ctx context.Context, logID string, u core.LogUpdate) error {
	categories, transactions, err := encodeBody(u.Categories, u.Transactions)
	if err != nil {
		return fmt.Errorf("update log %s: %w", logID, err)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE logs SET total_amount = ?, categories = ?, transactions = ?, updated_at = ? WHERE id = ?`,
		core.FormatAmount(u.TotalAmount), categories, transactions, formatTime(u.UpdatedAt), logID)
	if err != nil {
		return fmt.Errorf("update log %s: %w", logID, err)
	}
	r.invalidate(logID)
	return expectOneRow(res, "update", logID)
}

func (r *SQLiteRepository) Delete(ctx context.Context, logID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM logs WHERE id = ?`, logID)
	if err != nil {
		return fmt.Errorf("delete log %s: %w", logID, err)
	}
	r.invalidate(logID)
	if err := expectOneRow(res, "delete", logID); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Log deleted from SQLite", "log_id", logID)
	return nil
}

// Get loads one log by ID, consulting the read cache first.
func (r *SQLiteRepository) Get(ctx context.Context, logID string) (core.Log, error) {
	if r.cache != nil {
		if l, ok := r.cache.Get(logID); ok {
			return l.Clone(), nil
		}
	}
	row := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, title, total_amount, categories, transactions, created_at, updated_at
		 FROM logs WHERE id = ?`, logID)
	l, err := scanLog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Log{}, fmt.Errorf("get log %s: %w", logID, core.ErrNotFound)
	}
	if err != nil {
		return core.Log{}, err
	}
	if r.cache != nil {
		r.cache.Set(logID, l.Clone())
	}
	return l, nil
}

func (r *SQLiteRepository) invalidate(logID string) {
	if r.cache != nil {
		r.cache.Delete(logID)
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLog(s scanner) (core.Log, error) {
	var (
		id, owner, title, total, categories, transactions, created, updated string
	)
	if err := s.Scan(&id, &owner, &title, &total, &categories, &transactions, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Log{}, err
		}
		return core.Log{}, fmt.Errorf("scan log: %w", err)
	}

	var catDocs []core.CategoryDocument
	if err := json.Unmarshal([]byte(categories), &catDocs); err != nil {
		return core.Log{}, fmt.Errorf("decode categories of log %s: %w", id, err)
	}
	var txDocs []core.TransactionDocument
	if err := json.Unmarshal([]byte(transactions), &txDocs); err != nil {
		return core.Log{}, fmt.Errorf("decode transactions of log %s: %w", id, err)
	}
	createdAt, err := time.Parse(timeLayout, created)
	if err != nil {
		return core.Log{}, fmt.Errorf("decode created_at of log %s: %w", id, err)
	}
	updatedAt, err := time.Parse(timeLayout, updated)
	if err != nil {
		return core.Log{}, fmt.Errorf("decode updated_at of log %s: %w", id, err)
	}

	return core.FromDocument(id, core.LogDocument{
		Title:        title,
		TotalAmount:  json.Number(total),
		Categories:   catDocs,
		Transactions: txDocs,
		OwnerID:      owner,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	})
}

func encodeBody(categories []core.Category, transactions []core.Transaction) (string, string, error) {
	c, err := json.Marshal(core.CategoriesToDocument(categories))
	if err != nil {
		return "", "", fmt.Errorf("encode categories: %w", err)
	}
	t, err := json.Marshal(core.TransactionsToDocument(transactions))
	if err != nil {
		return "", "", fmt.Errorf("encode transactions: %w", err)
	}
	return string(c), string(t), nil
}

func expectOneRow(res sql.Result, op, logID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s log %s: rows affected: %w", op, logID, err)
	}
	if n == 0 {
		return fmt.Errorf("%s log %s: %w", op, logID, core.ErrNotFound)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
