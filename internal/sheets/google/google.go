package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"spendlog/internal/core"
	applog "spendlog/internal/log"
	"spendlog/internal/ports"
)

const maxSheetTitle = 90

// Exporter mirrors each log into its own tab of one spreadsheet.
type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	logger        *applog.Logger

	mu    sync.Mutex
	known map[string]bool // tabs seen to exist
}

var _ ports.LogExporter = (*Exporter)(nil)

// Config selects the spreadsheet and the service account used to reach it.
type Config struct {
	SpreadsheetID   string
	CredentialsJSON string
	CredentialsFile string
}

// NewFromConfig creates an exporter authenticated with a service account.
func NewFromConfig(ctx context.Context, cfg Config, logger *applog.Logger) (*Exporter, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewExporter(svc, cfg.SpreadsheetID, logger), nil
}

// NewExporter wraps an existing Sheets service.
func NewExporter(svc *gsheet.Service, spreadsheetID string, logger *applog.Logger) *Exporter {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Exporter{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		logger:        logger.WithComponent(applog.ComponentSheets),
		known:         make(map[string]bool),
	}
}

// newSheetsService initializes a Sheets Service using Service Account
// credentials, inline or from a file.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		credentialsJSON = []byte(cfg.CredentialsJSON)
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		raw, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = raw
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// ExportLog rewrites the log's tab with its transactions and breakdown.
func (e *Exporter) ExportLog(ctx context.Context, l core.Log) error {
	title := SheetTitle(l.ID, l.Title)
	if err := e.ensureSheet(ctx, title); err != nil {
		return err
	}
	if err := e.clear(ctx, title); err != nil {
		return err
	}

	rows := BuildRows(l)
	_, err := e.svc.Spreadsheets.Values.Update(e.spreadsheetID, quote(title)+"!A1", &gsheet.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write sheet %q: %w", title, err)
	}

	e.logger.InfoContext(ctx, "Log exported",
		applog.NewFields().WithLog(l.ID, l.OwnerID).WithOperation(applog.OpExport).ToSlice()...)
	return nil
}

// RemoveLog clears the tab of a deleted log. A missing tab is not an error.
func (e *Exporter) RemoveLog(ctx context.Context, logID, title string) error {
	name := SheetTitle(logID, title)
	exists, err := e.sheetExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	if err := e.clear(ctx, name); err != nil {
		return err
	}
	e.logger.InfoContext(ctx, "Exported log cleared", applog.FieldLogID, logID)
	return nil
}

func (e *Exporter) clear(ctx context.Context, title string) error {
	_, err := e.svc.Spreadsheets.Values.Clear(e.spreadsheetID, quote(title), &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear sheet %q: %w", title, err)
	}
	return nil
}

func (e *Exporter) ensureSheet(ctx context.Context, title string) error {
	exists, err := e.sheetExists(ctx, title)
	if err != nil || exists {
		return err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
		}},
	}
	if _, err := e.svc.Spreadsheets.BatchUpdate(e.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %q: %w", title, err)
	}
	e.mu.Lock()
	e.known[title] = true
	e.mu.Unlock()
	return nil
}

func (e *Exporter) sheetExists(ctx context.Context, title string) (bool, error) {
	e.mu.Lock()
	if e.known[title] {
		e.mu.Unlock()
		return true, nil
	}
	e.mu.Unlock()

	ss, err := e.svc.Spreadsheets.Get(e.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("get spreadsheet: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			e.known[sh.Properties.Title] = true
		}
	}
	return e.known[title], nil
}

// SheetTitle names the tab for a log: the sanitised title followed by a short
// ID suffix so that logs sharing a title do not collide.
func SheetTitle(logID, title string) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', '*', '?', ':', '/', '\\', '\'':
			return -1
		}
		if r < ' ' {
			return -1
		}
		return r
	}, title)
	clean = strings.Join(strings.Fields(clean), " ")
	if clean == "" {
		clean = "Log"
	}

	suffix := logID
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	if suffix != "" {
		suffix = " (" + suffix + ")"
	}
	if r := []rune(clean); len(r)+len(suffix) > maxSheetTitle {
		clean = string(r[:maxSheetTitle-len(suffix)])
	}
	return clean + suffix
}

// BuildRows lays out a log as sheet rows: transactions first, then the
// category breakdown and the total.
func BuildRows(l core.Log) [][]any {
	rows := [][]any{{"Date", "Description", "Category", "Amount"}}
	for _, t := range l.Transactions {
		rows = append(rows, []any{t.Date.String(), t.Description, t.Category, core.FormatAmount(t.Amount)})
	}
	rows = append(rows, []any{}, []any{"Category", "Amount", "Transactions", "Percentage"})
	for _, share := range core.Breakdown(l) {
		rows = append(rows, []any{share.Name, core.FormatAmount(share.Amount), share.TransactionCount, fmt.Sprintf("%d%%", share.Percentage)})
	}
	rows = append(rows, []any{"Total", core.FormatAmount(l.TotalAmount)})
	return rows
}

func quote(title string) string {
	return "'" + title + "'"
}
