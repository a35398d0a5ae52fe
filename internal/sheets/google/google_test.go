package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"spendlog/internal/core"
)

func sampleLog(t *testing.T) core.Log {
	t.Helper()
	l, err := core.NewLog("Trip", "u1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	l.ID = "0123456789abcdef"
	for _, in := range []core.TransactionInput{
		{Amount: "12.345", Description: "Taxi", Category: "Transportation", Date: core.NewDate(2024, 1, 1)},
		{Amount: "7.65", Description: "Lunch", Category: "Food", Date: core.NewDate(2024, 1, 2)},
	} {
		if l, err = core.AppendTransaction(l, in, nil); err != nil {
			t.Fatal(err)
		}
	}
	return l
}

func TestSheetTitle(t *testing.T) {
	cases := []struct {
		id, title, want string
	}{
		{"0123456789", "Trip", "Trip (01234567)"},
		{"abc", "  Summer:/ 2024?  ", "Summer 2024 (abc)"},
		{"abc", "[]*", "Log (abc)"},
		{"", "Plain", "Plain"},
	}
	for _, tc := range cases {
		if got := SheetTitle(tc.id, tc.title); got != tc.want {
			t.Errorf("SheetTitle(%q, %q) = %q, want %q", tc.id, tc.title, got, tc.want)
		}
	}

	long := SheetTitle("0123456789", strings.Repeat("x", 200))
	if n := len([]rune(long)); n != maxSheetTitle {
		t.Errorf("long title not truncated: %d runes", n)
	}
	if !strings.HasSuffix(long, " (01234567)") {
		t.Errorf("suffix lost on truncation: %q", long)
	}
}

func TestBuildRows(t *testing.T) {
	rows := BuildRows(sampleLog(t))

	if len(rows) != 1+2+2+2+1 {
		t.Fatalf("unexpected row count %d: %v", len(rows), rows)
	}
	if rows[1][1] != "Taxi" || rows[1][3] != "12.35" || rows[1][0] != "2024-01-01" {
		t.Errorf("unexpected first transaction row: %v", rows[1])
	}
	if len(rows[3]) != 0 {
		t.Errorf("expected blank separator row, got %v", rows[3])
	}
	if rows[5][0] != "Transportation" || rows[5][3] != "62%" {
		t.Errorf("largest category first, got %v", rows[5])
	}
	if rows[6][0] != "Food" || rows[6][3] != "38%" {
		t.Errorf("unexpected second category row: %v", rows[6])
	}
	last := rows[len(rows)-1]
	if last[0] != "Total" || last[1] != "20.00" {
		t.Errorf("unexpected total row: %v", last)
	}
}

// fakeSheets records the Sheets API calls the exporter makes.
type fakeSheets struct {
	mu     sync.Mutex
	tabs   []string
	calls  []string
	values [][]any
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path := r.URL.Path
	f.calls = append(f.calls, r.Method+" "+path)
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet:
		var sheets []map[string]any
		for _, tab := range f.tabs {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"title": tab}})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"sheets": sheets})
	case strings.HasSuffix(path, ":batchUpdate"):
		var req gsheet.BatchUpdateSpreadsheetRequest
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &req)
		for _, rq := range req.Requests {
			if rq.AddSheet != nil {
				f.tabs = append(f.tabs, rq.AddSheet.Properties.Title)
			}
		}
		_, _ = io.WriteString(w, `{}`)
	case strings.HasSuffix(path, ":clear"):
		f.values = nil
		_, _ = io.WriteString(w, `{}`)
	case r.Method == http.MethodPut:
		var vr gsheet.ValueRange
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &vr)
		f.values = vr.Values
		_, _ = io.WriteString(w, `{}`)
	default:
		http.Error(w, "unexpected call", http.StatusNotFound)
	}
}

func (f *fakeSheets) count(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func newTestExporter(t *testing.T, fake *fakeSheets) *Exporter {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return NewExporter(svc, "sheet-id", nil)
}

func TestExportLogCreatesTabOnceAndWritesRows(t *testing.T) {
	fake := &fakeSheets{}
	e := newTestExporter(t, fake)
	ctx := context.Background()
	l := sampleLog(t)

	if err := e.ExportLog(ctx, l); err != nil {
		t.Fatalf("export: %v", err)
	}
	if err := e.ExportLog(ctx, l); err != nil {
		t.Fatalf("second export: %v", err)
	}

	if len(fake.tabs) != 1 || fake.tabs[0] != "Trip (01234567)" {
		t.Fatalf("unexpected tabs: %v", fake.tabs)
	}
	if n := fake.count("GET"); n != 1 {
		t.Errorf("spreadsheet metadata fetched %d times, want 1", n)
	}
	if n := fake.count("PUT"); n != 2 {
		t.Errorf("expected 2 value writes, got %d", n)
	}
	if len(fake.values) != len(BuildRows(l)) {
		t.Errorf("written rows = %d, want %d", len(fake.values), len(BuildRows(l)))
	}
}

func TestRemoveLog(t *testing.T) {
	fake := &fakeSheets{tabs: []string{"Trip (01234567)"}}
	e := newTestExporter(t, fake)
	ctx := context.Background()

	if err := e.RemoveLog(ctx, "missing-id", "Other"); err != nil {
		t.Fatalf("remove missing: %v", err)
	}
	if n := fake.count("POST"); n != 0 {
		t.Fatalf("missing tab must not be cleared, got %d POSTs", n)
	}

	if err := e.RemoveLog(ctx, "0123456789abcdef", "Trip"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if n := fake.count("POST"); n != 1 {
		t.Errorf("expected one clear call, got %d", n)
	}
}

func TestNewFromConfigValidation(t *testing.T) {
	if _, err := NewFromConfig(context.Background(), Config{}, nil); err == nil || !strings.Contains(err.Error(), "GOOGLE_SPREADSHEET_ID") {
		t.Fatalf("expected missing spreadsheet error, got %v", err)
	}
	_, err := NewFromConfig(context.Background(), Config{SpreadsheetID: "x"}, nil)
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("expected missing credentials error, got %v", err)
	}
	_, err = NewFromConfig(context.Background(), Config{SpreadsheetID: "x", CredentialsFile: "/nonexistent/sa.json"}, nil)
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("expected file error, got %v", err)
	}
}
