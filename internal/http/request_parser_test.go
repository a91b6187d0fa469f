package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"fintrack/internal/core"
)

func TestParseListParams(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantFilter core.Filter
		wantPeriod core.Period
	}{
		{name: "empty query", query: "", wantFilter: core.FilterAll, wantPeriod: core.PeriodAll},
		{name: "income this month", query: "filter=income&period=month", wantFilter: core.FilterIncome, wantPeriod: core.PeriodMonth},
		{name: "expense this year", query: "filter=EXPENSE&period=year", wantFilter: core.FilterExpense, wantPeriod: core.PeriodYear},
		{name: "unknown values fall back", query: "filter=bogus&period=decade", wantFilter: core.FilterAll, wantPeriod: core.PeriodAll},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatalf("parse query: %v", err)
			}
			got := ParseListParams(q)
			if got.Filter != tt.wantFilter {
				t.Errorf("Filter = %q, want %q", got.Filter, tt.wantFilter)
			}
			if got.Period != tt.wantPeriod {
				t.Errorf("Period = %q, want %q", got.Period, tt.wantPeriod)
			}
		})
	}
}

func TestRequestBodyParser_JSON(t *testing.T) {
	body := `{"name": "Rent", "amount": 1799.5, "recurring": false}`
	req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !parser.IsJSON() {
		t.Error("Expected IsJSON() to be true")
	}
	if name := parser.Get("name"); name != "Rent" {
		t.Errorf("Get('name') = %q, want 'Rent'", name)
	}
	if amount := parser.Get("amount"); amount != "1799.5" {
		t.Errorf("Get('amount') = %q, want '1799.5'", amount)
	}
	if flag := parser.Get("recurring"); flag != "false" {
		t.Errorf("Get('recurring') = %q, want 'false'", flag)
	}
}

func TestRequestBodyParser_JSONWithoutContentType(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(`{"name":"Coffee"}`))

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := parser.Get("name"); got != "Coffee" {
		t.Errorf("Get('name') = %q, want 'Coffee'", got)
	}
}

func TestRequestBodyParser_FormData(t *testing.T) {
	body := "name=++Weekly+groceries+&amount=450&category=Groceries"
	req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if parser.IsJSON() {
		t.Error("Expected IsJSON() to be false for form data")
	}
	if name := parser.Get("name"); name != "Weekly groceries" {
		t.Errorf("Get('name') = %q, want trimmed 'Weekly groceries'", name)
	}
	if cat := parser.Get("category"); cat != "Groceries" {
		t.Errorf("Get('category') = %q, want 'Groceries'", cat)
	}
}

func TestRequestBodyParser_EmptyBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(""))

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if val := parser.Get("nonexistent"); val != "" {
		t.Errorf("Get('nonexistent') = %q, want empty string", val)
	}
}

func TestRequestBodyParser_TooLarge(t *testing.T) {
	body := "name=" + strings.Repeat("a", maxBodyBytes+10)
	req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(body))

	if err := NewRequestBodyParser(req).Parse(); err == nil {
		t.Fatal("expected error for oversized body")
	}
}

func TestRequestBodyParser_MalformedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(`{"name":`))
	req.Header.Set("Content-Type", "application/json")

	if err := NewRequestBodyParser(req).Parse(); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestBindAndValidate(t *testing.T) {
	s := &Server{validate: newValidator(core.DefaultPhonePrefix)}

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":`))
		var dst SignInRequest
		err := s.bindAndValidate(req, &dst)
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Message != "Invalid request format" {
			t.Fatalf("err = %v, want invalid request format", err)
		}
	})

	t.Run("valid form", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("email=asha%40example.com&password=secret1"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		var dst SignInRequest
		if err := s.bindAndValidate(req, &dst); err != nil {
			t.Fatalf("bindAndValidate() error = %v", err)
		}
		if dst.Email != "asha@example.com" || dst.Password != "secret1" {
			t.Fatalf("dst = %+v", dst)
		}
	})
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "  Rent  ", want: "Rent"},
		{in: "Coffee\x00\x07", want: "Coffee"},
		{in: "line one\nline two", want: "line one\nline two"},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
