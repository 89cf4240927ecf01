package google

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"budgeting/internal/core"
	ports "budgeting/internal/sheets"
)

type fakeAppender struct {
	spreadsheetID string
	rng           string
	rows          [][]any
	err           error
}

func (f *fakeAppender) Append(_ context.Context, spreadsheetID, rng string, rows [][]any) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.spreadsheetID = spreadsheetID
	f.rng = rng
	f.rows = rows
	return strings.Replace(rng, "A:H", "A10:H12", 1), nil
}

func sampleReport() core.MonthlyReport {
	return core.MonthlyReport{
		OwnerID: "u1",
		Year:    2024,
		Month:   6,
		Rows: []core.ReportRow{
			{Category: "Food — Groceries", Forecast: decimal.NewFromInt(600), Actual: decimal.NewFromInt(580), Variance: decimal.NewFromInt(-20), Budgeted: true},
			{Category: "Transport", Forecast: decimal.NewFromInt(100), Actual: decimal.NewFromInt(90), Variance: decimal.NewFromInt(-10), Budgeted: true},
		},
		TotalForecast: decimal.NewFromInt(700),
		TotalActual:   decimal.NewFromInt(670),
		Variance:      decimal.NewFromInt(-30),
	}
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{CredentialsJSON: "{}"})
	if err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	if err.Error() != "missing spreadsheet id" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	_, err := New(context.Background(), Options{SpreadsheetID: "sheet-1"})
	if err == nil {
		t.Fatal("expected error without credentials")
	}
	if !strings.Contains(err.Error(), "missing service account credentials") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_UnreadableCredentialsFile(t *testing.T) {
	_, err := New(context.Background(), Options{
		SpreadsheetID:   "sheet-1",
		CredentialsFile: filepath.Join(t.TempDir(), "missing.json"),
	})
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("expected read error, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected wrapped os.ErrNotExist, got %v", err)
	}
}

func TestExportReport(t *testing.T) {
	fake := &fakeAppender{}
	c := &Client{values: fake, spreadsheetID: "sheet-1", reportBase: "Budget Report"}

	ref, err := c.ExportReport(context.Background(), sampleReport())
	if err != nil {
		t.Fatalf("ExportReport() error = %v", err)
	}
	if fake.spreadsheetID != "sheet-1" {
		t.Errorf("spreadsheet = %q", fake.spreadsheetID)
	}
	if fake.rng != "2024 Budget Report!A:H" {
		t.Errorf("range = %q, want 2024 Budget Report!A:H", fake.rng)
	}
	if ref != "2024 Budget Report!A10:H12" {
		t.Errorf("ref = %q", ref)
	}
	if len(fake.rows) != 3 {
		t.Fatalf("got %d rows, want 2 categories and a totals row", len(fake.rows))
	}
	if fake.rows[2][2] != ports.TotalLabel || fake.rows[2][4] != "670.00" {
		t.Errorf("unexpected totals row: %v", fake.rows[2])
	}
}

func TestExportReport_Errors(t *testing.T) {
	tests := []struct {
		name   string
		client *Client
		report core.MonthlyReport
		want   string
	}{
		{
			name:   "uninitialized service",
			client: &Client{spreadsheetID: "s"},
			report: sampleReport(),
			want:   "sheets service not initialized",
		},
		{
			name:   "invalid month",
			client: &Client{values: &fakeAppender{}, spreadsheetID: "s", reportBase: "R"},
			report: core.MonthlyReport{Year: 2024, Month: 13},
			want:   "invalid month: 13",
		},
		{
			name:   "api failure",
			client: &Client{values: &fakeAppender{err: errors.New("quota exceeded")}, spreadsheetID: "s", reportBase: "R"},
			report: sampleReport(),
			want:   "append report to 2024 R: quota exceeded",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.client.ExportReport(context.Background(), tt.report)
			if err == nil || err.Error() != tt.want {
				t.Errorf("ExportReport() error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		baseName string
		year     int
		expected string
	}{
		{"Budget Report", 2025, "2025 Budget Report"},
		{"Report", 2024, "2024 Report"},
		{"", 2023, ""},
		{"  Padded  ", 2022, "2022 Padded"},
		{"2025 Already Prefixed", 2024, "2025 Already Prefixed"},
		{"1800 Too Old", 2024, "2024 1800 Too Old"},
	}

	for _, tt := range tests {
		got := yearPrefixedName(tt.baseName, tt.year)
		if got != tt.expected {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q",
				tt.baseName, tt.year, got, tt.expected)
		}
	}
}

func TestLastColumn(t *testing.T) {
	for n, want := range map[int]string{0: "A", 1: "A", 8: "H", 26: "Z", 40: "Z"} {
		if got := lastColumn(n); got != want {
			t.Errorf("lastColumn(%d) = %q, want %q", n, got, want)
		}
	}
}
