package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"budgeting/internal/core"
	ports "budgeting/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Options configures the report exporter. Credentials are a service account
// key, inline or read from a file.
type Options struct {
	SpreadsheetID   string
	SheetName       string // base name, the report year is prefixed
	CredentialsJSON string
	CredentialsFile string
}

// valuesAppender is the slice of the Sheets API the exporter needs.
type valuesAppender interface {
	Append(ctx context.Context, spreadsheetID, rng string, rows [][]any) (updatedRange string, err error)
}

type Client struct {
	values        valuesAppender
	spreadsheetID string
	reportBase    string
}

var _ ports.ReportExporter = (*Client)(nil)

// New creates a Sheets client that exports reports to opts.SpreadsheetID.
func New(ctx context.Context, opts Options) (*Client, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	base := strings.TrimSpace(opts.SheetName)
	if base == "" {
		base = "Budget Report"
	}

	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		values:        serviceAppender{svc: svc},
		spreadsheetID: spreadsheetID,
		reportBase:    base,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	inline := strings.TrimSpace(opts.CredentialsJSON)
	file := strings.TrimSpace(opts.CredentialsFile)

	var credentialsJSON []byte
	var err error

	switch {
	case inline != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		credentialsJSON = []byte(inline)
	case file != "":
		slog.InfoContext(ctx, "Reading service account credentials from file", "path", file)
		credentialsJSON, err = os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created successfully")
	return service, nil
}

// ExportReport appends the report rows below the existing content of the
// year's report sheet, e.g. "2024 Budget Report".
func (c *Client) ExportReport(ctx context.Context, rep core.MonthlyReport) (string, error) {
	if c.values == nil {
		return "", errors.New("sheets service not initialized")
	}
	if !core.ValidMonth(rep.Month) {
		return "", fmt.Errorf("invalid month: %d", rep.Month)
	}

	sheet := yearPrefixedName(c.reportBase, rep.Year)
	rng := fmt.Sprintf("%s!A:%s", sheet, lastColumn(len(ports.Header)))
	ref, err := c.values.Append(ctx, c.spreadsheetID, rng, ports.ReportRows(rep))
	if err != nil {
		return "", fmt.Errorf("append report to %s: %w", sheet, err)
	}

	slog.InfoContext(ctx, "Report exported",
		"owner_id", rep.OwnerID,
		"year", rep.Year,
		"month", rep.Month,
		"rows", len(rep.Rows),
		"range", ref)
	return ref, nil
}

type serviceAppender struct {
	svc *gsheet.Service
}

func (a serviceAppender) Append(ctx context.Context, spreadsheetID, rng string, rows [][]any) (string, error) {
	vr := &gsheet.ValueRange{Values: rows}
	resp, err := a.svc.Spreadsheets.Values.Append(spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", err
	}
	if resp.Updates == nil {
		return rng, nil
	}
	return resp.Updates.UpdatedRange, nil
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}

// lastColumn maps a 1-based column count to its A1 letter, up to Z.
func lastColumn(n int) string {
	if n < 1 {
		n = 1
	}
	if n > 26 {
		n = 26
	}
	return string(rune('A' + n - 1))
}
