package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	ports "expentrax/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client mirrors closed-period totals into a yearly summary sheet.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// Base name without year (e.g. "Summaries"); the period's year is prefixed.
	summaryBase string
}

// Ensure interface conformance
var _ ports.SummaryWriter = (*Client)(nil)

// Options configures New. Exactly one of CredentialsJSON or CredentialsFile
// is used, JSON first.
type Options struct {
	SpreadsheetID   string
	SummarySheet    string
	CredentialsJSON string
	CredentialsFile string
}

// New creates a Sheets client using service account credentials.
func New(ctx context.Context, opts Options) (*Client, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	base := strings.TrimSpace(opts.SummarySheet)
	if base == "" {
		base = "Summaries"
	}

	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{svc: svc, spreadsheetID: spreadsheetID, summaryBase: base}, nil
}

func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	var credentialsJSON []byte
	var err error

	switch {
	case strings.TrimSpace(opts.CredentialsJSON) != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(opts.CredentialsJSON)
	case strings.TrimSpace(opts.CredentialsFile) != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", opts.CredentialsFile)
		credentialsJSON, err = os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_CREDENTIALS_JSON or GOOGLE_CREDENTIALS_FILE)")
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

// AppendSummary appends row unless the sheet already holds a row for the
// same owner, granularity and period, in which case the existing range is
// returned.
func (c *Client) AppendSummary(ctx context.Context, row ports.SummaryRow) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	sheet := yearPrefixedName(c.summaryBase, periodYear(row.Period, row.GeneratedAt))
	rng := fmt.Sprintf("%s!A:G", sheet)

	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("read %s: %w", rng, err)
	}
	if idx := findSummary(parseSummaryRows(resp.Values), row); idx >= 0 {
		ref := fmt.Sprintf("%s!A%d:G%d", sheet, idx+1, idx+1)
		slog.InfoContext(ctx, "Summary already mirrored",
			"owner", row.Owner, "period", row.Period, "ref", ref)
		return ref, nil
	}

	vr := &gsheet.ValueRange{Values: [][]interface{}{summaryValues(row)}}
	out, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append %s: %w", rng, err)
	}

	ref := sheet
	if out.Updates != nil && out.Updates.UpdatedRange != "" {
		ref = out.Updates.UpdatedRange
	}
	slog.InfoContext(ctx, "Summary appended to sheet",
		"owner", row.Owner,
		"granularity", row.Granularity,
		"period", row.Period,
		"ref", ref)
	return ref, nil
}

// summaryValues lays a row out as Generated, Owner, Granularity, Period,
// Income, Expense, Balance.
func summaryValues(row ports.SummaryRow) []interface{} {
	return []interface{}{
		row.GeneratedAt.UTC().Format(time.RFC3339),
		strconv.FormatInt(row.Owner, 10),
		row.Granularity,
		row.Period,
		row.Totals.Income.String(),
		row.Totals.Expense.String(),
		row.Totals.Balance().String(),
	}
}

// periodYear takes the year from a period identifier, falling back to at.
func periodYear(periodID string, at time.Time) int {
	if len(periodID) >= 4 {
		if y, err := strconv.Atoi(periodID[:4]); err == nil {
			return y
		}
	}
	return at.UTC().Year()
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
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
