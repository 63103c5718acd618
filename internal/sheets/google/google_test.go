package google

import (
	"testing"
	"time"

	"expentrax/internal/core"
	ports "expentrax/internal/sheets"
)

func TestSummaryValues(t *testing.T) {
	row := ports.SummaryRow{
		Owner:       42,
		Granularity: "month",
		Period:      "2025-06",
		Totals:      core.PeriodTotals{Income: core.MoneyFromCents(300000), Expense: core.MoneyFromCents(125050)},
		GeneratedAt: time.Date(2025, 7, 1, 0, 0, 0, 0, time.FixedZone("MYT", 8*3600)),
	}
	got := toStrings(summaryValues(row))
	want := []string{"2025-06-30T16:00:00Z", "42", "month", "2025-06", "3000.00", "1250.50", "1749.50"}
	if len(got) != len(want) {
		t.Fatalf("summaryValues() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("column %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParseAndFindSummary(t *testing.T) {
	values := [][]interface{}{
		{"Generated", "Owner", "Granularity", "Period", "Income", "Expense", "Balance"},
		{"2025-06-02T00:00:00Z", "42", "week", "2025-W22", "0.00", "10.00", "-10.00"},
		{"2025-07-01T00:00:00Z", "42", "month", "2025-06", "3000.00", "1250.50", "1749.50"},
		{"short"},
	}
	keys := parseSummaryRows(values)
	if len(keys) != 2 {
		t.Fatalf("parseSummaryRows() returned %d keys, want 2", len(keys))
	}

	idx := findSummary(keys, ports.SummaryRow{Owner: 42, Granularity: "month", Period: "2025-06"})
	if idx != 2 {
		t.Errorf("findSummary() = %d, want 2", idx)
	}
	if idx := findSummary(keys, ports.SummaryRow{Owner: 7, Granularity: "month", Period: "2025-06"}); idx != -1 {
		t.Errorf("findSummary() for another owner = %d, want -1", idx)
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		year int
		want string
	}{
		{"Summaries", 2025, "2025 Summaries"},
		{"2024 Summaries", 2025, "2024 Summaries"},
		{"  Summaries  ", 2026, "2026 Summaries"},
		{"", 2025, ""},
	}
	for _, tt := range tests {
		if got := yearPrefixedName(tt.base, tt.year); got != tt.want {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tt.base, tt.year, got, tt.want)
		}
	}
}

func TestPeriodYear(t *testing.T) {
	fallback := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	if y := periodYear("2020-W53", fallback); y != 2020 {
		t.Errorf("periodYear(2020-W53) = %d", y)
	}
	if y := periodYear("", fallback); y != 2030 {
		t.Errorf("periodYear(\"\") = %d, want fallback 2030", y)
	}
}
