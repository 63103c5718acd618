// Package sheets declares the outbound spreadsheet mirror.
package sheets

import (
	"context"
	"time"

	"expentrax/internal/core"
)

// SummaryRow is one closed period's totals, as mirrored to a spreadsheet.
type SummaryRow struct {
	Owner       int64
	Granularity string
	Period      string
	Totals      core.PeriodTotals
	GeneratedAt time.Time
}

// Ports for outbound adapters.
type (
	SummaryWriter interface {
		AppendSummary(ctx context.Context, row SummaryRow) (rowRef string, err error)
	}
)
