package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"expentrax/internal/amqp"
	"expentrax/internal/core"
	ports "expentrax/internal/sheets"
)

var errBroker = errors.New("broker down")

type fakePublisher struct {
	mu        sync.Mutex
	created   []core.Transaction
	prompts   []amqp.BudgetPromptMessage
	summaries []amqp.PeriodSummaryMessage
	failFor   map[int64]bool
	failAll   bool
}

func (p *fakePublisher) PublishTransactionCreated(_ context.Context, tx core.Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failAll {
		return errBroker
	}
	p.created = append(p.created, tx)
	return nil
}

func (p *fakePublisher) PublishBudgetPrompt(_ context.Context, owner int64, monthID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failAll || p.failFor[owner] {
		return errBroker
	}
	p.prompts = append(p.prompts, *amqp.NewBudgetPromptMessage(owner, monthID))
	return nil
}

func (p *fakePublisher) PublishPeriodSummary(_ context.Context, msg *amqp.PeriodSummaryMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failAll || p.failFor[msg.Owner] {
		return errBroker
	}
	p.summaries = append(p.summaries, *msg)
	return nil
}

type fakeSheet struct {
	rows []ports.SummaryRow
}

func (f *fakeSheet) AppendSummary(_ context.Context, row ports.SummaryRow) (string, error) {
	f.rows = append(f.rows, row)
	return "Summaries!A1:G1", nil
}

func utcAt(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}
