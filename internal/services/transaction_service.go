package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"expentrax/internal/amqp"
	"expentrax/internal/core"
	"expentrax/internal/ledger"

	"github.com/google/uuid"
)

// Publisher is the outbound notification surface, implemented by
// *amqp.Client. A nil Publisher disables publishing.
type Publisher interface {
	PublishTransactionCreated(ctx context.Context, tx core.Transaction) error
	PublishBudgetPrompt(ctx context.Context, owner int64, monthID string) error
	PublishPeriodSummary(ctx context.Context, msg *amqp.PeriodSummaryMessage) error
}

// TransactionService orchestrates transaction writes across SQLite and AMQP
type TransactionService struct {
	store     ledger.TransactionWriter
	publisher Publisher
	now       func() time.Time
}

func NewTransactionService(store ledger.TransactionWriter, publisher Publisher) *TransactionService {
	return &TransactionService{
		store:     store,
		publisher: publisher,
		now:       time.Now,
	}
}

// Create validates tx, assigns an id and a UTC timestamp when missing,
// saves it and publishes a creation event. Publishing is best effort.
func (s *TransactionService) Create(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if s.store == nil {
		return core.Transaction{}, fmt.Errorf("transaction service not properly initialized")
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = s.now()
	}
	tx.Timestamp = tx.Timestamp.UTC()

	// Save to SQLite first (fast, reliable)
	id, err := s.store.InsertTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	tx.ID = id

	if err := s.publishCreated(ctx, tx); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"id", tx.ID, "error", err)
		// Don't fail the request - transaction is saved locally
	}

	return tx, nil
}

func (s *TransactionService) publishCreated(ctx context.Context, tx core.Transaction) error {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping transaction event")
		return nil
	}
	return s.publisher.PublishTransactionCreated(ctx, tx)
}
