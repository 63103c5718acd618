package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"expentrax/internal/core"
)

// Routing keys on the direct exchange.
const (
	RoutingTransactionCreated = "transaction.created"
	RoutingBudgetPrompt       = "budget.prompt"
	RoutingPeriodSummary      = "period.summary"
)

// RoutingKeys lists every key the queue is bound to.
var RoutingKeys = []string{RoutingTransactionCreated, RoutingBudgetPrompt, RoutingPeriodSummary}

// TransactionCreatedMessage announces a newly stored transaction.
// Amounts travel as fixed two-digit decimal strings.
type TransactionCreatedMessage struct {
	ID          string    `json:"id"`
	Owner       int64     `json:"owner"`
	Kind        string    `json:"kind"`
	Amount      string    `json:"amount"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	OccurredAt  time.Time `json:"occurred_at"`
	RecurringID int64     `json:"recurring_id,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewTransactionCreatedMessage(tx core.Transaction) *TransactionCreatedMessage {
	return &TransactionCreatedMessage{
		ID:          tx.ID,
		Owner:       tx.Owner,
		Kind:        string(tx.Kind),
		Amount:      tx.Amount.String(),
		Category:    tx.Category.String(),
		Description: tx.Description,
		OccurredAt:  tx.Timestamp.UTC(),
		RecurringID: tx.RecurringID,
		Timestamp:   time.Now().UTC(),
	}
}

// BudgetPromptMessage asks the delivery side to prompt an owner for a
// monthly budget.
type BudgetPromptMessage struct {
	Owner     int64     `json:"owner"`
	Period    string    `json:"period"`
	Timestamp time.Time `json:"timestamp"`
}

func NewBudgetPromptMessage(owner int64, monthID string) *BudgetPromptMessage {
	return &BudgetPromptMessage{Owner: owner, Period: monthID, Timestamp: time.Now().UTC()}
}

// PeriodSummaryMessage carries the totals of a closed period.
type PeriodSummaryMessage struct {
	Owner       int64     `json:"owner"`
	Granularity string    `json:"granularity"`
	Period      string    `json:"period"`
	Income      string    `json:"income"`
	Expense     string    `json:"expense"`
	Balance     string    `json:"balance"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewPeriodSummaryMessage(owner int64, granularity, periodID string, totals core.PeriodTotals) *PeriodSummaryMessage {
	return &PeriodSummaryMessage{
		Owner:       owner,
		Granularity: granularity,
		Period:      periodID,
		Income:      totals.Income.String(),
		Expense:     totals.Expense.String(),
		Balance:     totals.Balance().String(),
		Timestamp:   time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionCreatedMessage) ToJSON() ([]byte, error) { return json.Marshal(m) }

func (m *BudgetPromptMessage) ToJSON() ([]byte, error) { return json.Marshal(m) }

func (m *PeriodSummaryMessage) ToJSON() ([]byte, error) { return json.Marshal(m) }

// Decode parses body according to its routing key and returns a pointer to
// the matching message type.
func Decode(routingKey string, body []byte) (any, error) {
	var msg any
	switch routingKey {
	case RoutingTransactionCreated:
		msg = &TransactionCreatedMessage{}
	case RoutingBudgetPrompt:
		msg = &BudgetPromptMessage{}
	case RoutingPeriodSummary:
		msg = &PeriodSummaryMessage{}
	default:
		return nil, fmt.Errorf("unknown routing key %q", routingKey)
	}
	if err := json.Unmarshal(body, msg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", routingKey, err)
	}
	return msg, nil
}
