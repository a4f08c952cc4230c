package metering

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"ai_gateway/internal/models"
	"ai_gateway/internal/storage"
	"ai_gateway/internal/utils"
)

// DefaultCreditCost is the fixed charge per accepted request.
const DefaultCreditCost = 5

// Result reports a committed charge.
type Result struct {
	Cost      int
	Remaining int // post-debit balance
}

// InsufficientCreditsError is returned when the account balance does
// not cover the fixed cost. It carries both amounts so the endpoint can
// report required vs. available.
type InsufficientCreditsError struct {
	Required  int
	Available int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: required %d, available %d", e.Required, e.Available)
}

// Service gates protected calls behind the check-debit-record transaction.
type Service interface {
	// Charge atomically verifies the balance, debits the fixed cost and
	// records a success audit entry. Exactly one of the following holds
	// afterwards: the debit and its audit entry are both committed, or
	// neither is.
	Charge(ctx context.Context, accountID uuid.UUID, model string, promptLength int) (*Result, error)

	// RecordDenied writes a zero-cost audit entry for a rejected
	// attempt. Best effort: a logging failure here must never mask the
	// caller-visible rejection, so errors are logged and swallowed.
	RecordDenied(ctx context.Context, accountID string, model string, promptLength int)

	// Cost returns the fixed charge per accepted request.
	Cost() int
}

// Ledger is the transactional contract the service needs from the store.
type Ledger interface {
	DebitAndLog(ctx context.Context, accountID uuid.UUID, cost int, entry *models.RequestLog) (int, error)
	GetCredits(ctx context.Context, accountID uuid.UUID) (int, error)
}

// LogStore writes audit entries outside the debit transaction
// (rejection paths only).
type LogStore interface {
	Insert(ctx context.Context, entry *models.RequestLog) error
}

// MeteringService implements Service over the Postgres ledger.
type MeteringService struct {
	ledger Ledger
	logs   LogStore
	cost   int
	logger *utils.Logger
}

// NewMeteringService creates a metering service with a fixed per-request cost.
func NewMeteringService(ledger Ledger, logs LogStore, cost int) *MeteringService {
	if cost <= 0 {
		cost = DefaultCreditCost
	}
	return &MeteringService{
		ledger: ledger,
		logs:   logs,
		cost:   cost,
		logger: utils.NewLogger("metering", utils.Info),
	}
}

// Cost returns the fixed charge per accepted request.
func (s *MeteringService) Cost() int {
	return s.cost
}

// Charge runs the metering transaction for a verified account.
func (s *MeteringService) Charge(ctx context.Context, accountID uuid.UUID, model string, promptLength int) (*Result, error) {
	entry := &models.RequestLog{
		AccountID:    accountID.String(),
		Model:        model,
		PromptLength: promptLength,
		Cost:         s.cost,
		Status:       models.StatusSuccess,
	}

	remaining, err := s.ledger.DebitAndLog(ctx, accountID, s.cost, entry)
	if err == nil {
		return &Result{Cost: s.cost, Remaining: remaining}, nil
	}

	if errors.Is(err, storage.ErrInsufficientCredits) {
		available, balErr := s.ledger.GetCredits(ctx, accountID)
		if balErr != nil {
			// The balance is only needed for the error payload; report
			// zero rather than escalating a read failure.
			s.logger.Warn("failed to read balance for rejection", "account", accountID, "error", balErr)
			available = 0
		}
		s.RecordDenied(ctx, accountID.String(), model, promptLength)
		return nil, &InsufficientCreditsError{Required: s.cost, Available: available}
	}

	// Store failure: the transaction rolled back, nothing was charged
	// and nothing was recorded. Fail closed rather than risk a debit
	// without its audit entry.
	return nil, fmt.Errorf("metering transaction failed: %w", err)
}

// RecordDenied writes the zero-cost audit entry for a rejection path.
func (s *MeteringService) RecordDenied(ctx context.Context, accountID string, model string, promptLength int) {
	entry := &models.RequestLog{
		AccountID:    accountID,
		Model:        model,
		PromptLength: promptLength,
		Cost:         0,
		Status:       models.StatusError,
	}

	if err := s.logs.Insert(ctx, entry); err != nil {
		s.logger.Warn("failed to record denied attempt", "account", accountID, "error", err)
	}
}
