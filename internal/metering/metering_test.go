package metering

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai_gateway/internal/models"
	"ai_gateway/internal/storage"
)

// fakeLedger honors the same contract as the Postgres ledger: the
// balance check and decrement happen under one lock, and the success
// entry is recorded only together with a committed debit.
type fakeLedger struct {
	mu       sync.Mutex
	balances map[uuid.UUID]int
	entries  []*models.RequestLog

	failDebit error // when set, DebitAndLog fails after no mutation
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{balances: make(map[uuid.UUID]int)}
}

func (f *fakeLedger) DebitAndLog(ctx context.Context, accountID uuid.UUID, cost int, entry *models.RequestLog) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failDebit != nil {
		return 0, f.failDebit
	}

	balance := f.balances[accountID]
	if balance < cost {
		return 0, storage.ErrInsufficientCredits
	}
	f.balances[accountID] = balance - cost
	f.entries = append(f.entries, entry)
	return balance - cost, nil
}

func (f *fakeLedger) GetCredits(ctx context.Context, accountID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[accountID], nil
}

type fakeLogStore struct {
	mu      sync.Mutex
	entries []*models.RequestLog
	failErr error
}

func (f *fakeLogStore) Insert(ctx context.Context, entry *models.RequestLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	f.entries = append(f.entries, entry)
	return nil
}

func TestCharge_Success(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger()
	logs := &fakeLogStore{}
	accountID := uuid.New()
	ledger.balances[accountID] = 100

	service := NewMeteringService(ledger, logs, 5)

	result, err := service.Charge(ctx, accountID, "gpt-4", 42)
	require.NoError(t, err)
	assert.Equal(t, 5, result.Cost)
	assert.Equal(t, 95, result.Remaining)

	// Exactly one success entry, with the charged cost.
	require.Len(t, ledger.entries, 1)
	entry := ledger.entries[0]
	assert.Equal(t, accountID.String(), entry.AccountID)
	assert.Equal(t, "gpt-4", entry.Model)
	assert.Equal(t, 42, entry.PromptLength)
	assert.Equal(t, 5, entry.Cost)
	assert.Equal(t, models.StatusSuccess, entry.Status)

	// Nothing on the rejection log path.
	assert.Empty(t, logs.entries)
}

func TestCharge_InsufficientCredits(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger()
	logs := &fakeLogStore{}
	accountID := uuid.New()
	ledger.balances[accountID] = 3

	service := NewMeteringService(ledger, logs, 5)

	result, err := service.Charge(ctx, accountID, "gpt-4", 10)
	require.Error(t, err)
	assert.Nil(t, result)

	var insufficient *InsufficientCreditsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 5, insufficient.Required)
	assert.Equal(t, 3, insufficient.Available)

	// Balance unchanged, exactly one zero-cost rejection entry.
	balance, _ := ledger.GetCredits(ctx, accountID)
	assert.Equal(t, 3, balance)
	assert.Empty(t, ledger.entries)
	require.Len(t, logs.entries, 1)
	assert.Equal(t, 0, logs.entries[0].Cost)
	assert.Equal(t, models.StatusError, logs.entries[0].Status)
}

func TestCharge_BalanceScenario(t *testing.T) {
	// Balance 12, cost 5: succeed to 7, succeed to 2, then reject with
	// required=5 available=2.
	ctx := context.Background()
	ledger := newFakeLedger()
	logs := &fakeLogStore{}
	accountID := uuid.New()
	ledger.balances[accountID] = 12

	service := NewMeteringService(ledger, logs, 5)

	first, err := service.Charge(ctx, accountID, "gpt-4", 10)
	require.NoError(t, err)
	assert.Equal(t, 7, first.Remaining)

	second, err := service.Charge(ctx, accountID, "gpt-4", 10)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Remaining)

	_, err = service.Charge(ctx, accountID, "gpt-4", 10)
	var insufficient *InsufficientCreditsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 5, insufficient.Required)
	assert.Equal(t, 2, insufficient.Available)
}

func TestCharge_ConcurrentNoDoubleSpend(t *testing.T) {
	// N simultaneous requests against (N-1)*cost of balance must yield
	// exactly N-1 successes and 1 rejection, in any arrival order.
	ctx := context.Background()
	ledger := newFakeLedger()
	logs := &fakeLogStore{}
	accountID := uuid.New()

	const n = 20
	const cost = 5
	ledger.balances[accountID] = (n - 1) * cost

	service := NewMeteringService(ledger, logs, cost)

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes, rejections := 0, 0

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.Charge(ctx, accountID, "gpt-4", 10)

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			var insufficient *InsufficientCreditsError
			if errors.As(err, &insufficient) {
				rejections++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, n-1, successes)
	assert.Equal(t, 1, rejections)

	balance, _ := ledger.GetCredits(ctx, accountID)
	assert.Equal(t, 0, balance)

	// One success entry per committed charge, one zero-cost entry for
	// the rejection: no lost charges, no phantom records.
	assert.Len(t, ledger.entries, n-1)
	assert.Len(t, logs.entries, 1)
}

func TestCharge_StoreFailureFailsClosed(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger()
	logs := &fakeLogStore{}
	accountID := uuid.New()
	ledger.balances[accountID] = 100
	ledger.failDebit = errors.New("connection refused")

	service := NewMeteringService(ledger, logs, 5)

	result, err := service.Charge(ctx, accountID, "gpt-4", 10)
	require.Error(t, err)
	assert.Nil(t, result)

	var insufficient *InsufficientCreditsError
	assert.False(t, errors.As(err, &insufficient), "a store failure must not masquerade as a 402")

	// Nothing charged, nothing recorded.
	balance, _ := ledger.GetCredits(ctx, accountID)
	assert.Equal(t, 100, balance)
	assert.Empty(t, ledger.entries)
	assert.Empty(t, logs.entries)
}

func TestRecordDenied(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger()
	logs := &fakeLogStore{}

	service := NewMeteringService(ledger, logs, 5)

	service.RecordDenied(ctx, models.UnknownAccountID, "gpt-4", 17)

	require.Len(t, logs.entries, 1)
	entry := logs.entries[0]
	assert.Equal(t, models.UnknownAccountID, entry.AccountID)
	assert.Equal(t, "gpt-4", entry.Model)
	assert.Equal(t, 17, entry.PromptLength)
	assert.Equal(t, 0, entry.Cost)
	assert.Equal(t, models.StatusError, entry.Status)
}

func TestRecordDenied_SwallowsLogFailure(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger()
	logs := &fakeLogStore{failErr: errors.New("log table unavailable")}

	service := NewMeteringService(ledger, logs, 5)

	// Must not panic or surface anything; the caller-visible rejection
	// always wins over an audit write failure.
	service.RecordDenied(ctx, models.UnknownAccountID, "gpt-4", 17)
	assert.Empty(t, logs.entries)
}

func TestNewMeteringService_DefaultCost(t *testing.T) {
	service := NewMeteringService(newFakeLedger(), &fakeLogStore{}, 0)
	assert.Equal(t, DefaultCreditCost, service.Cost())
}
