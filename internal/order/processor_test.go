package order

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"autoorderbot/internal/config"
	"autoorderbot/internal/models"
	"autoorderbot/internal/repository"
)

type fakeLedger struct {
	mu       sync.Mutex
	balances map[string]int
}

func newFakeLedger(userID string, balance int) *fakeLedger {
	return &fakeLedger{balances: map[string]int{userID: balance}}
}

func (l *fakeLedger) Balance(userID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[userID], nil
}

func (l *fakeLedger) TryDebit(userID string, amount int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if amount <= 0 {
		return nil
	}
	if l.balances[userID] < amount {
		return repository.ErrInsufficientBalance
	}
	l.balances[userID] -= amount
	return nil
}

func (l *fakeLedger) DebitUpTo(userID string, amount int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if amount <= 0 {
		return 0, nil
	}
	if l.balances[userID] < amount {
		amount = l.balances[userID]
	}
	l.balances[userID] -= amount
	return amount, nil
}

type fakeOrderStore struct {
	mu      sync.Mutex
	created []*models.Order
	err     error
}

func (s *fakeOrderStore) Create(order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.created = append(s.created, order)
	return nil
}

type placeKey struct {
	service string
	link    string
}

type fakePlacer struct {
	mu    sync.Mutex
	fail  map[placeKey]bool
	calls int
}

func (p *fakePlacer) PlaceOrder(_ context.Context, serviceID, link string, _ int) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.fail[placeKey{serviceID, link}] {
		return "", errors.New("panel refused order")
	}
	return fmt.Sprintf("ext-%s-%d", serviceID, p.calls), nil
}

type fakeCatalog struct {
	err   error
	calls int
}

func (c *fakeCatalog) Validate(context.Context) error {
	c.calls++
	return c.err
}

func testProcessor(ledger Ledger, store OrderStore, placer OrderPlacer, catalog CatalogValidator) (*Processor, *SessionStore) {
	sessions := NewSessionStore(time.Minute)
	cfg := ProcessorConfig{
		Service1:      config.SMMServiceConfig{ID: "101", Quantity: 1000},
		Service2:      config.SMMServiceConfig{ID: "202", Quantity: 100},
		ProgressEvery: 2,
	}
	return NewProcessor(cfg, ledger, store, placer, catalog, sessions, zap.NewNop()), sessions
}

func runFlow(t *testing.T, p *Processor, userID, text string) *Result {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, p.Start(ctx, userID))
	_, err := p.SubmitLinks(ctx, userID, text)
	require.NoError(t, err)
	_, err = p.Confirm(ctx, userID)
	require.NoError(t, err)

	result, err := p.Execute(ctx, userID, nil)
	require.NoError(t, err)
	return result
}

func TestParseLinks(t *testing.T) {
	links := ParseLinks("http://a\nnot-a-link\nhttps://b\n  \n")
	assert.Equal(t, []string{"http://a", "https://b"}, links)

	assert.Nil(t, ParseLinks("hello world"))
	assert.Nil(t, ParseLinks(""))
	assert.Equal(t, []string{"https://x"}, ParseLinks("  https://x  "))
}

func TestExecuteHappyPath(t *testing.T) {
	ledger := newFakeLedger("u1", 5)
	store := &fakeOrderStore{}
	placer := &fakePlacer{}
	p, _ := testProcessor(ledger, store, placer, &fakeCatalog{})

	result := runFlow(t, p, "u1", "http://a\nhttps://b")

	assert.Equal(t, 2, result.Total)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 2, result.Charged)
	assert.Equal(t, 3, result.NewBalance)
	assert.NotEmpty(t, result.BatchID)

	require.Len(t, store.created, 2)
	for _, rec := range store.created {
		assert.Equal(t, "u1", rec.UserID)
		assert.Equal(t, result.BatchID, rec.BatchID)
		assert.Equal(t, models.OrderStatusProcessing, rec.Status)
		assert.NotEmpty(t, rec.Order1ID)
		assert.NotEmpty(t, rec.Order2ID)
	}

	// Flow done, session gone.
	assert.Empty(t, p.Stage("u1"))
}

func TestExecuteMixedBatchChargesSuccessesOnly(t *testing.T) {
	ledger := newFakeLedger("u1", 5)
	store := &fakeOrderStore{}
	placer := &fakePlacer{fail: map[placeKey]bool{
		{"202", "https://b"}: true,
	}}
	p, _ := testProcessor(ledger, store, placer, &fakeCatalog{})

	result := runFlow(t, p, "u1", "http://a\nhttps://b")

	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Charged)
	assert.Equal(t, 4, result.NewBalance)

	require.Len(t, store.created, 2)
	var failedRec *models.Order
	for _, rec := range store.created {
		if rec.Link == "https://b" {
			failedRec = rec
		}
	}
	require.NotNil(t, failedRec)
	assert.Equal(t, models.OrderStatusError, failedRec.Status)
	// The accepted half keeps its id for audit.
	assert.NotEmpty(t, failedRec.Order1ID)
	assert.Empty(t, failedRec.Order2ID)
}

func TestExecuteChargeFailedLinksFlag(t *testing.T) {
	ledger := newFakeLedger("u1", 5)
	store := &fakeOrderStore{}
	placer := &fakePlacer{fail: map[placeKey]bool{
		{"101", "https://b"}: true,
		{"202", "https://b"}: true,
	}}
	p, _ := testProcessor(ledger, store, placer, &fakeCatalog{})
	p.cfg.ChargeFailedLinks = true

	result := runFlow(t, p, "u1", "http://a\nhttps://b")

	assert.Equal(t, 1, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 2, result.Charged)
	assert.Equal(t, 3, result.NewBalance)
}

func TestStartRequiresPositiveBalance(t *testing.T) {
	p, sessions := testProcessor(newFakeLedger("u1", 0), &fakeOrderStore{}, &fakePlacer{}, &fakeCatalog{})

	err := p.Start(context.Background(), "u1")
	assert.ErrorIs(t, err, repository.ErrInsufficientBalance)
	assert.Equal(t, 0, sessions.Len())
}

func TestStartRequiresCatalog(t *testing.T) {
	catalog := &fakeCatalog{err: errors.New("service gone")}
	p, sessions := testProcessor(newFakeLedger("u1", 5), &fakeOrderStore{}, &fakePlacer{}, catalog)

	err := p.Start(context.Background(), "u1")
	assert.Error(t, err)
	assert.Equal(t, 0, sessions.Len())
}

func TestSubmitLinksNoValidLinksKeepsSession(t *testing.T) {
	p, _ := testProcessor(newFakeLedger("u1", 5), &fakeOrderStore{}, &fakePlacer{}, &fakeCatalog{})
	ctx := context.Background()

	require.NoError(t, p.Start(ctx, "u1"))
	_, err := p.SubmitLinks(ctx, "u1", "no links here")
	assert.ErrorIs(t, err, ErrNoValidLinks)

	// User can resend without restarting the flow.
	assert.Equal(t, StageAwaitingLinks, p.Stage("u1"))
	summary, err := p.SubmitLinks(ctx, "u1", "http://a")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Links)
}

func TestSubmitLinksOverBalanceKeepsSession(t *testing.T) {
	p, _ := testProcessor(newFakeLedger("u1", 2), &fakeOrderStore{}, &fakePlacer{}, &fakeCatalog{})
	ctx := context.Background()

	require.NoError(t, p.Start(ctx, "u1"))
	summary, err := p.SubmitLinks(ctx, "u1", "http://a\nhttp://b\nhttp://c")
	assert.ErrorIs(t, err, repository.ErrInsufficientBalance)
	require.NotNil(t, summary)
	assert.Equal(t, 3, summary.Links)
	assert.Equal(t, 2, summary.Balance)
	assert.Equal(t, StageAwaitingLinks, p.Stage("u1"))
}

func TestConfirmWithoutSession(t *testing.T) {
	p, _ := testProcessor(newFakeLedger("u1", 5), &fakeOrderStore{}, &fakePlacer{}, &fakeCatalog{})

	_, err := p.Confirm(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestConfirmBalanceDropClearsSession(t *testing.T) {
	ledger := newFakeLedger("u1", 3)
	p, _ := testProcessor(ledger, &fakeOrderStore{}, &fakePlacer{}, &fakeCatalog{})
	ctx := context.Background()

	require.NoError(t, p.Start(ctx, "u1"))
	_, err := p.SubmitLinks(ctx, "u1", "http://a\nhttp://b\nhttp://c")
	require.NoError(t, err)

	// Balance shrinks between submit and confirm.
	_, err = ledger.DebitUpTo("u1", 2)
	require.NoError(t, err)

	_, err = p.Confirm(ctx, "u1")
	assert.ErrorIs(t, err, repository.ErrInsufficientBalance)
	assert.Empty(t, p.Stage("u1"))
}

func TestExecuteCatalogFailureAbortsWithoutCharge(t *testing.T) {
	ledger := newFakeLedger("u1", 5)
	catalog := &fakeCatalog{}
	placer := &fakePlacer{}
	p, _ := testProcessor(ledger, &fakeOrderStore{}, placer, catalog)
	ctx := context.Background()

	require.NoError(t, p.Start(ctx, "u1"))
	_, err := p.SubmitLinks(ctx, "u1", "http://a")
	require.NoError(t, err)
	_, err = p.Confirm(ctx, "u1")
	require.NoError(t, err)

	// Catalog goes bad right before execution.
	catalog.err = errors.New("price moved")
	_, err = p.Execute(ctx, "u1", nil)
	assert.Error(t, err)

	balance, _ := ledger.Balance("u1")
	assert.Equal(t, 5, balance)
	assert.Equal(t, 0, placer.calls)
	assert.Empty(t, p.Stage("u1"))
}

func TestExecuteReportsProgress(t *testing.T) {
	p, _ := testProcessor(newFakeLedger("u1", 10), &fakeOrderStore{}, &fakePlacer{}, &fakeCatalog{})
	ctx := context.Background()

	require.NoError(t, p.Start(ctx, "u1"))
	_, err := p.SubmitLinks(ctx, "u1", "http://a\nhttp://b\nhttp://c\nhttp://d\nhttp://e")
	require.NoError(t, err)
	_, err = p.Confirm(ctx, "u1")
	require.NoError(t, err)

	var snapshots []Progress
	_, err = p.Execute(ctx, "u1", func(pr Progress) {
		snapshots = append(snapshots, pr)
	})
	require.NoError(t, err)

	// ProgressEvery=2 over 5 links: snapshots after link 2 and link 4.
	require.Len(t, snapshots, 2)
	assert.Equal(t, 2, snapshots[0].Done)
	assert.Equal(t, 4, snapshots[1].Done)
	assert.Equal(t, 5, snapshots[1].Total)
}

func TestCancelRefusedWhileExecuting(t *testing.T) {
	p, sessions := testProcessor(newFakeLedger("u1", 5), &fakeOrderStore{}, &fakePlacer{}, &fakeCatalog{})

	sessions.Put(&Session{UserID: "u1", Stage: StageExecuting, Links: []string{"http://a"}})
	assert.False(t, p.Cancel("u1"))
	assert.Equal(t, StageExecuting, p.Stage("u1"))

	sessions.Put(&Session{UserID: "u1", Stage: StageAwaitingConfirm, Links: []string{"http://a"}})
	assert.True(t, p.Cancel("u1"))
	assert.Empty(t, p.Stage("u1"))

	// Cancelling an idle user is a no-op success.
	assert.True(t, p.Cancel("nobody"))
}

func TestConcurrentDebitsNeverOverspend(t *testing.T) {
	ledger := newFakeLedger("u1", 10)

	var wg sync.WaitGroup
	succeeded := make(chan int, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ledger.TryDebit("u1", 1); err == nil {
				succeeded <- 1
			}
		}()
	}
	wg.Wait()
	close(succeeded)

	total := 0
	for range succeeded {
		total++
	}
	assert.Equal(t, 10, total)

	balance, _ := ledger.Balance("u1")
	assert.Equal(t, 0, balance)
}
