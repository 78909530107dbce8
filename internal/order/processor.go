package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"autoorderbot/internal/config"
	"autoorderbot/internal/models"
	"autoorderbot/internal/pkg/utils"
	"autoorderbot/internal/repository"
)

var (
	// ErrNoValidLinks means the submitted text contained no http(s) lines.
	ErrNoValidLinks = errors.New("no valid links in message")
	// ErrSessionExpired means a flow step arrived with no matching live
	// session, e.g. a confirm button pressed after TTL expiry or restart.
	ErrSessionExpired = errors.New("order session expired")
)

// Ledger is the balance slice of the user repository.
type Ledger interface {
	Balance(userID string) (int, error)
	TryDebit(userID string, amount int) error
	DebitUpTo(userID string, amount int) (int, error)
}

// OrderStore persists per-link order records.
type OrderStore interface {
	Create(order *models.Order) error
}

// OrderPlacer is the ordering slice of the panel client.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, serviceID, link string, quantity int) (string, error)
}

// CatalogValidator gates execution on the live service catalog.
type CatalogValidator interface {
	Validate(ctx context.Context) error
}

// Progress is a snapshot emitted to the progress callback during a batch.
// Advisory only; reporting cadence has no effect on placement.
type Progress struct {
	Done      int
	Total     int
	Succeeded int
	Failed    int
	Current   string
}

// ProgressFunc receives progress snapshots during Execute.
type ProgressFunc func(Progress)

// Result summarizes one executed batch.
type Result struct {
	BatchID    string
	Total      int
	Succeeded  int
	Failed     int
	Charged    int
	NewBalance int
}

// Summary is returned after links are accepted, before confirmation.
type Summary struct {
	Links   int
	Balance int
}

// ProcessorConfig fixes the service pair and charging policy for batches.
type ProcessorConfig struct {
	Service1      config.SMMServiceConfig
	Service2      config.SMMServiceConfig
	ProgressEvery int
	// ChargeFailedLinks charges every attempted link instead of only the
	// successfully placed ones.
	ChargeFailedLinks bool
}

// Processor drives the order flow state machine:
//
//	AwaitingLinks -> AwaitingConfirm -> AwaitingFinalConfirm -> Executing
//
// One processor serves all accounts; per-account state lives in the
// session store, shared state only in the ledger and order store.
type Processor struct {
	cfg      ProcessorConfig
	ledger   Ledger
	orders   OrderStore
	api      OrderPlacer
	catalog  CatalogValidator
	sessions *SessionStore
	logger   *zap.Logger
}

func NewProcessor(
	cfg ProcessorConfig,
	ledger Ledger,
	orders OrderStore,
	api OrderPlacer,
	catalog CatalogValidator,
	sessions *SessionStore,
	logger *zap.Logger,
) *Processor {
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = 3
	}
	return &Processor{
		cfg:      cfg,
		ledger:   ledger,
		orders:   orders,
		api:      api,
		catalog:  catalog,
		sessions: sessions,
		logger:   logger,
	}
}

// ParseLinks splits the message into lines and keeps those that start
// with http. One line is one link is one limit unit.
func ParseLinks(text string) []string {
	var links []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "http") {
			links = append(links, line)
		}
	}
	return links
}

// Start opens a new order flow for the user, replacing any previous
// session. Requires a positive balance and a passing catalog check; on
// failure no session is created.
func (p *Processor) Start(ctx context.Context, userID string) error {
	balance, err := p.ledger.Balance(userID)
	if err != nil {
		return fmt.Errorf("read balance: %w", err)
	}
	if balance <= 0 {
		return repository.ErrInsufficientBalance
	}

	if err := p.catalog.Validate(ctx); err != nil {
		return err
	}

	p.sessions.Put(&Session{UserID: userID, Stage: StageAwaitingLinks})
	return nil
}

// SubmitLinks parses the user's message into links and advances to the
// confirmation stage. On NoValidLinks or InsufficientBalance the session
// stays in AwaitingLinks so the user can resend.
func (p *Processor) SubmitLinks(ctx context.Context, userID, text string) (*Summary, error) {
	sess, ok := p.sessions.Get(userID)
	if !ok || sess.Stage != StageAwaitingLinks {
		return nil, ErrSessionExpired
	}

	links := ParseLinks(text)
	if len(links) == 0 {
		return nil, ErrNoValidLinks
	}

	balance, err := p.ledger.Balance(userID)
	if err != nil {
		return nil, fmt.Errorf("read balance: %w", err)
	}
	if len(links) > balance {
		return &Summary{Links: len(links), Balance: balance}, repository.ErrInsufficientBalance
	}

	sess.Links = links
	sess.Stage = StageAwaitingConfirm
	p.sessions.Put(sess)

	return &Summary{Links: len(links), Balance: balance}, nil
}

// Confirm advances to the final confirmation gate. The balance is
// re-checked because it may have dropped since SubmitLinks (a second
// device, an admin adjustment); on failure the session is cleared and
// nothing has been debited.
func (p *Processor) Confirm(ctx context.Context, userID string) (int, error) {
	sess, ok := p.sessions.Get(userID)
	if !ok || sess.Stage != StageAwaitingConfirm || len(sess.Links) == 0 {
		return 0, ErrSessionExpired
	}

	balance, err := p.ledger.Balance(userID)
	if err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}
	if balance < len(sess.Links) {
		p.sessions.Delete(userID)
		return 0, repository.ErrInsufficientBalance
	}

	sess.Stage = StageAwaitingFinalConfirm
	p.sessions.Put(sess)
	return len(sess.Links), nil
}

// Execute runs the batch: a last fresh catalog and balance check, then a
// strictly sequential per-link placement loop, then balance
// reconciliation. Once entered, the batch cannot be cancelled; placed
// external orders cannot be unplaced.
func (p *Processor) Execute(ctx context.Context, userID string, progress ProgressFunc) (*Result, error) {
	sess, ok := p.sessions.Get(userID)
	if !ok || sess.Stage != StageAwaitingFinalConfirm || len(sess.Links) == 0 {
		return nil, ErrSessionExpired
	}
	sess.Stage = StageExecuting
	p.sessions.Put(sess)

	// Validate fresh right before spending; prices and the catalog may
	// have changed since Start. Nothing is debited yet, so failing here
	// is a clean abort.
	if err := p.catalog.Validate(ctx); err != nil {
		p.sessions.Delete(userID)
		return nil, err
	}

	balance, err := p.ledger.Balance(userID)
	if err != nil {
		p.sessions.Delete(userID)
		return nil, fmt.Errorf("read balance: %w", err)
	}
	if balance < len(sess.Links) {
		p.sessions.Delete(userID)
		return nil, repository.ErrInsufficientBalance
	}

	batchID := utils.GenerateBatchID()
	succeeded, failed := p.runBatch(ctx, userID, batchID, sess.Links, progress)

	charge := succeeded
	if p.cfg.ChargeFailedLinks {
		charge = succeeded + failed
	}

	charged, err := p.ledger.DebitUpTo(userID, charge)
	if err != nil {
		p.logger.Error("batch reconciliation debit failed",
			zap.String("user_id", userID), zap.String("batch_id", batchID), zap.Error(err))
	} else if charged < charge {
		p.logger.Warn("balance shrank during batch, charged partial",
			zap.String("user_id", userID), zap.String("batch_id", batchID),
			zap.Int("wanted", charge), zap.Int("charged", charged))
	}

	newBalance, err := p.ledger.Balance(userID)
	if err != nil {
		p.logger.Error("read balance after batch failed", zap.String("user_id", userID), zap.Error(err))
	}

	p.sessions.Delete(userID)

	return &Result{
		BatchID:    batchID,
		Total:      len(sess.Links),
		Succeeded:  succeeded,
		Failed:     failed,
		Charged:    charged,
		NewBalance: newBalance,
	}, nil
}

// runBatch places orders link by link. Links are processed sequentially:
// progress stays coherent and the panel sees a bounded request rate. A
// panic anywhere in the loop fails the remaining links; rows already
// written stand.
func (p *Processor) runBatch(ctx context.Context, userID, batchID string, links []string, progress ProgressFunc) (succeeded, failed int) {
	done := 0
	defer func() {
		if r := recover(); r != nil {
			failed += len(links) - done
			p.logger.Error("batch loop panicked, remaining links failed",
				zap.String("user_id", userID), zap.String("batch_id", batchID),
				zap.Int("done", done), zap.Any("panic", r))
		}
	}()

	for i, link := range links {
		if progress != nil && i > 0 && i%p.cfg.ProgressEvery == 0 {
			progress(Progress{Done: i, Total: len(links), Succeeded: succeeded, Failed: failed, Current: link})
		}

		if p.placeLink(ctx, userID, batchID, link) {
			succeeded++
		} else {
			failed++
		}
		done++
	}
	return succeeded, failed
}

// placeLink attempts both configured services for one link and persists
// the record at the moment of the outcome. The link succeeds only when
// both sub-orders are accepted; on a mixed result whatever ids were
// obtained are kept for audit and the row is marked Error.
func (p *Processor) placeLink(ctx context.Context, userID, batchID, link string) bool {
	id1, err1 := p.api.PlaceOrder(ctx, p.cfg.Service1.ID, link, p.cfg.Service1.Quantity)
	if err1 != nil {
		p.logger.Warn("service1 order failed",
			zap.String("link", link), zap.String("batch_id", batchID), zap.Error(err1))
	}
	id2, err2 := p.api.PlaceOrder(ctx, p.cfg.Service2.ID, link, p.cfg.Service2.Quantity)
	if err2 != nil {
		p.logger.Warn("service2 order failed",
			zap.String("link", link), zap.String("batch_id", batchID), zap.Error(err2))
	}

	success := err1 == nil && err2 == nil

	record := &models.Order{
		BatchID:    batchID,
		UserID:     userID,
		Link:       link,
		Service1ID: p.cfg.Service1.ID,
		Service2ID: p.cfg.Service2.ID,
		Order1ID:   id1,
		Order2ID:   id2,
		Quantity1:  p.cfg.Service1.Quantity,
		Quantity2:  p.cfg.Service2.Quantity,
		Status:     models.OrderStatusProcessing,
	}
	if !success {
		record.Status = models.OrderStatusError
	}

	if err := p.orders.Create(record); err != nil {
		// The external orders are already placed; a lost record must not
		// turn the link into a failure for charging purposes.
		p.logger.Error("persist order record failed",
			zap.String("user_id", userID), zap.String("link", link), zap.Error(err))
	}

	return success
}

// Cancel discards the user's pending flow. Refused once execution has
// begun: issued external orders cannot be unwound.
func (p *Processor) Cancel(userID string) bool {
	sess, ok := p.sessions.Get(userID)
	if !ok {
		return true
	}
	if sess.Stage == StageExecuting {
		return false
	}
	p.sessions.Delete(userID)
	return true
}

// Stage returns the user's current flow stage, or "" when idle.
func (p *Processor) Stage(userID string) string {
	sess, ok := p.sessions.Get(userID)
	if !ok {
		return ""
	}
	return sess.Stage
}
