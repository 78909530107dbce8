package order

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"autoorderbot/internal/models"
	"autoorderbot/internal/smm"
)

// ErrOrderNotFound means no order record exists for the given ID.
var ErrOrderNotFound = errors.New("order record not found")

// OrderFinder is the tracker's slice of the order repository.
type OrderFinder interface {
	FindByID(id uint) (*models.Order, error)
	UpdatePollResult(id uint, status string, start1, remains1, start2, remains2 int) error
}

// StatusAPI is the status slice of the panel client.
type StatusAPI interface {
	GetOrderStatus(ctx context.Context, orderID string) (*smm.OrderStatus, error)
}

// Tracker refreshes order records against the panel on demand. Refresh
// is idempotent: it overwrites with freshly fetched truth and nothing
// else, so calling it twice with no external change yields the same row.
type Tracker struct {
	orders OrderFinder
	api    StatusAPI
	logger *zap.Logger
}

func NewTracker(orders OrderFinder, api StatusAPI, logger *zap.Logger) *Tracker {
	return &Tracker{orders: orders, api: api, logger: logger}
}

// Refresh polls both sub-orders of a record and persists the composite
// status plus the raw start/remains figures. A record with no external
// ids is terminal Error and is not polled.
func (t *Tracker) Refresh(ctx context.Context, id uint) (*models.Order, error) {
	record, err := t.orders.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("load order %d: %w", id, err)
	}

	if !record.Placed() {
		return record, nil
	}

	var statuses []string
	var st1, st2 *smm.OrderStatus

	if record.Order1ID != "" {
		st1, err = t.api.GetOrderStatus(ctx, record.Order1ID)
		if err != nil {
			return nil, fmt.Errorf("poll order %s: %w", record.Order1ID, err)
		}
		statuses = append(statuses, st1.Status)
	}
	if record.Order2ID != "" {
		st2, err = t.api.GetOrderStatus(ctx, record.Order2ID)
		if err != nil {
			return nil, fmt.Errorf("poll order %s: %w", record.Order2ID, err)
		}
		statuses = append(statuses, st2.Status)
	}

	composite := CompositeStatus(statuses)
	if record.Order1ID == "" || record.Order2ID == "" {
		// A sub-order that never reached the panel can't recover; the
		// polled half alone must not upgrade the record past Partial.
		if composite != models.OrderStatusError {
			composite = models.OrderStatusPartial
		}
	}

	record.Status = composite
	if st1 != nil {
		record.StartCount1 = st1.StartCount
		record.Remains1 = st1.Remains
	}
	if st2 != nil {
		record.StartCount2 = st2.StartCount
		record.Remains2 = st2.Remains
	}

	if err := t.orders.UpdatePollResult(record.ID, record.Status,
		record.StartCount1, record.Remains1, record.StartCount2, record.Remains2); err != nil {
		return nil, fmt.Errorf("persist poll result for order %d: %w", id, err)
	}

	return record, nil
}

// CompositeStatus aggregates sub-order statuses by precedence:
// Error > Partial > Processing > In progress > Pending, and Success only
// when every sub-status is Success. Unknown strings count as Processing.
func CompositeStatus(statuses []string) string {
	if len(statuses) == 0 {
		return models.OrderStatusError
	}

	has := func(want string) bool {
		for _, s := range statuses {
			if s == want {
				return true
			}
		}
		return false
	}

	switch {
	case has(models.OrderStatusError):
		return models.OrderStatusError
	case has(models.OrderStatusPartial):
		return models.OrderStatusPartial
	case has(models.OrderStatusProcessing):
		return models.OrderStatusProcessing
	case has(models.OrderStatusInProgress):
		return models.OrderStatusInProgress
	case has(models.OrderStatusPending):
		return models.OrderStatusPending
	}

	for _, s := range statuses {
		if s != models.OrderStatusSuccess {
			return models.OrderStatusProcessing
		}
	}
	return models.OrderStatusSuccess
}
