package order

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"autoorderbot/internal/models"
	"autoorderbot/internal/smm"
)

type fakeOrderFinder struct {
	records map[uint]*models.Order
	updates int
}

func (f *fakeOrderFinder) FindByID(id uint) (*models.Order, error) {
	rec, ok := f.records[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *rec
	return &clone, nil
}

func (f *fakeOrderFinder) UpdatePollResult(id uint, status string, start1, remains1, start2, remains2 int) error {
	rec, ok := f.records[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	rec.Status = status
	rec.StartCount1 = start1
	rec.Remains1 = remains1
	rec.StartCount2 = start2
	rec.Remains2 = remains2
	f.updates++
	return nil
}

type fakeStatusAPI struct {
	statuses map[string]*smm.OrderStatus
	errs     map[string]error
}

func (f *fakeStatusAPI) GetOrderStatus(_ context.Context, orderID string) (*smm.OrderStatus, error) {
	if err, ok := f.errs[orderID]; ok {
		return nil, err
	}
	st, ok := f.statuses[orderID]
	if !ok {
		return nil, errors.New("unknown order")
	}
	return st, nil
}

func TestCompositeStatus(t *testing.T) {
	cases := []struct {
		name     string
		statuses []string
		want     string
	}{
		{"empty is error", nil, models.OrderStatusError},
		{"all success", []string{"Success", "Success"}, models.OrderStatusSuccess},
		{"error wins", []string{"Success", "Error"}, models.OrderStatusError},
		{"partial beats processing", []string{"Partial", "Processing"}, models.OrderStatusPartial},
		{"processing beats in progress", []string{"Processing", "In progress"}, models.OrderStatusProcessing},
		{"in progress beats pending", []string{"In progress", "Pending"}, models.OrderStatusInProgress},
		{"pending alone", []string{"Pending", "Success"}, models.OrderStatusPending},
		{"unknown counts as processing", []string{"Canceled", "Success"}, models.OrderStatusProcessing},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CompositeStatus(tc.statuses))
		})
	}
}

func TestTrackerRefresh(t *testing.T) {
	finder := &fakeOrderFinder{records: map[uint]*models.Order{
		1: {ID: 1, Order1ID: "a1", Order2ID: "a2", Status: models.OrderStatusProcessing},
	}}
	api := &fakeStatusAPI{statuses: map[string]*smm.OrderStatus{
		"a1": {Status: "Success", StartCount: 120, Remains: 0},
		"a2": {Status: "Success", StartCount: 50, Remains: 0},
	}}
	tracker := NewTracker(finder, api, zap.NewNop())

	rec, err := tracker.Refresh(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusSuccess, rec.Status)
	assert.Equal(t, 120, rec.StartCount1)
	assert.Equal(t, 50, rec.StartCount2)
	assert.Equal(t, 1, finder.updates)

	// Refreshing again with unchanged panel state yields the same row.
	rec2, err := tracker.Refresh(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, rec.Status, rec2.Status)
	assert.Equal(t, rec.StartCount1, rec2.StartCount1)
}

func TestTrackerRefreshOneSidedCapsAtPartial(t *testing.T) {
	finder := &fakeOrderFinder{records: map[uint]*models.Order{
		1: {ID: 1, Order1ID: "a1", Order2ID: "", Status: models.OrderStatusProcessing},
	}}
	api := &fakeStatusAPI{statuses: map[string]*smm.OrderStatus{
		"a1": {Status: "Success", StartCount: 10, Remains: 0},
	}}
	tracker := NewTracker(finder, api, zap.NewNop())

	rec, err := tracker.Refresh(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPartial, rec.Status)
}

func TestTrackerRefreshUnplacedRecordStays(t *testing.T) {
	finder := &fakeOrderFinder{records: map[uint]*models.Order{
		1: {ID: 1, Status: models.OrderStatusError},
	}}
	tracker := NewTracker(finder, &fakeStatusAPI{}, zap.NewNop())

	rec, err := tracker.Refresh(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusError, rec.Status)
	assert.Equal(t, 0, finder.updates)
}

func TestTrackerRefreshPollErrorDoesNotPersist(t *testing.T) {
	finder := &fakeOrderFinder{records: map[uint]*models.Order{
		1: {ID: 1, Order1ID: "a1", Order2ID: "a2", Status: models.OrderStatusProcessing},
	}}
	api := &fakeStatusAPI{
		statuses: map[string]*smm.OrderStatus{"a1": {Status: "Success"}},
		errs:     map[string]error{"a2": errors.New("panel timeout")},
	}
	tracker := NewTracker(finder, api, zap.NewNop())

	_, err := tracker.Refresh(context.Background(), 1)
	assert.Error(t, err)
	assert.Equal(t, 0, finder.updates)
	assert.Equal(t, models.OrderStatusProcessing, finder.records[1].Status)
}

func TestTrackerRefreshNotFound(t *testing.T) {
	tracker := NewTracker(&fakeOrderFinder{records: map[uint]*models.Order{}}, &fakeStatusAPI{}, zap.NewNop())

	_, err := tracker.Refresh(context.Background(), 42)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
