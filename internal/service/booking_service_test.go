package service

import (
	"context"
	"os"
	"testing"
	"time"

	"shareit/internal/clock"
	"shareit/internal/database"
	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishJSON(eventType string, payload any) error {
	args := m.Called(eventType, payload)
	return args.Error(0)
}

type bookingFixture struct {
	db        *database.DB
	service   *BookingService
	publisher *mockPublisher
	ownerID   int64
	bookerID  int64
	itemID    int64
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()
	logger := zerolog.New(os.Stdout)
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	owner := &models.User{Name: "Owner", Email: "owner@example.com"}
	require.NoError(t, db.CreateUser(ctx, owner))
	booker := &models.User{Name: "Booker", Email: "booker@example.com"}
	require.NoError(t, db.CreateUser(ctx, booker))
	item := &models.Item{OwnerID: owner.ID, Name: "Drill", Description: "d", Available: true}
	require.NoError(t, db.CreateItem(ctx, item))

	publisher := &mockPublisher{}
	publisher.On("PublishJSON", mock.Anything, mock.Anything).Return(nil)

	service := NewBookingService(db, db, db, publisher, clock.Fixed{Time: testNow}, &logger)
	return &bookingFixture{
		db:        db,
		service:   service,
		publisher: publisher,
		ownerID:   owner.ID,
		bookerID:  booker.ID,
		itemID:    item.ID,
	}
}

func TestCreateBooking(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	dto, err := f.service.Create(ctx, f.bookerID, f.itemID, testNow.Add(time.Hour), testNow.Add(2*time.Hour))
	require.NoError(t, err)
	assert.NotZero(t, dto.ID)
	assert.Equal(t, models.StatusWaiting, dto.Status)
	assert.Equal(t, "Drill", dto.Item.Name)
	assert.Equal(t, "Booker", dto.Booker.Name)
	assert.Equal(t, models.FormatTime(testNow.Add(time.Hour)), dto.Start)

	f.publisher.AssertCalled(t, "PublishJSON", events.EventBookingCreated, mock.Anything)
}

func TestCreateBookingValidation(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	start := testNow.Add(time.Hour)
	end := testNow.Add(2 * time.Hour)

	// Existence is checked before the interval: a missing booker reports
	// not-found even when the dates are also invalid.
	_, err := f.service.Create(ctx, 999, f.itemID, end, start)
	assert.True(t, domain.IsNotFound(err))
	assert.EqualError(t, err, "user with id 999 not found")

	_, err = f.service.Create(ctx, f.bookerID, 999, end, start)
	assert.True(t, domain.IsNotFound(err))
	assert.EqualError(t, err, "item with id 999 not found")

	// start must be strictly before end.
	_, err = f.service.Create(ctx, f.bookerID, f.itemID, end, start)
	assert.True(t, domain.IsUnavailable(err))
	_, err = f.service.Create(ctx, f.bookerID, f.itemID, start, start)
	assert.True(t, domain.IsUnavailable(err))

	// start in the past.
	_, err = f.service.Create(ctx, f.bookerID, f.itemID, testNow.Add(-time.Hour), end)
	assert.True(t, domain.IsUnavailable(err))

	// start exactly at now is allowed.
	_, err = f.service.Create(ctx, f.bookerID, f.itemID, testNow, end)
	assert.NoError(t, err)
}

func TestCreateBookingItemUnavailable(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	item, err := f.db.GetItem(ctx, f.itemID)
	require.NoError(t, err)
	item.Available = false
	require.NoError(t, f.db.UpdateItem(ctx, item))

	_, err = f.service.Create(ctx, f.bookerID, f.itemID, testNow.Add(time.Hour), testNow.Add(2*time.Hour))
	assert.True(t, domain.IsUnavailable(err))
}

func TestDoubleBookingAccepted(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	start := testNow.Add(time.Hour)
	end := testNow.Add(2 * time.Hour)

	_, err := f.service.Create(ctx, f.bookerID, f.itemID, start, end)
	require.NoError(t, err)
	// Same interval again: there is no overlap check.
	_, err = f.service.Create(ctx, f.bookerID, f.itemID, start, end)
	assert.NoError(t, err)
}

func TestApproveBooking(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	dto, err := f.service.Create(ctx, f.bookerID, f.itemID, testNow.Add(time.Hour), testNow.Add(2*time.Hour))
	require.NoError(t, err)

	approved, err := f.service.Approve(ctx, f.ownerID, dto.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, approved.Status)
	f.publisher.AssertCalled(t, "PublishJSON", events.EventBookingApproved, mock.Anything)

	// Terminal: resolving twice fails.
	_, err = f.service.Approve(ctx, f.ownerID, dto.ID, false)
	assert.True(t, domain.IsUnavailable(err))
}

func TestRejectBooking(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	dto, err := f.service.Create(ctx, f.bookerID, f.itemID, testNow.Add(time.Hour), testNow.Add(2*time.Hour))
	require.NoError(t, err)

	rejected, err := f.service.Approve(ctx, f.ownerID, dto.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, rejected.Status)
	f.publisher.AssertCalled(t, "PublishJSON", events.EventBookingRejected, mock.Anything)
}

// Approval by anyone but the owner is a business-rule failure, not an access
// failure, unlike single retrieval.
func TestApproveByNonOwner(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	dto, err := f.service.Create(ctx, f.bookerID, f.itemID, testNow.Add(time.Hour), testNow.Add(2*time.Hour))
	require.NoError(t, err)

	_, err = f.service.Approve(ctx, f.bookerID, dto.ID, true)
	assert.True(t, domain.IsUnavailable(err))
	assert.False(t, domain.IsAccessDenied(err))

	_, err = f.service.Approve(ctx, f.ownerID, 999, true)
	assert.True(t, domain.IsNotFound(err))
}

func TestGetBookingAccess(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	dto, err := f.service.Create(ctx, f.bookerID, f.itemID, testNow.Add(time.Hour), testNow.Add(2*time.Hour))
	require.NoError(t, err)

	_, err = f.service.Get(ctx, f.bookerID, dto.ID)
	assert.NoError(t, err)
	_, err = f.service.Get(ctx, f.ownerID, dto.ID)
	assert.NoError(t, err)

	stranger := &models.User{Name: "Stranger", Email: "stranger@example.com"}
	require.NoError(t, f.db.CreateUser(ctx, stranger))
	_, err = f.service.Get(ctx, stranger.ID, dto.ID)
	assert.True(t, domain.IsAccessDenied(err))
	assert.EqualError(t, err, "user with id 3 has no rights for booking with id 1")

	_, err = f.service.Get(ctx, f.bookerID, 999)
	assert.True(t, domain.IsNotFound(err))
}

func TestListForBooker(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	first, err := f.service.Create(ctx, f.bookerID, f.itemID, testNow.Add(time.Hour), testNow.Add(2*time.Hour))
	require.NoError(t, err)
	second, err := f.service.Create(ctx, f.bookerID, f.itemID, testNow.Add(3*time.Hour), testNow.Add(4*time.Hour))
	require.NoError(t, err)

	dtos, err := f.service.ListForBooker(ctx, f.bookerID, models.StateAll)
	require.NoError(t, err)
	require.Len(t, dtos, 2)
	assert.Equal(t, second.ID, dtos[0].ID)
	assert.Equal(t, first.ID, dtos[1].ID)

	waiting, err := f.service.ListForBooker(ctx, f.bookerID, models.StateWaiting)
	require.NoError(t, err)
	assert.Len(t, waiting, 2)

	_, err = f.service.ListForBooker(ctx, 999, models.StateAll)
	assert.True(t, domain.IsNotFound(err))
}

func TestListForOwner(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	dto, err := f.service.Create(ctx, f.bookerID, f.itemID, testNow.Add(time.Hour), testNow.Add(2*time.Hour))
	require.NoError(t, err)

	dtos, err := f.service.ListForOwner(ctx, f.ownerID, models.StateAll)
	require.NoError(t, err)
	require.Len(t, dtos, 1)
	assert.Equal(t, dto.ID, dtos[0].ID)

	// The booker owns nothing: listing as an owner fails.
	_, err = f.service.ListForOwner(ctx, f.bookerID, models.StateAll)
	assert.True(t, domain.IsNotFound(err))

	_, err = f.service.ListForOwner(ctx, 999, models.StateAll)
	assert.True(t, domain.IsNotFound(err))
}

func TestLastAndNextBookings(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	running := &models.Booking{
		ItemID: f.itemID, BookerID: f.bookerID,
		Start: testNow.Add(-time.Hour), End: testNow.Add(time.Hour),
		Status: models.StatusApproved,
	}
	require.NoError(t, f.db.CreateBooking(ctx, running))
	upcoming, err := f.service.Create(ctx, f.bookerID, f.itemID, testNow.Add(2*time.Hour), testNow.Add(3*time.Hour))
	require.NoError(t, err)

	last, next, err := f.service.LastAndNextBookings(ctx, []int64{f.itemID})
	require.NoError(t, err)
	assert.Equal(t, running.ID, last[f.itemID].ID)
	assert.Equal(t, upcoming.ID, next[f.itemID].ID)
}

func TestAuditTrail(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	_, err := f.service.Create(ctx, f.bookerID, f.itemID, testNow.Add(time.Hour), testNow.Add(2*time.Hour))
	require.NoError(t, err)
	_, err = f.service.Create(ctx, f.bookerID, f.itemID, testNow.Add(3*time.Hour), testNow.Add(4*time.Hour))
	require.NoError(t, err)

	trail, err := f.service.AuditTrail(ctx)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Less(t, trail[0].ID, trail[1].ID)
}
