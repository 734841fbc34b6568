package database

import (
	"context"
	"os"
	"testing"
	"time"

	"shareit/internal/domain"
	"shareit/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	logger := zerolog.New(os.Stdout)
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedUser(t *testing.T, db *DB, name, email string) int64 {
	t.Helper()
	user := &models.User{Name: name, Email: email}
	require.NoError(t, db.CreateUser(context.Background(), user))
	return user.ID
}

func seedItem(t *testing.T, db *DB, ownerID int64, name string, available bool) int64 {
	t.Helper()
	item := &models.Item{OwnerID: ownerID, Name: name, Description: name, Available: available}
	require.NoError(t, db.CreateItem(context.Background(), item))
	return item.ID
}

func seedBooking(t *testing.T, db *DB, itemID, bookerID int64, start, end time.Time, status models.BookingStatus) int64 {
	t.Helper()
	booking := &models.Booking{ItemID: itemID, BookerID: bookerID, Start: start, End: end, Status: status}
	require.NoError(t, db.CreateBooking(context.Background(), booking))
	return booking.ID
}

func TestGetBookingNotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.GetBooking(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
	assert.EqualError(t, err, "booking with id 42 not found")
}

func TestCreateAndGetBooking(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	ownerID := seedUser(t, db, "Owner", "owner@example.com")
	bookerID := seedUser(t, db, "Booker", "booker@example.com")
	itemID := seedItem(t, db, ownerID, "Drill", true)

	start := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	id := seedBooking(t, db, itemID, bookerID, start, end, models.StatusWaiting)

	booking, err := db.GetBooking(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, itemID, booking.ItemID)
	assert.Equal(t, bookerID, booking.BookerID)
	assert.True(t, start.Equal(booking.Start))
	assert.True(t, end.Equal(booking.End))
	assert.Equal(t, models.StatusWaiting, booking.Status)
	assert.Equal(t, "Drill", booking.ItemName)
	assert.Equal(t, "Booker", booking.BookerName)
}

func TestUpdateBookingStatus(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	ownerID := seedUser(t, db, "Owner", "owner@example.com")
	bookerID := seedUser(t, db, "Booker", "booker@example.com")
	itemID := seedItem(t, db, ownerID, "Drill", true)

	start := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	id := seedBooking(t, db, itemID, bookerID, start, start.Add(time.Hour), models.StatusWaiting)

	require.NoError(t, db.UpdateBookingStatus(ctx, id, models.StatusApproved))

	booking, err := db.GetBooking(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, booking.Status)

	err = db.UpdateBookingStatus(ctx, 999, models.StatusRejected)
	assert.True(t, domain.IsNotFound(err))
}

func TestStateClassification(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	ownerID := seedUser(t, db, "Owner", "owner@example.com")
	bookerID := seedUser(t, db, "Booker", "booker@example.com")
	itemID := seedItem(t, db, ownerID, "Drill", true)

	past := seedBooking(t, db, itemID, bookerID, now.Add(-3*time.Hour), now.Add(-2*time.Hour), models.StatusApproved)
	current := seedBooking(t, db, itemID, bookerID, now.Add(-time.Hour), now.Add(time.Hour), models.StatusApproved)
	future := seedBooking(t, db, itemID, bookerID, now.Add(2*time.Hour), now.Add(3*time.Hour), models.StatusApproved)
	waiting := seedBooking(t, db, itemID, bookerID, now.Add(4*time.Hour), now.Add(5*time.Hour), models.StatusWaiting)
	rejected := seedBooking(t, db, itemID, bookerID, now.Add(6*time.Hour), now.Add(7*time.Hour), models.StatusRejected)

	cases := []struct {
		state models.BookingState
		want  []int64
	}{
		{models.StateAll, []int64{rejected, waiting, future, current, past}},
		{models.StateCurrent, []int64{current}},
		{models.StatePast, []int64{past}},
		{models.StateFuture, []int64{future}},
		{models.StateWaiting, []int64{waiting}},
		{models.StateRejected, []int64{rejected}},
	}

	for _, tc := range cases {
		t.Run(string(tc.state), func(t *testing.T) {
			got, err := db.FindByBooker(ctx, bookerID, tc.state, now)
			require.NoError(t, err)
			assert.Equal(t, tc.want, bookingIDs(got))

			got, err = db.FindByItems(ctx, []int64{itemID}, tc.state, now)
			require.NoError(t, err)
			assert.Equal(t, tc.want, bookingIDs(got))
		})
	}
}

// A WAITING booking whose interval lies in the future must not classify as
// FUTURE: that state requires APPROVED.
func TestFutureExcludesWaiting(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	ownerID := seedUser(t, db, "Owner", "owner@example.com")
	bookerID := seedUser(t, db, "Booker", "booker@example.com")
	itemID := seedItem(t, db, ownerID, "Drill", true)

	b1 := seedBooking(t, db, itemID, bookerID, now.AddDate(0, 0, -10), now.AddDate(0, 0, -9), models.StatusApproved)
	b2 := seedBooking(t, db, itemID, bookerID, now.AddDate(0, 0, -5), now.AddDate(0, 0, -4), models.StatusApproved)
	b3 := seedBooking(t, db, itemID, bookerID, now.AddDate(0, 0, 2), now.AddDate(0, 0, 3), models.StatusWaiting)

	got, err := db.FindByBooker(ctx, bookerID, models.StatePast, now)
	require.NoError(t, err)
	assert.Equal(t, []int64{b2, b1}, bookingIDs(got))

	got, err = db.FindByBooker(ctx, bookerID, models.StateWaiting, now)
	require.NoError(t, err)
	assert.Equal(t, []int64{b3}, bookingIDs(got))

	got, err = db.FindByBooker(ctx, bookerID, models.StateFuture, now)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestListOrderingOnEqualEnds(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	ownerID := seedUser(t, db, "Owner", "owner@example.com")
	bookerID := seedUser(t, db, "Booker", "booker@example.com")
	itemID := seedItem(t, db, ownerID, "Drill", true)

	end := now.Add(2 * time.Hour)
	first := seedBooking(t, db, itemID, bookerID, now.Add(time.Hour), end, models.StatusWaiting)
	second := seedBooking(t, db, itemID, bookerID, now.Add(time.Hour), end, models.StatusWaiting)

	got, err := db.FindByBooker(ctx, bookerID, models.StateAll, now)
	require.NoError(t, err)
	assert.Equal(t, []int64{second, first}, bookingIDs(got))
}

func TestFindByItemsEmpty(t *testing.T) {
	db := setupTestDB(t)

	got, err := db.FindByItems(context.Background(), nil, models.StateAll, time.Now())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStateConditionsPanicsOnUnknownState(t *testing.T) {
	assert.Panics(t, func() {
		stateConditions(models.BookingState("BOGUS"), time.Now())
	})
}

func TestLastBookingsStraddleOnly(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	ownerID := seedUser(t, db, "Owner", "owner@example.com")
	bookerID := seedUser(t, db, "Booker", "booker@example.com")
	straddled := seedItem(t, db, ownerID, "Drill", true)
	endedOnly := seedItem(t, db, ownerID, "Ladder", true)

	inProgress := seedBooking(t, db, straddled, bookerID, now.Add(-time.Hour), now.Add(time.Hour), models.StatusApproved)
	// Ended before now: must not surface as a fallback.
	seedBooking(t, db, endedOnly, bookerID, now.Add(-3*time.Hour), now.Add(-2*time.Hour), models.StatusApproved)

	last, err := db.LastBookings(ctx, now, []int64{straddled, endedOnly})
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, inProgress, last[straddled].ID)
}

func TestLastBookingsTieBreak(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	ownerID := seedUser(t, db, "Owner", "owner@example.com")
	bookerID := seedUser(t, db, "Booker", "booker@example.com")
	itemID := seedItem(t, db, ownerID, "Drill", true)

	// Two bookings straddling now: the later end wins, and on equal ends the
	// higher id wins.
	seedBooking(t, db, itemID, bookerID, now.Add(-2*time.Hour), now.Add(time.Hour), models.StatusApproved)
	longer := seedBooking(t, db, itemID, bookerID, now.Add(-time.Hour), now.Add(2*time.Hour), models.StatusApproved)

	last, err := db.LastBookings(ctx, now, []int64{itemID})
	require.NoError(t, err)
	assert.Equal(t, longer, last[itemID].ID)

	sameEnd := seedBooking(t, db, itemID, bookerID, now.Add(-time.Hour), now.Add(2*time.Hour), models.StatusApproved)
	last, err = db.LastBookings(ctx, now, []int64{itemID})
	require.NoError(t, err)
	assert.Equal(t, sameEnd, last[itemID].ID)
}

func TestNextBookings(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	ownerID := seedUser(t, db, "Owner", "owner@example.com")
	bookerID := seedUser(t, db, "Booker", "booker@example.com")
	itemID := seedItem(t, db, ownerID, "Drill", true)
	quiet := seedItem(t, db, ownerID, "Ladder", true)

	soon := seedBooking(t, db, itemID, bookerID, now.Add(time.Hour), now.Add(2*time.Hour), models.StatusWaiting)
	seedBooking(t, db, itemID, bookerID, now.Add(3*time.Hour), now.Add(4*time.Hour), models.StatusWaiting)
	// Already started: not a next booking.
	seedBooking(t, db, itemID, bookerID, now.Add(-time.Hour), now.Add(5*time.Hour), models.StatusApproved)

	next, err := db.NextBookings(ctx, now, []int64{itemID, quiet})
	require.NoError(t, err)
	require.Len(t, next, 1)
	assert.Equal(t, soon, next[itemID].ID)

	empty, err := db.NextBookings(ctx, now, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestAllBookings(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	ownerID := seedUser(t, db, "Owner", "owner@example.com")
	bookerID := seedUser(t, db, "Booker", "booker@example.com")
	itemID := seedItem(t, db, ownerID, "Drill", true)

	first := seedBooking(t, db, itemID, bookerID, now, now.Add(time.Hour), models.StatusWaiting)
	second := seedBooking(t, db, itemID, bookerID, now.Add(2*time.Hour), now.Add(3*time.Hour), models.StatusWaiting)

	all, err := db.AllBookings(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{first, second}, bookingIDs(all))
}

func TestHasFinishedApprovedBooking(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	ownerID := seedUser(t, db, "Owner", "owner@example.com")
	bookerID := seedUser(t, db, "Booker", "booker@example.com")
	itemID := seedItem(t, db, ownerID, "Drill", true)

	// Rejected and ended: does not count.
	seedBooking(t, db, itemID, bookerID, now.Add(-5*time.Hour), now.Add(-4*time.Hour), models.StatusRejected)
	ok, err := db.HasFinishedApprovedBooking(ctx, bookerID, itemID, now)
	require.NoError(t, err)
	assert.False(t, ok)

	// Approved but still running: does not count.
	seedBooking(t, db, itemID, bookerID, now.Add(-time.Hour), now.Add(time.Hour), models.StatusApproved)
	ok, err = db.HasFinishedApprovedBooking(ctx, bookerID, itemID, now)
	require.NoError(t, err)
	assert.False(t, ok)

	// Approved and finished: counts.
	seedBooking(t, db, itemID, bookerID, now.Add(-3*time.Hour), now.Add(-2*time.Hour), models.StatusApproved)
	ok, err = db.HasFinishedApprovedBooking(ctx, bookerID, itemID, now)
	require.NoError(t, err)
	assert.True(t, ok)
}

func bookingIDs(bookings []models.Booking) []int64 {
	ids := make([]int64, len(bookings))
	for i, b := range bookings {
		ids[i] = b.ID
	}
	return ids
}
