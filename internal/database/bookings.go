package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"shareit/internal/domain"
	"shareit/internal/models"
)

// Booking timestamps are stored as TEXT in models.TimeLayout (UTC), so string
// comparison in SQL equals chronological comparison.

const selectBooking = `SELECT b.id, b.item_id, b.booker_id, b.start_date, b.end_date, b.status, b.created_at, i.name, u.name
              FROM bookings b
              JOIN items i ON i.id = b.item_id
              JOIN users u ON u.id = b.booker_id`

func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	query := `INSERT INTO bookings (item_id, booker_id, start_date, end_date, status, created_at)
              VALUES (?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.db.ExecContext(ctx, query,
		booking.ItemID,
		booking.BookerID,
		models.FormatTime(booking.Start),
		models.FormatTime(booking.End),
		string(booking.Status),
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	booking.ID = id
	booking.CreatedAt = now
	return nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	row := db.db.QueryRowContext(ctx, selectBooking+` WHERE b.id = ?`, id)
	booking, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFound("booking", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

func (db *DB) UpdateBookingStatus(ctx context.Context, id int64, status models.BookingStatus) error {
	query := `UPDATE bookings SET status = ? WHERE id = ?`
	result, err := db.db.ExecContext(ctx, query, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.NewNotFound("booking", id)
	}
	return nil
}

// FindByBooker returns the booker's bookings matching the state filter,
// ordered by end descending.
func (db *DB) FindByBooker(ctx context.Context, bookerID int64, state models.BookingState, now time.Time) ([]models.Booking, error) {
	cond, args := stateConditions(state, now)
	query := selectBooking + ` WHERE b.booker_id = ?` + cond + ` ORDER BY b.end_date DESC, b.id DESC`
	return db.queryBookings(ctx, query, append([]any{bookerID}, args...)...)
}

// FindByItems returns bookings against any of the given items matching the
// state filter, ordered by end descending.
func (db *DB) FindByItems(ctx context.Context, itemIDs []int64, state models.BookingState, now time.Time) ([]models.Booking, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}

	cond, condArgs := stateConditions(state, now)
	query := fmt.Sprintf(selectBooking+` WHERE b.item_id IN (%s)`+cond+` ORDER BY b.end_date DESC, b.id DESC`,
		placeholders(len(itemIDs)))

	args := make([]any, 0, len(itemIDs)+len(condArgs))
	for _, id := range itemIDs {
		args = append(args, id)
	}
	return db.queryBookings(ctx, query, append(args, condArgs...)...)
}

// stateConditions builds the extra predicate for a read-time classification.
// A state value outside the known set is a programming error, not caller
// input, and panics.
func stateConditions(state models.BookingState, now time.Time) (string, []any) {
	nowStr := models.FormatTime(now)

	switch state {
	case models.StateAll:
		return "", nil
	case models.StateCurrent:
		return ` AND b.start_date < ? AND b.end_date > ? AND b.status = ?`,
			[]any{nowStr, nowStr, string(models.StatusApproved)}
	case models.StatePast:
		return ` AND b.end_date < ? AND b.status = ?`,
			[]any{nowStr, string(models.StatusApproved)}
	case models.StateFuture:
		return ` AND b.start_date > ? AND b.status = ?`,
			[]any{nowStr, string(models.StatusApproved)}
	case models.StateWaiting:
		return ` AND b.status = ?`, []any{string(models.StatusWaiting)}
	case models.StateRejected:
		return ` AND b.status = ?`, []any{string(models.StatusRejected)}
	default:
		panic(fmt.Sprintf("unsupported booking state %q", state))
	}
}

// LastBookings returns, per item, the single booking in progress at the given
// time: the interval straddles now, latest end wins, latest id on equal ends.
// An item with no in-progress booking has no entry; there is deliberately no
// fallback to the most recently ended booking.
func (db *DB) LastBookings(ctx context.Context, now time.Time, itemIDs []int64) (map[int64]models.Booking, error) {
	query := fmt.Sprintf(`SELECT id, item_id, booker_id, start_date, end_date, status FROM (
                SELECT b.*, ROW_NUMBER() OVER (PARTITION BY b.item_id ORDER BY b.end_date DESC, b.id DESC) AS anchor
                FROM bookings b
                WHERE b.start_date < ?1 AND b.end_date > ?1 AND b.item_id IN (%s)
            ) WHERE anchor = 1`, placeholders(len(itemIDs)))
	return db.queryWindowed(ctx, query, now, itemIDs)
}

// NextBookings returns, per item, the booking with the earliest start
// strictly after the given time; earliest id wins on equal starts.
func (db *DB) NextBookings(ctx context.Context, now time.Time, itemIDs []int64) (map[int64]models.Booking, error) {
	query := fmt.Sprintf(`SELECT id, item_id, booker_id, start_date, end_date, status FROM (
                SELECT b.*, ROW_NUMBER() OVER (PARTITION BY b.item_id ORDER BY b.start_date ASC, b.id ASC) AS anchor
                FROM bookings b
                WHERE b.start_date > ?1 AND b.item_id IN (%s)
            ) WHERE anchor = 1`, placeholders(len(itemIDs)))
	return db.queryWindowed(ctx, query, now, itemIDs)
}

func (db *DB) queryWindowed(ctx context.Context, query string, now time.Time, itemIDs []int64) (map[int64]models.Booking, error) {
	if len(itemIDs) == 0 {
		return map[int64]models.Booking{}, nil
	}

	args := make([]any, 0, len(itemIDs)+1)
	args = append(args, models.FormatTime(now))
	for _, id := range itemIDs {
		args = append(args, id)
	}

	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query windowed bookings: %w", err)
	}
	defer rows.Close()

	result := make(map[int64]models.Booking)
	for rows.Next() {
		var b models.Booking
		var startStr, endStr, status string
		if err := rows.Scan(&b.ID, &b.ItemID, &b.BookerID, &startStr, &endStr, &status); err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		if b.Start, err = models.ParseTime(startStr); err != nil {
			return nil, fmt.Errorf("failed to parse booking start %s: %w", startStr, err)
		}
		if b.End, err = models.ParseTime(endStr); err != nil {
			return nil, fmt.Errorf("failed to parse booking end %s: %w", endStr, err)
		}
		b.Status = models.BookingStatus(status)
		result[b.ItemID] = b
	}
	return result, rows.Err()
}

// AllBookings returns the full audit trail, oldest first.
func (db *DB) AllBookings(ctx context.Context) ([]models.Booking, error) {
	return db.queryBookings(ctx, selectBooking+` ORDER BY b.id`)
}

// HasFinishedApprovedBooking reports whether the user has at least one
// approved booking of the item that ended strictly before now.
func (db *DB) HasFinishedApprovedBooking(ctx context.Context, bookerID, itemID int64, now time.Time) (bool, error) {
	query := `SELECT EXISTS(
                SELECT 1 FROM bookings
                WHERE booker_id = ? AND item_id = ? AND status = ? AND end_date < ?
            )`
	var exists bool
	err := db.db.QueryRowContext(ctx, query, bookerID, itemID, string(models.StatusApproved), models.FormatTime(now)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check finished bookings: %w", err)
	}
	return exists, nil
}

func (db *DB) queryBookings(ctx context.Context, query string, args ...any) ([]models.Booking, error) {
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, *booking)
	}
	return bookings, rows.Err()
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var b models.Booking
	var startStr, endStr, status string
	err := row.Scan(&b.ID, &b.ItemID, &b.BookerID, &startStr, &endStr, &status, &b.CreatedAt, &b.ItemName, &b.BookerName)
	if err != nil {
		return nil, err
	}
	if b.Start, err = models.ParseTime(startStr); err != nil {
		return nil, fmt.Errorf("failed to parse booking start %s: %w", startStr, err)
	}
	if b.End, err = models.ParseTime(endStr); err != nil {
		return nil, fmt.Errorf("failed to parse booking end %s: %w", endStr, err)
	}
	b.Status = models.BookingStatus(status)
	return &b, nil
}
