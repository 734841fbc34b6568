package service

import (
	"context"
	"fmt"
	"time"

	"shareit/internal/clock"
	"shareit/internal/domain"
	"shareit/internal/events"
	"shareit/internal/metrics"
	"shareit/internal/models"

	"github.com/rs/zerolog"
)

// BookingService owns the booking lifecycle: creation with validation,
// owner-gated approval, access-checked reads and the state-filtered listings.
type BookingService struct {
	bookings domain.BookingStore
	items    domain.ItemStore
	users    domain.UserStore
	bus      domain.EventPublisher
	clock    clock.Clock
	logger   *zerolog.Logger
}

func NewBookingService(
	bookings domain.BookingStore,
	items domain.ItemStore,
	users domain.UserStore,
	bus domain.EventPublisher,
	clk clock.Clock,
	logger *zerolog.Logger,
) *BookingService {
	return &BookingService{
		bookings: bookings,
		items:    items,
		users:    users,
		bus:      bus,
		clock:    clk,
		logger:   logger,
	}
}

// Create validates a booking request and persists it in WAITING status.
// Existence of booker and item is checked before the interval, so a missing
// entity reports not-found even when the dates are also bad.
func (s *BookingService) Create(ctx context.Context, bookerID, itemID int64, start, end time.Time) (*models.BookingDto, error) {
	booker, err := s.users.GetUser(ctx, bookerID)
	if err != nil {
		return nil, err
	}
	item, err := s.items.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if !start.Before(end) {
		return nil, domain.NewUnavailable("booking start %s must be before end %s",
			models.FormatTime(start), models.FormatTime(end))
	}
	if start.Before(now) {
		return nil, domain.NewUnavailable("booking start %s is in the past", models.FormatTime(start))
	}
	if end.Before(now) {
		return nil, domain.NewUnavailable("booking end %s is in the past", models.FormatTime(end))
	}
	if !item.Available {
		return nil, domain.NewUnavailable("item with id %d is not available", itemID)
	}

	booking := &models.Booking{
		ItemID:     itemID,
		BookerID:   bookerID,
		Start:      start,
		End:        end,
		Status:     models.StatusWaiting,
		ItemName:   item.Name,
		BookerName: booker.Name,
	}
	if err := s.bookings.CreateBooking(ctx, booking); err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	metrics.IncBookingCreated()
	s.publishEvent(events.EventBookingCreated, booking, item.OwnerID)
	s.logger.Info().
		Int64("booking_id", booking.ID).
		Int64("item_id", itemID).
		Int64("booker_id", bookerID).
		Msg("booking created")

	dto := models.NewBookingDto(booking)
	return &dto, nil
}

// Approve resolves a WAITING booking to APPROVED or REJECTED. Only the item's
// owner may decide, and only once: a booking already resolved cannot be
// resolved again.
func (s *BookingService) Approve(ctx context.Context, ownerID, bookingID int64, approved bool) (*models.BookingDto, error) {
	booking, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	item, err := s.items.GetItem(ctx, booking.ItemID)
	if err != nil {
		return nil, err
	}

	if item.OwnerID != ownerID {
		return nil, domain.NewUnavailable("user with id %d is not the owner of item with id %d", ownerID, item.ID)
	}
	if booking.Status != models.StatusWaiting {
		return nil, domain.NewUnavailable("booking with id %d is already %s", bookingID, booking.Status)
	}

	status := models.StatusRejected
	eventType := events.EventBookingRejected
	if approved {
		status = models.StatusApproved
		eventType = events.EventBookingApproved
	}

	if err := s.bookings.UpdateBookingStatus(ctx, bookingID, status); err != nil {
		return nil, fmt.Errorf("failed to update booking status: %w", err)
	}
	booking.Status = status

	metrics.IncBookingTransition(string(status))
	s.publishEvent(eventType, booking, item.OwnerID)
	s.logger.Info().
		Int64("booking_id", bookingID).
		Int64("owner_id", ownerID).
		Str("status", string(status)).
		Msg("booking resolved")

	dto := models.NewBookingDto(booking)
	return &dto, nil
}

// Get returns a booking to its booker or to the item's owner; anyone else is
// denied.
func (s *BookingService) Get(ctx context.Context, userID, bookingID int64) (*models.BookingDto, error) {
	booking, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if booking.BookerID != userID {
		item, err := s.items.GetItem(ctx, booking.ItemID)
		if err != nil {
			return nil, err
		}
		if item.OwnerID != userID {
			return nil, domain.NewAccessDenied(userID, "booking", bookingID)
		}
	}

	dto := models.NewBookingDto(booking)
	return &dto, nil
}

// ListForBooker returns the user's own bookings filtered by state, newest end
// first. The state classification is evaluated against a single clock reading.
func (s *BookingService) ListForBooker(ctx context.Context, userID int64, state models.BookingState) ([]models.BookingDto, error) {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	bookings, err := s.bookings.FindByBooker(ctx, userID, state, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings for booker %d: %w", userID, err)
	}
	return toBookingDtos(bookings), nil
}

// ListForOwner returns bookings against any of the user's items filtered by
// state. An owner with no items at all gets a not-found, matching the item
// directory's view of them.
func (s *BookingService) ListForOwner(ctx context.Context, ownerID int64, state models.BookingState) ([]models.BookingDto, error) {
	if _, err := s.users.GetUser(ctx, ownerID); err != nil {
		return nil, err
	}

	items, err := s.items.OwnedItems(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load items of user %d: %w", ownerID, err)
	}
	if len(items) == 0 {
		return nil, domain.NewNotFound("items of user", ownerID)
	}

	itemIDs := make([]int64, len(items))
	for i, item := range items {
		itemIDs[i] = item.ID
	}

	bookings, err := s.bookings.FindByItems(ctx, itemIDs, state, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings for owner %d: %w", ownerID, err)
	}
	return toBookingDtos(bookings), nil
}

// AuditTrail returns every booking ever made, oldest first.
func (s *BookingService) AuditTrail(ctx context.Context) ([]models.Booking, error) {
	return s.bookings.AllBookings(ctx)
}

// LastAndNextBookings resolves the per-item last and next booking maps against
// a single clock reading, so both sides of the window agree on "now".
func (s *BookingService) LastAndNextBookings(ctx context.Context, itemIDs []int64) (map[int64]models.Booking, map[int64]models.Booking, error) {
	now := s.clock.Now()

	last, err := s.bookings.LastBookings(ctx, now, itemIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load last bookings: %w", err)
	}
	next, err := s.bookings.NextBookings(ctx, now, itemIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load next bookings: %w", err)
	}
	return last, next, nil
}

// HasFinishedApprovedBooking reports whether the user completed an approved
// booking of the item. This is the comment eligibility gate.
func (s *BookingService) HasFinishedApprovedBooking(ctx context.Context, userID, itemID int64) (bool, error) {
	return s.bookings.HasFinishedApprovedBooking(ctx, userID, itemID, s.clock.Now())
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking, ownerID int64) {
	if s.bus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:   booking.ID,
		ItemID:      booking.ItemID,
		ItemOwnerID: ownerID,
		BookerID:    booking.BookerID,
		Status:      string(booking.Status),
		Start:       booking.Start,
		End:         booking.End,
	}
	if err := s.bus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Msg("failed to publish booking event")
	}
}

func toBookingDtos(bookings []models.Booking) []models.BookingDto {
	dtos := make([]models.BookingDto, len(bookings))
	for i := range bookings {
		dtos[i] = models.NewBookingDto(&bookings[i])
	}
	return dtos
}
