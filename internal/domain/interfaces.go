package domain

import (
	"context"
	"time"

	"shareit/internal/models"
)

// BookingStore persists bookings and answers the query families the engine
// needs: by-id lookup, state-filtered search ordered by end descending, and
// the windowed last/next retrieval per item.
type BookingStore interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id int64, status models.BookingStatus) error
	FindByBooker(ctx context.Context, bookerID int64, state models.BookingState, now time.Time) ([]models.Booking, error)
	FindByItems(ctx context.Context, itemIDs []int64, state models.BookingState, now time.Time) ([]models.Booking, error)
	AllBookings(ctx context.Context) ([]models.Booking, error)
	LastBookings(ctx context.Context, now time.Time, itemIDs []int64) (map[int64]models.Booking, error)
	NextBookings(ctx context.Context, now time.Time, itemIDs []int64) (map[int64]models.Booking, error)
	HasFinishedApprovedBooking(ctx context.Context, bookerID, itemID int64, now time.Time) (bool, error)
}

// ItemStore is the item directory plus its comment attachments.
type ItemStore interface {
	CreateItem(ctx context.Context, item *models.Item) error
	GetItem(ctx context.Context, id int64) (*models.Item, error)
	UpdateItem(ctx context.Context, item *models.Item) error
	OwnedItems(ctx context.Context, ownerID int64) ([]models.Item, error)
	SearchItems(ctx context.Context, text string) ([]models.Item, error)
	ItemsByRequest(ctx context.Context, requestID int64) ([]models.Item, error)
	AddComment(ctx context.Context, comment *models.Comment) error
	CommentsForItems(ctx context.Context, itemIDs []int64) (map[int64][]models.Comment, error)
}

// UserStore is the user registry.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id int64) error
}

// EventPublisher fans out booking lifecycle events.
type EventPublisher interface {
	PublishJSON(eventType string, payload any) error
}

// Cache stores serialized read projections. Get returns (nil, nil) on a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// BookingReadModel is the slice of the engine the item component consumes:
// the per-item last/next projection and the comment eligibility gate.
type BookingReadModel interface {
	LastAndNextBookings(ctx context.Context, itemIDs []int64) (map[int64]models.Booking, map[int64]models.Booking, error)
	HasFinishedApprovedBooking(ctx context.Context, userID, itemID int64) (bool, error)
}

// BookingEngine is the booking lifecycle surface exposed to the API layer.
type BookingEngine interface {
	Create(ctx context.Context, bookerID, itemID int64, start, end time.Time) (*models.BookingDto, error)
	Approve(ctx context.Context, ownerID, bookingID int64, approved bool) (*models.BookingDto, error)
	Get(ctx context.Context, userID, bookingID int64) (*models.BookingDto, error)
	ListForBooker(ctx context.Context, userID int64, state models.BookingState) ([]models.BookingDto, error)
	ListForOwner(ctx context.Context, ownerID int64, state models.BookingState) ([]models.BookingDto, error)
	AuditTrail(ctx context.Context) ([]models.Booking, error)
}

// ItemDirectory is the item surface exposed to the API layer.
type ItemDirectory interface {
	Create(ctx context.Context, ownerID int64, item *models.Item) (*models.ItemDto, error)
	Update(ctx context.Context, ownerID, itemID int64, patch models.ItemUpdate) (*models.ItemDto, error)
	Get(ctx context.Context, userID, itemID int64) (*models.ItemDetailDto, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]models.ItemDetailDto, error)
	Search(ctx context.Context, text string) ([]models.ItemDto, error)
	ItemsByRequest(ctx context.Context, requestID int64) ([]models.ItemDto, error)
	AddComment(ctx context.Context, authorID, itemID int64, text string) (*models.CommentDto, error)
}

// UserRegistry is the user surface exposed to the API layer.
type UserRegistry interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	Get(ctx context.Context, id int64) (*models.User, error)
	Update(ctx context.Context, id int64, patch models.UserUpdate) (*models.User, error)
	Delete(ctx context.Context, id int64) error
}
