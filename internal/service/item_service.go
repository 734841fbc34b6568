package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"shareit/internal/domain"
	"shareit/internal/models"
	"shareit/internal/repository"

	"github.com/rs/zerolog"
)

const cacheTTL = 5 * time.Minute

// ItemService owns the item directory: listings, owner-only booking date
// projections, search and comments. Read projections are cached; booking
// events invalidate them through the worker.
type ItemService struct {
	items    domain.ItemStore
	users    domain.UserStore
	bookings domain.BookingReadModel
	cache    domain.Cache
	logger   *zerolog.Logger
}

func NewItemService(
	items domain.ItemStore,
	users domain.UserStore,
	bookings domain.BookingReadModel,
	cache domain.Cache,
	logger *zerolog.Logger,
) *ItemService {
	return &ItemService{
		items:    items,
		users:    users,
		bookings: bookings,
		cache:    cache,
		logger:   logger,
	}
}

// Create registers a new item for the owner.
func (s *ItemService) Create(ctx context.Context, ownerID int64, item *models.Item) (*models.ItemDto, error) {
	if _, err := s.users.GetUser(ctx, ownerID); err != nil {
		return nil, err
	}

	item.OwnerID = ownerID
	if err := s.items.CreateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}

	s.invalidate(ctx, repository.OwnerItemsKey(ownerID))
	s.logger.Info().Int64("item_id", item.ID).Int64("owner_id", ownerID).Msg("item created")

	dto := models.NewItemDto(item)
	return &dto, nil
}

// Update applies a partial update to an item. Only the owner may edit.
func (s *ItemService) Update(ctx context.Context, ownerID, itemID int64, patch models.ItemUpdate) (*models.ItemDto, error) {
	item, err := s.items.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.OwnerID != ownerID {
		return nil, domain.NewAccessDenied(ownerID, "item", itemID)
	}

	if patch.Name != nil {
		item.Name = *patch.Name
	}
	if patch.Description != nil {
		item.Description = *patch.Description
	}
	if patch.Available != nil {
		item.Available = *patch.Available
	}

	if err := s.items.UpdateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to update item: %w", err)
	}

	s.invalidate(ctx, repository.ItemKey(itemID), repository.OwnerItemsKey(ownerID))

	dto := models.NewItemDto(item)
	return &dto, nil
}

// Get returns the item detail. The last and next booking dates are visible to
// the owner only; everyone else gets nil in those fields. The non-owner
// variant is served from cache when possible.
func (s *ItemService) Get(ctx context.Context, userID, itemID int64) (*models.ItemDetailDto, error) {
	item, err := s.items.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	if userID != item.OwnerID {
		if cached := s.cachedDetail(ctx, repository.ItemKey(itemID)); cached != nil {
			return cached, nil
		}
	}

	comments, err := s.items.CommentsForItems(ctx, []int64{itemID})
	if err != nil {
		return nil, fmt.Errorf("failed to load comments: %w", err)
	}

	detail := &models.ItemDetailDto{
		ItemDto:  models.NewItemDto(item),
		Comments: toCommentDtos(comments[itemID]),
	}

	if userID == item.OwnerID {
		last, next, err := s.bookings.LastAndNextBookings(ctx, []int64{itemID})
		if err != nil {
			return nil, err
		}
		detail.LastBooking = datesFor(last, itemID)
		detail.NextBooking = datesFor(next, itemID)
		return detail, nil
	}

	s.storeDetail(ctx, repository.ItemKey(itemID), detail)
	return detail, nil
}

// ListByOwner returns the owner's items with booking date projections and
// comments, served from cache when possible.
func (s *ItemService) ListByOwner(ctx context.Context, ownerID int64) ([]models.ItemDetailDto, error) {
	if _, err := s.users.GetUser(ctx, ownerID); err != nil {
		return nil, err
	}

	key := repository.OwnerItemsKey(ownerID)
	if data, err := s.cache.Get(ctx, key); err == nil && data != nil {
		var details []models.ItemDetailDto
		if err := json.Unmarshal(data, &details); err == nil {
			return details, nil
		}
	}

	items, err := s.items.OwnedItems(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load items of user %d: %w", ownerID, err)
	}

	itemIDs := make([]int64, len(items))
	for i, item := range items {
		itemIDs[i] = item.ID
	}

	last, next, err := s.bookings.LastAndNextBookings(ctx, itemIDs)
	if err != nil {
		return nil, err
	}
	comments, err := s.items.CommentsForItems(ctx, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load comments: %w", err)
	}

	details := make([]models.ItemDetailDto, len(items))
	for i := range items {
		id := items[i].ID
		details[i] = models.ItemDetailDto{
			ItemDto:     models.NewItemDto(&items[i]),
			LastBooking: datesFor(last, id),
			NextBooking: datesFor(next, id),
			Comments:    toCommentDtos(comments[id]),
		}
	}

	if data, err := json.Marshal(details); err == nil {
		if err := s.cache.Set(ctx, key, data, cacheTTL); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("failed to cache owner items")
		}
	}
	return details, nil
}

// Search finds available items whose name or description contains the text.
// Blank text matches nothing.
func (s *ItemService) Search(ctx context.Context, text string) ([]models.ItemDto, error) {
	items, err := s.items.SearchItems(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to search items: %w", err)
	}
	return toItemDtos(items), nil
}

// ItemsByRequest returns the items offered in answer to a request.
func (s *ItemService) ItemsByRequest(ctx context.Context, requestID int64) ([]models.ItemDto, error) {
	items, err := s.items.ItemsByRequest(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load items for request %d: %w", requestID, err)
	}
	return toItemDtos(items), nil
}

// AddComment attaches feedback to an item. Only a user with a finished
// approved booking of the item may comment.
func (s *ItemService) AddComment(ctx context.Context, authorID, itemID int64, text string) (*models.CommentDto, error) {
	author, err := s.users.GetUser(ctx, authorID)
	if err != nil {
		return nil, err
	}
	item, err := s.items.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, domain.NewUnavailable("comment text must not be blank")
	}

	finished, err := s.bookings.HasFinishedApprovedBooking(ctx, authorID, itemID)
	if err != nil {
		return nil, err
	}
	if !finished {
		return nil, domain.NewUnavailable("user with id %d has no finished booking of item with id %d", authorID, itemID)
	}

	comment := &models.Comment{
		ItemID:     itemID,
		AuthorID:   authorID,
		AuthorName: author.Name,
		Text:       text,
	}
	if err := s.items.AddComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}

	s.invalidate(ctx, repository.ItemKey(itemID), repository.OwnerItemsKey(item.OwnerID))
	s.logger.Info().Int64("item_id", itemID).Int64("author_id", authorID).Msg("comment added")

	dto := models.NewCommentDto(comment)
	return &dto, nil
}

func (s *ItemService) cachedDetail(ctx context.Context, key string) *models.ItemDetailDto {
	data, err := s.cache.Get(ctx, key)
	if err != nil || data == nil {
		return nil
	}
	var detail models.ItemDetailDto
	if err := json.Unmarshal(data, &detail); err != nil {
		return nil
	}
	return &detail
}

func (s *ItemService) storeDetail(ctx context.Context, key string, detail *models.ItemDetailDto) {
	data, err := json.Marshal(detail)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, cacheTTL); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to cache item detail")
	}
}

func (s *ItemService) invalidate(ctx context.Context, keys ...string) {
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn().Err(err).Strs("keys", keys).Msg("failed to invalidate cache")
	}
}

func datesFor(bookings map[int64]models.Booking, itemID int64) *models.BookingDatesDto {
	b, ok := bookings[itemID]
	if !ok {
		return nil
	}
	return models.NewBookingDatesDto(&b)
}

func toItemDtos(items []models.Item) []models.ItemDto {
	dtos := make([]models.ItemDto, len(items))
	for i := range items {
		dtos[i] = models.NewItemDto(&items[i])
	}
	return dtos
}

func toCommentDtos(comments []models.Comment) []models.CommentDto {
	dtos := make([]models.CommentDto, len(comments))
	for i := range comments {
		dtos[i] = models.NewCommentDto(&comments[i])
	}
	return dtos
}
