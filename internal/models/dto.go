package models

// Read projections returned by the API. Timestamps are rendered with
// TimeLayout; entities are reduced to id+name summaries.

type UserShortDto struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type ItemShortDto struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type BookingDto struct {
	ID     int64         `json:"id"`
	Start  string        `json:"start"`
	End    string        `json:"end"`
	Item   ItemShortDto  `json:"item"`
	Booker UserShortDto  `json:"booker"`
	Status BookingStatus `json:"status"`
}

// BookingDatesDto is the reduced projection used for the last/next booking
// fields on item views.
type BookingDatesDto struct {
	ID    int64  `json:"id"`
	Start string `json:"start"`
	End   string `json:"end"`
}

type CommentDto struct {
	ID         int64  `json:"id"`
	Text       string `json:"text"`
	AuthorName string `json:"author_name"`
	Created    string `json:"created"`
}

// ItemDto is the plain item projection.
type ItemDto struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Available   bool   `json:"available"`
	RequestID   int64  `json:"request_id,omitempty"`
}

// ItemDetailDto extends ItemDto with comments and, for the owner only, the
// last and next booking dates.
type ItemDetailDto struct {
	ItemDto
	LastBooking *BookingDatesDto `json:"last_booking"`
	NextBooking *BookingDatesDto `json:"next_booking"`
	Comments    []CommentDto     `json:"comments"`
}

func NewBookingDto(b *Booking) BookingDto {
	return BookingDto{
		ID:     b.ID,
		Start:  FormatTime(b.Start),
		End:    FormatTime(b.End),
		Item:   ItemShortDto{ID: b.ItemID, Name: b.ItemName},
		Booker: UserShortDto{ID: b.BookerID, Name: b.BookerName},
		Status: b.Status,
	}
}

func NewBookingDatesDto(b *Booking) *BookingDatesDto {
	if b == nil {
		return nil
	}
	return &BookingDatesDto{ID: b.ID, Start: FormatTime(b.Start), End: FormatTime(b.End)}
}

func NewItemDto(item *Item) ItemDto {
	return ItemDto{
		ID:          item.ID,
		Name:        item.Name,
		Description: item.Description,
		Available:   item.Available,
		RequestID:   item.RequestID,
	}
}

func NewCommentDto(c *Comment) CommentDto {
	return CommentDto{
		ID:         c.ID,
		Text:       c.Text,
		AuthorName: c.AuthorName,
		Created:    FormatTime(c.CreatedAt),
	}
}
