package domain

import (
	"errors"
	"fmt"
)

// The three caller-visible error kinds. The API layer maps them to 404, 400
// and 403 respectively; anything else is a server error.

// NotFoundError reports a missing user, item or booking.
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with id %d not found", e.Resource, e.ID)
}

func NewNotFound(resource string, id int64) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// UnavailableError reports a business-rule violation on booking creation or
// approval: bad interval, unavailable item, wrong actor, wrong status.
type UnavailableError struct {
	Reason string
}

func (e *UnavailableError) Error() string {
	return e.Reason
}

func NewUnavailable(format string, args ...any) error {
	return &UnavailableError{Reason: fmt.Sprintf(format, args...)}
}

// AccessDeniedError reports an illegal viewer or actor: reading a booking as
// a third party, or editing an item that belongs to someone else. Distinct
// from UnavailableError: approval by a non-owner deliberately stays the
// business-rule kind.
type AccessDeniedError struct {
	UserID   int64
	Resource string
	ID       int64
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("user with id %d has no rights for %s with id %d", e.UserID, e.Resource, e.ID)
}

func NewAccessDenied(userID int64, resource string, id int64) error {
	return &AccessDeniedError{UserID: userID, Resource: resource, ID: id}
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsUnavailable(err error) bool {
	var target *UnavailableError
	return errors.As(err, &target)
}

func IsAccessDenied(err error) bool {
	var target *AccessDeniedError
	return errors.As(err, &target)
}
