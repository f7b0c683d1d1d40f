package services

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
)

// Error is a user-facing failure. Its Message is safe to return to clients.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Validationf builds a validation error with a formatted message.
func Validationf(format string, args ...interface{}) *Error {
	return newError(KindValidation, fmt.Sprintf(format, args...))
}

var (
	ErrEventNotFound       = newError(KindNotFound, "Event not found")
	ErrAttendanceNotFound  = newError(KindNotFound, "You are not registered for this event")
	ErrReviewNotFound      = newError(KindNotFound, "Review not found")
	ErrMerchNotFound       = newError(KindNotFound, "Product not found")
	ErrUserNotFound        = newError(KindNotFound, "User not found")
	ErrNotEventOwner       = newError(KindForbidden, "You are not authorized to manage this event")
	ErrNotMerchOwner       = newError(KindForbidden, "Permission denied")
	ErrNotReviewOwner      = newError(KindForbidden, "You are not authorized to modify this review")
	ErrNotSelf             = newError(KindForbidden, "You are not authorized to perform this action")
	ErrRunnerOnly          = newError(KindForbidden, "Only runners can perform this action")
	ErrOrganizerOnly       = newError(KindForbidden, "Only event organizers can perform this action")
	ErrRunnersOnlyRedeem   = newError(KindForbidden, "Only runners can redeem merchandise")
	ErrRunnersOnlyReview   = newError(KindForbidden, "Only runners can post reviews")
	ErrInvalidPassword     = newError(KindUnauthorized, "Invalid password")
	ErrInvalidCredentials  = newError(KindUnauthorized, "Login failed, please check your username or password")
	ErrEventFull           = newError(KindConflict, "Event is full")
	ErrRegistrationClosed  = newError(KindConflict, "Registration for this event is closed")
	ErrInvalidCategory     = newError(KindValidation, "Selected category is not available for this event")
	ErrCannotCancelFinish  = newError(KindConflict, "Cannot cancel a finished event")
	ErrEventNotStarted     = newError(KindConflict, "Event has not taken place yet")
	ErrEventCanceled       = newError(KindConflict, "Event has been canceled")
	ErrCapacityBelowCount  = newError(KindValidation, "Cannot reduce capacity below current participants")
	ErrAlreadyReviewed     = newError(KindConflict, "You have already reviewed this event")
	ErrReviewNotAllowed    = newError(KindForbidden, "You can only review events you attended")
	ErrInvalidRating       = newError(KindValidation, "Invalid rating")
	ErrRatingOutOfRange    = newError(KindValidation, "Rating must be between 1 and 5")
	ErrInvalidQuantity     = newError(KindValidation, "Invalid quantity")
	ErrInsufficientStock   = newError(KindConflict, "Insufficient stock")
	ErrInsufficientCoins   = newError(KindConflict, "Insufficient coins")
	ErrUsernameTaken       = newError(KindConflict, "Username already exists")
	ErrPasswordMismatch    = newError(KindValidation, "Passwords do not match")
	ErrInvalidRole         = newError(KindValidation, "Invalid role")
	ErrInvalidBaseLocation = newError(KindValidation, "Invalid base location")
)

// KindOf returns the kind of a service error, or KindInternal for anything
// else.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}
