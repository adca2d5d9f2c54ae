package services

import (
	"errors"
	"fmt"

	"github.com/MickeyDagm/MDAFOnlineTutor/internal/pricing"
)

// Error kinds. Every error a service returns on purpose wraps exactly one of these.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrValidation   = errors.New("validation error")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
)

var (
	ErrTutorNotFound   = fmt.Errorf("tutor %w", ErrNotFound)
	ErrSessionNotFound = fmt.Errorf("session %w", ErrNotFound)
	ErrUserNotFound    = fmt.Errorf("user %w", ErrNotFound)

	ErrNotAStudent     = fmt.Errorf("%w: only students can do this", ErrUnauthorized)
	ErrNotATutor       = fmt.Errorf("%w: only tutors can do this", ErrUnauthorized)
	ErrNotSessionParty = fmt.Errorf("%w: not a participant of this session", ErrUnauthorized)
	ErrNotYourSession  = fmt.Errorf("%w: not your session", ErrUnauthorized)
	ErrBadCredentials  = fmt.Errorf("%w: invalid email or password", ErrUnauthorized)

	ErrSubjectRequired    = fmt.Errorf("%w: subject is required", ErrValidation)
	ErrSubjectNotOffered  = fmt.Errorf("%w: tutor does not teach this subject", ErrValidation)
	ErrInvalidDuration    = fmt.Errorf("%w: duration must be a positive number of hours within the session limit", ErrValidation)
	ErrInvalidStartTime   = fmt.Errorf("%w: date and time do not form a valid future start", ErrValidation)
	ErrTutorUnpriced      = fmt.Errorf("%w: tutor has not set a price", ErrValidation)
	ErrInvalidTimezone    = fmt.Errorf("%w: unknown time zone", ErrValidation)
	ErrInvalidRating      = fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
	ErrPaymentMethod      = fmt.Errorf("%w: payment method is required", ErrValidation)
	ErrPriceOutOfRange    = fmt.Errorf("%w: price per hour must be at most %.0f", ErrValidation, pricing.MaxPricePerHour)
	ErrInvalidProfileData = fmt.Errorf("%w: invalid profile data", ErrValidation)
	ErrInvalidDay         = fmt.Errorf("%w: unknown weekday", ErrValidation)
	ErrInvalidPriceRange  = fmt.Errorf("%w: min_price must not exceed max_price", ErrValidation)
	ErrSearchTooLong      = fmt.Errorf("%w: search must be at most 100 characters", ErrValidation)
	ErrProfileIncomplete  = fmt.Errorf("%w: name, subjects and price are required before verification", ErrValidation)

	ErrSlotConflict     = fmt.Errorf("%w: requested time overlaps an existing session", ErrConflict)
	ErrAlreadyConfirmed = fmt.Errorf("%w: session already confirmed by you", ErrConflict)
	ErrAlreadyReviewed  = fmt.Errorf("%w: session already reviewed", ErrConflict)
	ErrEmailTaken       = fmt.Errorf("%w: email already exists", ErrConflict)

	ErrSessionNotScheduled = fmt.Errorf("%w: session is not awaiting confirmation", ErrInvalidState)
	ErrSessionNotConfirmed = fmt.Errorf("%w: session is not confirmed", ErrInvalidState)
	ErrSessionNotCompleted = fmt.Errorf("%w: session is not completed", ErrInvalidState)
	ErrSessionClosed       = fmt.Errorf("%w: session is already completed or cancelled", ErrInvalidState)
)

// Kind names the error kind err wraps, for metrics labels. Nil is "ok".
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	default:
		return "error"
	}
}
