package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MickeyDagm/MDAFOnlineTutor/internal/config"
	"github.com/MickeyDagm/MDAFOnlineTutor/internal/models"
	"github.com/MickeyDagm/MDAFOnlineTutor/internal/scheduling"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type availabilityStore interface {
	GetByUserID(ctx context.Context, userID int64) (*models.TutorProfile, error)
	ReplaceAvailability(ctx context.Context, tutorID int64, rules []models.AvailabilityRule) ([]models.AvailabilityRule, error)
}

type bookedSessionLister interface {
	ListActiveByTutorBetween(ctx context.Context, tutorID int64, from time.Time, to time.Time) ([]models.Session, error)
}

type AvailabilityService struct {
	store    availabilityStore
	sessions bookedSessionLister
	booking  config.BookingConfig
	logger   *zap.Logger
	now      func() time.Time
}

func NewAvailabilityService(
	store availabilityStore,
	sessions bookedSessionLister,
	booking config.BookingConfig,
	logger *zap.Logger,
) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{
		store:    store,
		sessions: sessions,
		booking:  booking,
		logger:   logger,
		now:      time.Now,
	}
}

// ReplaceAvailability validates the whole weekly template and swaps it in.
// Overlapping rules on the same day are rejected.
func (s *AvailabilityService) ReplaceAvailability(
	ctx context.Context,
	actorID int64,
	role string,
	rules []models.AvailabilityRule,
) ([]models.AvailabilityRule, error) {
	if role != models.RoleTutor {
		return nil, ErrNotATutor
	}

	normalized, err := scheduling.NormalizeRules(rules)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}

	saved, err := s.store.ReplaceAvailability(ctx, actorID, normalized)
	if err != nil {
		return nil, err
	}
	s.logger.Info("availability replaced", zap.Int64("tutor_id", actorID), zap.Int("rules", len(saved)))
	return saved, nil
}

type SlotsResult struct {
	TutorID       int64             `json:"tutor_id"`
	TutorTimezone string            `json:"tutor_timezone"`
	Timezone      string            `json:"timezone"`
	Slots         []scheduling.Slot `json:"slots"`
}

// AvailableSlots resolves the tutor's template over the booking horizon in
// viewerZone and drops slots whose conservative window hits a booking.
func (s *AvailabilityService) AvailableSlots(ctx context.Context, tutorID int64, viewerZone string) (*SlotsResult, error) {
	viewer := time.UTC
	if name := strings.TrimSpace(viewerZone); name != "" {
		zone, err := time.LoadLocation(name)
		if err != nil {
			return nil, ErrInvalidTimezone
		}
		viewer = zone
	}

	profile, err := s.store.GetByUserID(ctx, tutorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTutorNotFound
		}
		return nil, err
	}
	tutorZone := TutorZone(profile, s.booking.DefaultTutorTimezone)

	now := s.now()
	slots := scheduling.ResolveSlots(profile.Availability, scheduling.SlotQuery{
		TutorZone:   tutorZone,
		ViewerZone:  viewer,
		Now:         now,
		HorizonDays: s.booking.HorizonDays,
		Granularity: s.booking.SlotGranularity,
	})

	if len(slots) > 0 {
		window := s.booking.SlotMaxDuration
		if window <= 0 {
			window = scheduling.DefaultMaxDuration
		}
		booked, err := s.sessions.ListActiveByTutorBetween(ctx, tutorID, slots[0].Start, slots[len(slots)-1].Start.Add(window))
		if err != nil {
			return nil, err
		}
		slots = scheduling.FilterAvailable(slots, tutorID, booked, window)
	}

	return &SlotsResult{
		TutorID:       tutorID,
		TutorTimezone: tutorZone.String(),
		Timezone:      viewer.String(),
		Slots:         slots,
	}, nil
}
