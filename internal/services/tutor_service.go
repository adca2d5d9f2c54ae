package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/MickeyDagm/MDAFOnlineTutor/internal/models"
	"github.com/MickeyDagm/MDAFOnlineTutor/internal/pricing"
	"github.com/MickeyDagm/MDAFOnlineTutor/internal/repository"
	"github.com/MickeyDagm/MDAFOnlineTutor/internal/scheduling"
	"github.com/jackc/pgx/v5"
)

type tutorDirectory interface {
	List(ctx context.Context, filter repository.TutorListFilter) ([]models.TutorProfile, int, error)
	GetByUserID(ctx context.Context, userID int64) (*models.TutorProfile, error)
	FilterOptions(ctx context.Context) (*models.FilterOptions, error)
	UpdatePartial(ctx context.Context, userID int64, req repository.UpdateTutorProfileInput) (*models.TutorProfile, error)
	MarkVerified(ctx context.Context, userID int64) (*models.TutorProfile, error)
}

const maxSearchLength = 100

type TutorService struct {
	repo tutorDirectory
}

func NewTutorService(repo tutorDirectory) *TutorService {
	return &TutorService{repo: repo}
}

func (s *TutorService) List(ctx context.Context, filter repository.TutorListFilter) ([]models.TutorProfile, int, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	if len(filter.Search) > maxSearchLength {
		return nil, 0, ErrSearchTooLong
	}
	if filter.MinPrice > 0 && filter.MaxPrice > 0 && filter.MinPrice > filter.MaxPrice {
		return nil, 0, ErrInvalidPriceRange
	}
	if strings.TrimSpace(filter.Day) != "" {
		day, ok := scheduling.NormalizeDay(filter.Day)
		if !ok {
			return nil, 0, ErrInvalidDay
		}
		filter.Day = day
	}
	return s.repo.List(ctx, filter)
}

func (s *TutorService) Get(ctx context.Context, tutorID int64) (*models.TutorProfile, error) {
	profile, err := s.repo.GetByUserID(ctx, tutorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTutorNotFound
		}
		return nil, err
	}
	return profile, nil
}

func (s *TutorService) FilterOptions(ctx context.Context) (*models.FilterOptions, error) {
	return s.repo.FilterOptions(ctx)
}

// UpdateProfile applies the non-nil fields. Rate changes never touch booked
// sessions, which keep their own price snapshot.
func (s *TutorService) UpdateProfile(
	ctx context.Context,
	actorID int64,
	role string,
	input repository.UpdateTutorProfileInput,
) (*models.TutorProfile, error) {
	if role != models.RoleTutor {
		return nil, ErrNotATutor
	}

	if input.PricePerHour != nil {
		price := *input.PricePerHour
		if price < 0 || math.IsNaN(price) {
			return nil, ErrInvalidProfileData
		}
		if price > pricing.MaxPricePerHour {
			return nil, ErrPriceOutOfRange
		}
	}
	if input.Timezone != nil {
		zone := strings.TrimSpace(*input.Timezone)
		if _, err := time.LoadLocation(zone); err != nil || zone == "" {
			return nil, ErrInvalidTimezone
		}
		input.Timezone = &zone
	}
	if input.Subjects != nil {
		subjects := cleanSubjects(*input.Subjects)
		input.Subjects = &subjects
	}

	profile, err := s.repo.UpdatePartial(ctx, actorID, input)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTutorNotFound
		}
		return nil, err
	}
	return profile, nil
}

// Verify marks the tutor's own profile verified once it has a name, subjects
// and a price.
func (s *TutorService) Verify(ctx context.Context, actorID int64, role string) (*models.TutorProfile, error) {
	if role != models.RoleTutor {
		return nil, ErrNotATutor
	}

	profile, err := s.repo.MarkVerified(ctx, actorID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if _, err := s.repo.GetByUserID(ctx, actorID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTutorNotFound
		}
		return nil, err
	}
	return nil, ErrProfileIncomplete
}

// cleanSubjects trims entries and drops blanks and case-insensitive duplicates.
func cleanSubjects(subjects []string) []string {
	seen := make(map[string]struct{}, len(subjects))
	cleaned := make([]string, 0, len(subjects))
	for _, subject := range subjects {
		subject = strings.TrimSpace(subject)
		key := strings.ToLower(subject)
		if subject == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		cleaned = append(cleaned, subject)
	}
	return cleaned
}
