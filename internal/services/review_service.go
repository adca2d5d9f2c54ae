package services

import (
	"context"
	"errors"
	"strings"

	"github.com/MickeyDagm/MDAFOnlineTutor/internal/models"
	"github.com/MickeyDagm/MDAFOnlineTutor/internal/repository"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type reviewStore interface {
	Submit(ctx context.Context, input repository.CreateReviewInput) (*models.Review, error)
	ListByTutor(ctx context.Context, tutorID int64) ([]models.ReviewListItem, error)
	ListByStudent(ctx context.Context, studentID int64) ([]models.ReviewListItem, error)
}

type sessionGetter interface {
	GetByID(ctx context.Context, sessionID int64) (*models.Session, error)
}

type ReviewService struct {
	store    reviewStore
	sessions sessionGetter
	logger   *zap.Logger
}

func NewReviewService(store reviewStore, sessions sessionGetter, logger *zap.Logger) *ReviewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewService{store: store, sessions: sessions, logger: logger}
}

type SubmitReviewInput struct {
	SessionID int64
	Rating    int
	Comment   string
}

// SubmitReview lets the student of a completed session review it once.
func (s *ReviewService) SubmitReview(ctx context.Context, actorID int64, input SubmitReviewInput) (*models.Review, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, ErrInvalidRating
	}

	session, err := s.sessions.GetByID(ctx, input.SessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if session.StudentID != actorID {
		return nil, ErrNotYourSession
	}
	if session.Status != models.SessionStatusCompleted {
		return nil, ErrSessionNotCompleted
	}

	review, err := s.store.Submit(ctx, repository.CreateReviewInput{
		SessionID: session.ID,
		StudentID: actorID,
		TutorID:   session.TutorID,
		Rating:    input.Rating,
		Comment:   strings.TrimSpace(input.Comment),
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyReviewed
		}
		return nil, err
	}

	s.logger.Info("review submitted",
		zap.Int64("session_id", session.ID),
		zap.Int64("tutor_id", session.TutorID),
		zap.Int("rating", review.Rating),
	)
	return review, nil
}

func (s *ReviewService) ListForTutor(ctx context.Context, tutorID int64) ([]models.ReviewListItem, error) {
	return s.store.ListByTutor(ctx, tutorID)
}

func (s *ReviewService) ListForStudent(ctx context.Context, studentID int64) ([]models.ReviewListItem, error) {
	return s.store.ListByStudent(ctx, studentID)
}
