package services

import (
	"context"
	"errors"
	"strings"

	"github.com/MickeyDagm/MDAFOnlineTutor/internal/models"
	"github.com/MickeyDagm/MDAFOnlineTutor/internal/pricing"
	"github.com/MickeyDagm/MDAFOnlineTutor/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type ChargeRequest struct {
	SessionID     int64
	StudentID     int64
	AmountCents   int64
	PaymentMethod string
}

type ChargeResult struct {
	Status    string
	Reference string
}

// PaymentProcessor moves the money. A declined charge is a ChargeResult with
// status failed; an error means the processor could not be reached.
type PaymentProcessor interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}

// ManualProcessor accepts every charge and issues a random reference. It
// stands in until a real gateway is configured.
type ManualProcessor struct{}

func (ManualProcessor) Charge(_ context.Context, _ ChargeRequest) (ChargeResult, error) {
	return ChargeResult{
		Status:    models.PaymentStatusCompleted,
		Reference: "manual-" + uuid.NewString(),
	}, nil
}

type paymentStore interface {
	Settle(ctx context.Context, sessionID int64, settle repository.SettleFunc) (*models.Payment, error)
	ListEarnings(ctx context.Context, tutorID int64) ([]models.EarningsEntry, error)
}

type PaymentService struct {
	store     paymentStore
	sessions  *SessionService
	engine    *pricing.Engine
	processor PaymentProcessor
	logger    *zap.Logger
}

func NewPaymentService(
	store paymentStore,
	sessions *SessionService,
	engine *pricing.Engine,
	processor PaymentProcessor,
	logger *zap.Logger,
) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if processor == nil {
		processor = ManualProcessor{}
	}
	return &PaymentService{
		store:     store,
		sessions:  sessions,
		engine:    engine,
		processor: processor,
		logger:    logger,
	}
}

// PayForSession charges the student for the session's booked interval at its
// snapshotted rate. A session that already has a completed payment is
// returned as is.
func (s *PaymentService) PayForSession(
	ctx context.Context,
	actorID int64,
	sessionID int64,
	paymentMethod string,
) (*models.SessionDetail, error) {
	method := strings.TrimSpace(paymentMethod)
	if method == "" {
		return nil, ErrPaymentMethod
	}

	payment, err := s.store.Settle(ctx, sessionID, func(session *models.Session, latest *models.Payment) (*repository.CreatePaymentInput, error) {
		if session.StudentID != actorID {
			return nil, ErrNotYourSession
		}
		if latest != nil && latest.Status == models.PaymentStatusCompleted {
			return nil, nil
		}
		if !isOpen(session.Status) {
			return nil, ErrSessionClosed
		}

		quote, err := s.engine.QuoteInterval(session.PricePerHour, session.StartTime, session.EndTime)
		if err != nil {
			return nil, ErrPriceOutOfRange
		}
		result, err := s.processor.Charge(ctx, ChargeRequest{
			SessionID:     session.ID,
			StudentID:     actorID,
			AmountCents:   quote.AmountCents,
			PaymentMethod: method,
		})
		if err != nil {
			return nil, err
		}

		return &repository.CreatePaymentInput{
			SessionID:          session.ID,
			TutorID:            session.TutorID,
			StudentID:          session.StudentID,
			AmountCents:        quote.AmountCents,
			PlatformFeeCents:   quote.PlatformFeeCents,
			TutorEarningsCents: quote.TutorEarningsCents,
			Status:             result.Status,
			PaymentMethod:      method,
			Reference:          result.Reference,
		}, nil
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	if payment != nil {
		s.logger.Info("session payment recorded",
			zap.Int64("session_id", sessionID),
			zap.Int64("payment_id", payment.ID),
			zap.String("status", payment.Status),
			zap.Int64("amount_cents", payment.AmountCents),
		)
	}
	return s.sessions.GetSession(ctx, actorID, sessionID)
}

func (s *PaymentService) Earnings(ctx context.Context, actorID int64, role string) (*models.EarningsSummary, error) {
	if role != models.RoleTutor {
		return nil, ErrNotATutor
	}

	entries, err := s.store.ListEarnings(ctx, actorID)
	if err != nil {
		return nil, err
	}

	summary := &models.EarningsSummary{Entries: entries}
	for _, entry := range entries {
		summary.AmountCents += entry.AmountCents
		summary.PlatformFeeCents += entry.PlatformFeeCents
		summary.TutorEarningsCents += entry.TutorEarningsCents
	}
	return summary, nil
}
