package services

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/MickeyDagm/MDAFOnlineTutor/internal/config"
	"github.com/MickeyDagm/MDAFOnlineTutor/internal/metrics"
	"github.com/MickeyDagm/MDAFOnlineTutor/internal/models"
	"github.com/MickeyDagm/MDAFOnlineTutor/internal/pricing"
	"github.com/MickeyDagm/MDAFOnlineTutor/internal/repository"
	"github.com/MickeyDagm/MDAFOnlineTutor/internal/scheduling"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const callStatusEventType = "callStatusUpdate"

// Broadcaster delivers a payload to every subscriber of topic. Delivery is
// best effort.
type Broadcaster interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

type sessionStore interface {
	CreateIfFree(ctx context.Context, input repository.CreateSessionInput, check func([]models.Session) error) (*models.Session, error)
	GetByID(ctx context.Context, sessionID int64) (*models.Session, error)
	List(ctx context.Context, filter repository.SessionListFilter) ([]models.Session, error)
	Confirm(ctx context.Context, sessionID int64, party string) (*models.Session, error)
	StartCall(ctx context.Context, sessionID int64) (*models.Session, error)
	Complete(ctx context.Context, sessionID int64) (*models.Session, error)
	Cancel(ctx context.Context, sessionID int64) (*models.Session, error)
}

type userReader interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

type tutorProfileReader interface {
	GetByUserID(ctx context.Context, userID int64) (*models.TutorProfile, error)
}

type paymentReader interface {
	GetLatestBySessionID(ctx context.Context, sessionID int64) (*models.Payment, error)
	ListLatestBySessionIDs(ctx context.Context, sessionIDs []int64) (map[int64]models.Payment, error)
}

type SessionService struct {
	sessions        sessionStore
	users           userReader
	tutors          tutorProfileReader
	payments        paymentReader
	broadcaster     Broadcaster
	defaultTimezone string
	maxDuration     time.Duration
	metrics         *metrics.Registry
	logger          *zap.Logger
	now             func() time.Time
}

func NewSessionService(
	sessions sessionStore,
	users userReader,
	tutors tutorProfileReader,
	payments paymentReader,
	broadcaster Broadcaster,
	booking config.BookingConfig,
	registry *metrics.Registry,
	logger *zap.Logger,
) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		sessions:        sessions,
		users:           users,
		tutors:          tutors,
		payments:        payments,
		broadcaster:     broadcaster,
		defaultTimezone: booking.DefaultTutorTimezone,
		maxDuration:     booking.MaxSessionDuration,
		metrics:         registry,
		logger:          logger,
		now:             time.Now,
	}
}

type CreateSessionInput struct {
	TutorID       int64
	Subject       string
	Date          string
	Time          string
	DurationHours float64
}

// CreateSession books a new scheduled session for the student. The conflict
// check and the insert run under the store's per-tutor lock.
func (s *SessionService) CreateSession(
	ctx context.Context,
	actorID int64,
	role string,
	input CreateSessionInput,
) (detail *models.SessionDetail, err error) {
	defer func() {
		outcome := "created"
		if err != nil {
			outcome = Kind(err)
		}
		s.metrics.ObserveBooking(outcome)
	}()

	if role != models.RoleStudent {
		return nil, ErrNotAStudent
	}

	tutor, err := s.users.GetByID(ctx, input.TutorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTutorNotFound
		}
		return nil, err
	}
	if tutor.Role != models.RoleTutor {
		return nil, ErrTutorNotFound
	}

	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		return nil, ErrSubjectRequired
	}
	// Bounded before the conversion below, which overflows for huge inputs.
	if !(input.DurationHours > 0) || input.DurationHours > s.maxDuration.Hours() {
		return nil, ErrInvalidDuration
	}
	length := time.Duration(math.Round(input.DurationHours*60)) * time.Minute
	if length <= 0 {
		return nil, ErrInvalidDuration
	}

	profile, err := s.tutors.GetByUserID(ctx, input.TutorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTutorNotFound
		}
		return nil, err
	}

	zone := TutorZone(profile, s.defaultTimezone)
	start, err := scheduling.ComposeStart(input.Date, input.Time, zone)
	if err != nil || start.Before(s.now()) {
		return nil, ErrInvalidStartTime
	}
	if !profile.OffersSubject(subject) {
		return nil, ErrSubjectNotOffered
	}
	if profile.PricePerHour == nil || *profile.PricePerHour <= 0 {
		return nil, ErrTutorUnpriced
	}
	if *profile.PricePerHour > pricing.MaxPricePerHour {
		return nil, ErrPriceOutOfRange
	}

	interval := scheduling.NewInterval(start, length)
	session, err := s.sessions.CreateIfFree(ctx, repository.CreateSessionInput{
		TutorID:       input.TutorID,
		StudentID:     actorID,
		Subject:       subject,
		Date:          scheduling.LocalDate(start, zone),
		StartTime:     interval.Start.UTC(),
		EndTime:       interval.End.UTC(),
		DurationHours: length.Hours(),
		PricePerHour:  *profile.PricePerHour,
	}, func(existing []models.Session) error {
		if conflict, found := scheduling.FindConflict(input.TutorID, interval, existing); found {
			s.logger.Info("booking rejected by overlap",
				zap.Int64("tutor_id", input.TutorID),
				zap.Int64("conflicting_session_id", conflict.ID),
				zap.Time("start", interval.Start),
			)
			return ErrSlotConflict
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("session booked",
		zap.Int64("session_id", session.ID),
		zap.Int64("tutor_id", session.TutorID),
		zap.Int64("student_id", session.StudentID),
		zap.Time("start", session.StartTime),
	)
	result := models.NewSessionDetail(*session, nil)
	return &result, nil
}

func (s *SessionService) ListSessions(
	ctx context.Context,
	actorID int64,
	role string,
	status string,
) ([]models.SessionDetail, error) {
	sessions, err := s.sessions.List(ctx, repository.SessionListFilter{
		ActorID: actorID,
		Role:    role,
		Status:  status,
	})
	if err != nil {
		return nil, err
	}

	sessionIDs := make([]int64, 0, len(sessions))
	for _, session := range sessions {
		sessionIDs = append(sessionIDs, session.ID)
	}

	paymentsBySession, err := s.payments.ListLatestBySessionIDs(ctx, sessionIDs)
	if err != nil {
		return nil, err
	}

	details := make([]models.SessionDetail, 0, len(sessions))
	for _, session := range sessions {
		var payment *models.Payment
		if latest, ok := paymentsBySession[session.ID]; ok {
			paymentCopy := latest
			payment = &paymentCopy
		}
		details = append(details, models.NewSessionDetail(session, payment))
	}
	return details, nil
}

func (s *SessionService) GetSession(ctx context.Context, actorID int64, sessionID int64) (*models.SessionDetail, error) {
	session, _, err := s.loadForParty(ctx, actorID, sessionID)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, session)
}

// CanJoin reports whether actorID may subscribe to the session's live channel.
func (s *SessionService) CanJoin(ctx context.Context, actorID int64, sessionID int64) error {
	_, _, err := s.loadForParty(ctx, actorID, sessionID)
	return err
}

// Confirm records the actor's confirmation. The session becomes confirmed
// once both parties have confirmed, in either order.
func (s *SessionService) Confirm(ctx context.Context, actorID int64, sessionID int64) (detail *models.SessionDetail, err error) {
	defer s.observeTransition("confirm", &err)

	session, party, err := s.loadForParty(ctx, actorID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := confirmGuard(session, party); err != nil {
		return nil, err
	}

	updated, err := s.sessions.Confirm(ctx, sessionID, party)
	if errors.Is(err, pgx.ErrNoRows) {
		current, reloadErr := s.reload(ctx, sessionID)
		if reloadErr != nil {
			return nil, reloadErr
		}
		if guardErr := confirmGuard(current, party); guardErr != nil {
			return nil, guardErr
		}
		return nil, ErrSessionNotScheduled
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("session confirmed by party",
		zap.Int64("session_id", sessionID),
		zap.String("party", party),
		zap.String("status", updated.Status),
	)
	return s.detail(ctx, updated)
}

func confirmGuard(session *models.Session, party string) error {
	if session.Status != models.SessionStatusScheduled {
		return ErrSessionNotScheduled
	}
	if session.ConfirmedBy(party) {
		return ErrAlreadyConfirmed
	}
	return nil
}

// StartCall marks the call active on a confirmed session and notifies the
// session channel.
func (s *SessionService) StartCall(ctx context.Context, actorID int64, sessionID int64) (detail *models.SessionDetail, err error) {
	defer s.observeTransition("start_call", &err)

	session, _, err := s.loadForParty(ctx, actorID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := startCallGuard(session); err != nil {
		return nil, err
	}

	updated, err := s.sessions.StartCall(ctx, sessionID)
	if errors.Is(err, pgx.ErrNoRows) {
		current, reloadErr := s.reload(ctx, sessionID)
		if reloadErr != nil {
			return nil, reloadErr
		}
		return nil, startCallGuard(current)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("call started", zap.Int64("session_id", sessionID), zap.Int64("actor_id", actorID))
	s.publishCallStatus(ctx, updated)
	return s.detail(ctx, updated)
}

func startCallGuard(session *models.Session) error {
	switch session.Status {
	case models.SessionStatusConfirmed:
		return nil
	case models.SessionStatusScheduled:
		return ErrSessionNotConfirmed
	default:
		return ErrSessionClosed
	}
}

// Complete closes a confirmed session and ends its call. Completing an
// already completed session returns it unchanged.
func (s *SessionService) Complete(ctx context.Context, actorID int64, sessionID int64) (detail *models.SessionDetail, err error) {
	defer s.observeTransition("complete", &err)

	session, _, err := s.loadForParty(ctx, actorID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == models.SessionStatusCompleted {
		return s.detail(ctx, session)
	}
	if err := completeGuard(session); err != nil {
		return nil, err
	}

	updated, err := s.sessions.Complete(ctx, sessionID)
	if errors.Is(err, pgx.ErrNoRows) {
		current, reloadErr := s.reload(ctx, sessionID)
		if reloadErr != nil {
			return nil, reloadErr
		}
		if current.Status == models.SessionStatusCompleted {
			return s.detail(ctx, current)
		}
		return nil, completeGuard(current)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("session completed", zap.Int64("session_id", sessionID), zap.Int64("actor_id", actorID))
	s.publishCallStatus(ctx, updated)
	return s.detail(ctx, updated)
}

func completeGuard(session *models.Session) error {
	switch session.Status {
	case models.SessionStatusConfirmed:
		return nil
	case models.SessionStatusScheduled:
		return ErrSessionNotConfirmed
	default:
		return ErrSessionClosed
	}
}

// Cancel is allowed from scheduled or confirmed, regardless of confirmations.
func (s *SessionService) Cancel(ctx context.Context, actorID int64, sessionID int64) (detail *models.SessionDetail, err error) {
	defer s.observeTransition("cancel", &err)

	session, _, err := s.loadForParty(ctx, actorID, sessionID)
	if err != nil {
		return nil, err
	}
	if !isOpen(session.Status) {
		return nil, ErrSessionClosed
	}

	updated, err := s.sessions.Cancel(ctx, sessionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionClosed
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("session cancelled", zap.Int64("session_id", sessionID), zap.Int64("actor_id", actorID))
	if session.CallStatus == models.CallStatusActive {
		s.publishCallStatus(ctx, updated)
	}
	return s.detail(ctx, updated)
}

func isOpen(status string) bool {
	return status == models.SessionStatusScheduled || status == models.SessionStatusConfirmed
}

func (s *SessionService) reload(ctx context.Context, sessionID int64) (*models.Session, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return session, nil
}

func (s *SessionService) loadForParty(ctx context.Context, actorID int64, sessionID int64) (*models.Session, string, error) {
	session, err := s.reload(ctx, sessionID)
	if err != nil {
		return nil, "", err
	}
	party, ok := session.PartyOf(actorID)
	if !ok {
		return nil, "", ErrNotSessionParty
	}
	return session, party, nil
}

func (s *SessionService) detail(ctx context.Context, session *models.Session) (*models.SessionDetail, error) {
	payment, err := s.payments.GetLatestBySessionID(ctx, session.ID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		payment = nil
	}
	result := models.NewSessionDetail(*session, payment)
	return &result, nil
}

// publishCallStatus is fire-and-forget: a failed publish is logged and
// counted but never undoes the transition.
func (s *SessionService) publishCallStatus(ctx context.Context, session *models.Session) {
	if s.broadcaster == nil {
		return
	}
	payload, err := json.Marshal(models.CallStatusEvent{
		Type:       callStatusEventType,
		SessionID:  strconv.FormatInt(session.ID, 10),
		CallStatus: session.CallStatus,
		Timestamp:  s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		s.logger.Error("encode call status event", zap.Error(err))
		return
	}
	if err := s.broadcaster.Publish(ctx, models.SessionTopic(session.ID), payload); err != nil {
		s.metrics.ObserveBroadcastFailure()
		s.logger.Warn("broadcast call status",
			zap.Int64("session_id", session.ID),
			zap.String("call_status", session.CallStatus),
			zap.Error(err),
		)
	}
}

func (s *SessionService) observeTransition(name string, err *error) {
	s.metrics.ObserveTransition(name, Kind(*err))
}

// TutorZone returns the tutor's reference zone, falling back to fallback and then UTC.
func TutorZone(profile *models.TutorProfile, fallback string) *time.Location {
	for _, name := range []string{profile.Timezone, fallback} {
		if strings.TrimSpace(name) == "" {
			continue
		}
		if zone, err := time.LoadLocation(name); err == nil {
			return zone
		}
	}
	return time.UTC
}
