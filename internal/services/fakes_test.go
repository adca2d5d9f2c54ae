package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/MickeyDagm/MDAFOnlineTutor/internal/models"
	"github.com/MickeyDagm/MDAFOnlineTutor/internal/repository"
	"github.com/jackc/pgx/v5"
)

// memoryStore mimics the Postgres stores: every write holds the mutex so
// conditional updates and check-then-insert are atomic.
type memoryStore struct {
	mu       sync.Mutex
	nextID   int64
	sessions map[int64]*models.Session
	payments []models.Payment
	reviews  []models.Review
	rules    map[int64][]models.AvailabilityRule
	users    map[int64]*models.User
	profiles map[int64]*models.TutorProfile
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		sessions: make(map[int64]*models.Session),
		rules:    make(map[int64][]models.AvailabilityRule),
		users:    make(map[int64]*models.User),
		profiles: make(map[int64]*models.TutorProfile),
	}
}

func (m *memoryStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memoryStore) addUser(id int64, role string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id] = &models.User{ID: id, Name: role, Email: role + "@example.com", Role: role}
}

func (m *memoryStore) addTutor(id int64, price float64, timezone string, subjects ...string) {
	m.addUser(id, models.RoleTutor)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[id] = &models.TutorProfile{
		ID:           id,
		UserID:       id,
		Subjects:     subjects,
		PricePerHour: &price,
		Timezone:     timezone,
	}
}

func (m *memoryStore) GetByID(_ context.Context, sessionID int64) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *session
	return &copied, nil
}

func (m *memoryStore) CreateIfFree(
	_ context.Context,
	input repository.CreateSessionInput,
	check func([]models.Session) error,
) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing := make([]models.Session, 0)
	for _, session := range m.sessions {
		if session.TutorID == input.TutorID && session.Status != models.SessionStatusCancelled {
			existing = append(existing, *session)
		}
	}
	if err := check(existing); err != nil {
		return nil, err
	}

	session := &models.Session{
		ID:            m.id(),
		TutorID:       input.TutorID,
		StudentID:     input.StudentID,
		Subject:       input.Subject,
		Date:          input.Date,
		StartTime:     input.StartTime,
		EndTime:       input.EndTime,
		DurationHours: input.DurationHours,
		PricePerHour:  input.PricePerHour,
		Status:        models.SessionStatusScheduled,
		CallStatus:    models.CallStatusInactive,
	}
	m.sessions[session.ID] = session
	copied := *session
	return &copied, nil
}

func (m *memoryStore) List(_ context.Context, filter repository.SessionListFilter) ([]models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions := make([]models.Session, 0)
	for _, session := range m.sessions {
		actor := session.StudentID
		if filter.Role == models.RoleTutor {
			actor = session.TutorID
		}
		if actor != filter.ActorID {
			continue
		}
		if filter.Status != "" && session.Status != filter.Status {
			continue
		}
		sessions = append(sessions, *session)
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].StartTime.Before(sessions[j].StartTime) })
	return sessions, nil
}

func (m *memoryStore) ListActiveByTutorBetween(_ context.Context, tutorID int64, from, to time.Time) ([]models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessions := make([]models.Session, 0)
	for _, session := range m.sessions {
		if session.TutorID != tutorID || session.Status == models.SessionStatusCancelled {
			continue
		}
		if session.StartTime.Before(to) && session.EndTime.After(from) {
			sessions = append(sessions, *session)
		}
	}
	return sessions, nil
}

// update applies mutate when match holds and reports pgx.ErrNoRows otherwise,
// like an UPDATE ... WHERE ... RETURNING.
func (m *memoryStore) update(sessionID int64, match func(*models.Session) bool, mutate func(*models.Session)) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[sessionID]
	if !ok || !match(session) {
		return nil, pgx.ErrNoRows
	}
	mutate(session)
	copied := *session
	return &copied, nil
}

func (m *memoryStore) Confirm(_ context.Context, sessionID int64, party string) (*models.Session, error) {
	if party != models.PartyStudent && party != models.PartyTutor {
		return nil, errors.New("unknown party")
	}
	return m.update(sessionID,
		func(s *models.Session) bool {
			return s.Status == models.SessionStatusScheduled && !s.ConfirmedBy(party)
		},
		func(s *models.Session) {
			if party == models.PartyStudent {
				s.StudentConfirmed = true
			} else {
				s.TutorConfirmed = true
			}
			if s.StudentConfirmed && s.TutorConfirmed {
				s.Status = models.SessionStatusConfirmed
			}
		},
	)
}

func (m *memoryStore) StartCall(_ context.Context, sessionID int64) (*models.Session, error) {
	return m.update(sessionID,
		func(s *models.Session) bool { return s.Status == models.SessionStatusConfirmed },
		func(s *models.Session) { s.CallStatus = models.CallStatusActive },
	)
}

func (m *memoryStore) Complete(_ context.Context, sessionID int64) (*models.Session, error) {
	return m.update(sessionID,
		func(s *models.Session) bool { return s.Status == models.SessionStatusConfirmed },
		func(s *models.Session) {
			s.Status = models.SessionStatusCompleted
			s.CallStatus = models.CallStatusEnded
		},
	)
}

func (m *memoryStore) Cancel(_ context.Context, sessionID int64) (*models.Session, error) {
	return m.update(sessionID,
		func(s *models.Session) bool { return isOpen(s.Status) },
		func(s *models.Session) {
			s.Status = models.SessionStatusCancelled
			if s.CallStatus == models.CallStatusActive {
				s.CallStatus = models.CallStatusEnded
			}
		},
	)
}

func (m *memoryStore) GetLatestBySessionID(_ context.Context, sessionID int64) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latestPayment(sessionID)
}

func (m *memoryStore) latestPayment(sessionID int64) (*models.Payment, error) {
	for i := len(m.payments) - 1; i >= 0; i-- {
		if m.payments[i].SessionID == sessionID {
			copied := m.payments[i]
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memoryStore) ListLatestBySessionIDs(_ context.Context, sessionIDs []int64) (map[int64]models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payments := make(map[int64]models.Payment)
	for _, id := range sessionIDs {
		if payment, err := m.latestPayment(id); err == nil {
			payments[id] = *payment
		}
	}
	return payments, nil
}

func (m *memoryStore) Settle(_ context.Context, sessionID int64, settle repository.SettleFunc) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	latest, err := m.latestPayment(sessionID)
	if err != nil {
		latest = nil
	}
	sessionCopy := *session
	input, err := settle(&sessionCopy, latest)
	if err != nil {
		return nil, err
	}
	if input == nil {
		return latest, nil
	}
	payment := models.Payment{
		ID:                 m.id(),
		SessionID:          input.SessionID,
		TutorID:            input.TutorID,
		StudentID:          input.StudentID,
		AmountCents:        input.AmountCents,
		PlatformFeeCents:   input.PlatformFeeCents,
		TutorEarningsCents: input.TutorEarningsCents,
		Status:             input.Status,
		PaymentMethod:      input.PaymentMethod,
		Reference:          input.Reference,
		CreatedAt:          time.Now(),
	}
	m.payments = append(m.payments, payment)
	return &payment, nil
}

func (m *memoryStore) ListEarnings(_ context.Context, tutorID int64) ([]models.EarningsEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := make([]models.EarningsEntry, 0)
	for _, payment := range m.payments {
		if payment.TutorID != tutorID || payment.Status != models.PaymentStatusCompleted {
			continue
		}
		entries = append(entries, models.EarningsEntry{
			PaymentID:          payment.ID,
			SessionID:          payment.SessionID,
			StudentID:          payment.StudentID,
			Subject:            m.sessions[payment.SessionID].Subject,
			AmountCents:        payment.AmountCents,
			PlatformFeeCents:   payment.PlatformFeeCents,
			TutorEarningsCents: payment.TutorEarningsCents,
			PaidAt:             payment.CreatedAt,
		})
	}
	return entries, nil
}

func (m *memoryStore) Submit(_ context.Context, input repository.CreateReviewInput) (*models.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, review := range m.reviews {
		if review.SessionID == input.SessionID && review.StudentID == input.StudentID {
			return nil, repository.ErrDuplicate
		}
	}
	review := models.Review{
		ID:        m.id(),
		SessionID: input.SessionID,
		StudentID: input.StudentID,
		TutorID:   input.TutorID,
		Rating:    input.Rating,
		Comment:   input.Comment,
	}
	m.reviews = append(m.reviews, review)
	if session, ok := m.sessions[input.SessionID]; ok {
		rating, comment := input.Rating, input.Comment
		session.Rating = &rating
		session.Review = &comment
	}
	return &review, nil
}

func (m *memoryStore) ListByTutor(_ context.Context, tutorID int64) ([]models.ReviewListItem, error) {
	return m.listReviews(func(r models.Review) bool { return r.TutorID == tutorID }), nil
}

func (m *memoryStore) ListByStudent(_ context.Context, studentID int64) ([]models.ReviewListItem, error) {
	return m.listReviews(func(r models.Review) bool { return r.StudentID == studentID }), nil
}

func (m *memoryStore) listReviews(keep func(models.Review) bool) []models.ReviewListItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]models.ReviewListItem, 0)
	for _, review := range m.reviews {
		if keep(review) {
			items = append(items, models.ReviewListItem{Review: review})
		}
	}
	return items
}

func (m *memoryStore) ReplaceAvailability(_ context.Context, tutorID int64, rules []models.AvailabilityRule) ([]models.AvailabilityRule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	saved := make([]models.AvailabilityRule, 0, len(rules))
	for _, rule := range rules {
		rule.ID = m.id()
		rule.TutorID = tutorID
		saved = append(saved, rule)
	}
	m.rules[tutorID] = saved
	if profile, ok := m.profiles[tutorID]; ok {
		profile.Availability = saved
	}
	return saved, nil
}

// userDirectory and profileDirectory expose the users and profiles maps under
// the method names the services expect. GetByID collides with the session
// store's, so they are separate views.
type userDirectory struct{ store *memoryStore }

func (u userDirectory) GetByID(_ context.Context, id int64) (*models.User, error) {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	user, ok := u.store.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

type profileDirectory struct{ store *memoryStore }

func (p profileDirectory) GetByUserID(_ context.Context, userID int64) (*models.TutorProfile, error) {
	p.store.mu.Lock()
	defer p.store.mu.Unlock()
	profile, ok := p.store.profiles[userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *profile
	copied.Availability = append([]models.AvailabilityRule(nil), p.store.rules[userID]...)
	return &copied, nil
}

func (p profileDirectory) ReplaceAvailability(ctx context.Context, tutorID int64, rules []models.AvailabilityRule) ([]models.AvailabilityRule, error) {
	return p.store.ReplaceAvailability(ctx, tutorID, rules)
}

type published struct {
	topic   string
	payload []byte
}

type recordingBroadcaster struct {
	mu       sync.Mutex
	messages []published
	err      error
}

func (b *recordingBroadcaster) Publish(_ context.Context, topic string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, published{topic: topic, payload: payload})
	return b.err
}

func (b *recordingBroadcaster) sent() []published {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]published(nil), b.messages...)
}
