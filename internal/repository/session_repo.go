package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MickeyDagm/MDAFOnlineTutor/internal/models"
)

const sessionColumns = `
	id, tutor_id, student_id, subject, session_date::text, start_time, end_time,
	duration_hours, price_per_hour, status, student_confirmed, tutor_confirmed,
	call_status, rating, review, created_at, updated_at
`

// Bookings near the candidate are loaded with this much slack on either side
// so the caller's overlap check sees every session that could touch it.
const conflictLookaround = 24 * time.Hour

type CreateSessionInput struct {
	TutorID       int64
	StudentID     int64
	Subject       string
	Date          string
	StartTime     time.Time
	EndTime       time.Time
	DurationHours float64
	PricePerHour  float64
}

type SessionListFilter struct {
	ActorID int64
	Role    string
	Status  string
}

type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

func scanSession(row rowScanner) (*models.Session, error) {
	var session models.Session
	err := row.Scan(
		&session.ID,
		&session.TutorID,
		&session.StudentID,
		&session.Subject,
		&session.Date,
		&session.StartTime,
		&session.EndTime,
		&session.DurationHours,
		&session.PricePerHour,
		&session.Status,
		&session.StudentConfirmed,
		&session.TutorConfirmed,
		&session.CallStatus,
		&session.Rating,
		&session.Review,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) Create(ctx context.Context, input CreateSessionInput) (*models.Session, error) {
	query := `
		INSERT INTO sessions (
			tutor_id, student_id, subject, session_date, start_time, end_time,
			duration_hours, price_per_hour, status, student_confirmed, tutor_confirmed, call_status
		)
		VALUES ($1, $2, $3, $4::date, $5, $6, $7, $8, 'scheduled', FALSE, FALSE, 'inactive')
		RETURNING ` + sessionColumns

	return scanSession(r.db.QueryRow(
		ctx,
		query,
		input.TutorID,
		input.StudentID,
		input.Subject,
		input.Date,
		input.StartTime.UTC(),
		input.EndTime.UTC(),
		input.DurationHours,
		input.PricePerHour,
	))
}

func (r *SessionRepository) GetByID(ctx context.Context, sessionID int64) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	return scanSession(r.db.QueryRow(ctx, query, sessionID))
}

func (r *SessionRepository) GetByIDForUpdate(ctx context.Context, sessionID int64) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1 FOR UPDATE`
	return scanSession(r.db.QueryRow(ctx, query, sessionID))
}

func (r *SessionRepository) List(ctx context.Context, filter SessionListFilter) ([]models.Session, error) {
	actorColumn := "student_id"
	if filter.Role == models.RoleTutor {
		actorColumn = "tutor_id"
	}

	args := []any{filter.ActorID}
	whereParts := []string{fmt.Sprintf("%s = $1", actorColumn)}

	if status := strings.TrimSpace(filter.Status); status != "" {
		args = append(args, status)
		whereParts = append(whereParts, fmt.Sprintf("status = $%d", len(args)))
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM sessions
		WHERE %s
		ORDER BY start_time ASC, id ASC
	`, sessionColumns, strings.Join(whereParts, " AND "))

	return r.queryAll(ctx, query, args...)
}

// ListActiveByTutorBetween returns the tutor's non-cancelled sessions that
// intersect [from, to).
func (r *SessionRepository) ListActiveByTutorBetween(
	ctx context.Context,
	tutorID int64,
	from time.Time,
	to time.Time,
) ([]models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE tutor_id = $1
		  AND status <> 'cancelled'
		  AND start_time < $3
		  AND end_time > $2
		ORDER BY start_time ASC
	`
	return r.queryAll(ctx, query, tutorID, from.UTC(), to.UTC())
}

func (r *SessionRepository) queryAll(ctx context.Context, query string, args ...any) ([]models.Session, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]models.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// Confirm sets party's flag and promotes the session to confirmed once both
// flags are set. It matches only a scheduled session whose flag for party is
// still false, so concurrent confirmations cannot lose an update. A miss
// surfaces as pgx.ErrNoRows.
func (r *SessionRepository) Confirm(ctx context.Context, sessionID int64, party string) (*models.Session, error) {
	var query string
	switch party {
	case models.PartyStudent:
		query = `
			UPDATE sessions
			SET student_confirmed = TRUE,
				status = CASE WHEN tutor_confirmed THEN 'confirmed' ELSE status END,
				updated_at = NOW()
			WHERE id = $1 AND status = 'scheduled' AND student_confirmed = FALSE
			RETURNING ` + sessionColumns
	case models.PartyTutor:
		query = `
			UPDATE sessions
			SET tutor_confirmed = TRUE,
				status = CASE WHEN student_confirmed THEN 'confirmed' ELSE status END,
				updated_at = NOW()
			WHERE id = $1 AND status = 'scheduled' AND tutor_confirmed = FALSE
			RETURNING ` + sessionColumns
	default:
		return nil, fmt.Errorf("unknown session party %q", party)
	}
	return scanSession(r.db.QueryRow(ctx, query, sessionID))
}

func (r *SessionRepository) StartCall(ctx context.Context, sessionID int64) (*models.Session, error) {
	query := `
		UPDATE sessions
		SET call_status = 'active', updated_at = NOW()
		WHERE id = $1 AND status = 'confirmed'
		RETURNING ` + sessionColumns
	return scanSession(r.db.QueryRow(ctx, query, sessionID))
}

func (r *SessionRepository) Complete(ctx context.Context, sessionID int64) (*models.Session, error) {
	query := `
		UPDATE sessions
		SET status = 'completed', call_status = 'ended', updated_at = NOW()
		WHERE id = $1 AND status = 'confirmed'
		RETURNING ` + sessionColumns
	return scanSession(r.db.QueryRow(ctx, query, sessionID))
}

// Cancel closes a scheduled or confirmed session and ends a live call.
func (r *SessionRepository) Cancel(ctx context.Context, sessionID int64) (*models.Session, error) {
	query := `
		UPDATE sessions
		SET status = 'cancelled',
			call_status = CASE WHEN call_status = 'active' THEN 'ended' ELSE call_status END,
			updated_at = NOW()
		WHERE id = $1 AND status IN ('scheduled', 'confirmed')
		RETURNING ` + sessionColumns
	return scanSession(r.db.QueryRow(ctx, query, sessionID))
}

// SessionStore adds the transactional booking path on top of SessionRepository.
type SessionStore struct {
	*SessionRepository
	db TxDB
}

func NewSessionStore(db TxDB) *SessionStore {
	return &SessionStore{SessionRepository: NewSessionRepository(db), db: db}
}

// CreateIfFree serialises bookings per tutor with a transaction-scoped
// advisory lock, hands the tutor's nearby sessions to check, and inserts only
// when check returns nil.
func (s *SessionStore) CreateIfFree(
	ctx context.Context,
	input CreateSessionInput,
	check func(existing []models.Session) error,
) (*models.Session, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", input.TutorID); err != nil {
		return nil, err
	}

	txRepo := NewSessionRepository(tx)
	existing, err := txRepo.ListActiveByTutorBetween(
		ctx,
		input.TutorID,
		input.StartTime.Add(-conflictLookaround),
		input.EndTime.Add(conflictLookaround),
	)
	if err != nil {
		return nil, err
	}
	if err := check(existing); err != nil {
		return nil, err
	}

	session, err := txRepo.Create(ctx, input)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return session, nil
}
