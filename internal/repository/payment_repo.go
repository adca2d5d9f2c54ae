package repository

import (
	"context"
	"errors"

	"github.com/MickeyDagm/MDAFOnlineTutor/internal/models"
	"github.com/jackc/pgx/v5"
)

const paymentColumns = `
	id, session_id, tutor_id, student_id, amount_cents, platform_fee_cents,
	tutor_earnings_cents, status, payment_method, reference, created_at
`

type CreatePaymentInput struct {
	SessionID          int64
	TutorID            int64
	StudentID          int64
	AmountCents        int64
	PlatformFeeCents   int64
	TutorEarningsCents int64
	Status             string
	PaymentMethod      string
	Reference          string
}

type PaymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func scanPayment(row rowScanner) (*models.Payment, error) {
	var payment models.Payment
	err := row.Scan(
		&payment.ID,
		&payment.SessionID,
		&payment.TutorID,
		&payment.StudentID,
		&payment.AmountCents,
		&payment.PlatformFeeCents,
		&payment.TutorEarningsCents,
		&payment.Status,
		&payment.PaymentMethod,
		&payment.Reference,
		&payment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *PaymentRepository) Create(ctx context.Context, input CreatePaymentInput) (*models.Payment, error) {
	query := `
		INSERT INTO payments (
			session_id, tutor_id, student_id, amount_cents, platform_fee_cents,
			tutor_earnings_cents, status, payment_method, reference
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + paymentColumns

	return scanPayment(r.db.QueryRow(
		ctx,
		query,
		input.SessionID,
		input.TutorID,
		input.StudentID,
		input.AmountCents,
		input.PlatformFeeCents,
		input.TutorEarningsCents,
		input.Status,
		input.PaymentMethod,
		input.Reference,
	))
}

// GetLatestBySessionID returns the most recent payment for the session. The
// session's payment status is always derived from this row.
func (r *PaymentRepository) GetLatestBySessionID(ctx context.Context, sessionID int64) (*models.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE session_id = $1
		ORDER BY id DESC
		LIMIT 1
	`
	return scanPayment(r.db.QueryRow(ctx, query, sessionID))
}

func (r *PaymentRepository) ListLatestBySessionIDs(ctx context.Context, sessionIDs []int64) (map[int64]models.Payment, error) {
	payments := make(map[int64]models.Payment, len(sessionIDs))
	if len(sessionIDs) == 0 {
		return payments, nil
	}

	query := `
		SELECT DISTINCT ON (session_id) ` + paymentColumns + `
		FROM payments
		WHERE session_id = ANY($1)
		ORDER BY session_id, id DESC
	`

	rows, err := r.db.Query(ctx, query, sessionIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments[payment.SessionID] = *payment
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return payments, nil
}

// ListEarnings returns the tutor's completed payments, newest first.
func (r *PaymentRepository) ListEarnings(ctx context.Context, tutorID int64) ([]models.EarningsEntry, error) {
	query := `
		SELECT p.id, p.session_id, p.student_id, COALESCE(u.name, ''), s.subject,
			   p.amount_cents, p.platform_fee_cents, p.tutor_earnings_cents, p.created_at
		FROM payments p
		JOIN sessions s ON s.id = p.session_id
		LEFT JOIN users u ON u.id = p.student_id
		WHERE p.tutor_id = $1 AND p.status = 'completed'
		ORDER BY p.created_at DESC, p.id DESC
	`
	rows, err := r.db.Query(ctx, query, tutorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]models.EarningsEntry, 0)
	for rows.Next() {
		var entry models.EarningsEntry
		if err := rows.Scan(
			&entry.PaymentID,
			&entry.SessionID,
			&entry.StudentID,
			&entry.StudentName,
			&entry.Subject,
			&entry.AmountCents,
			&entry.PlatformFeeCents,
			&entry.TutorEarningsCents,
			&entry.PaidAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// SettleFunc decides what to record for a locked session given its latest
// payment (nil when none). Returning a nil input records nothing.
type SettleFunc func(session *models.Session, latest *models.Payment) (*CreatePaymentInput, error)

// PaymentStore runs the pay-for-session path in one transaction.
type PaymentStore struct {
	*PaymentRepository
	db TxDB
}

func NewPaymentStore(db TxDB) *PaymentStore {
	return &PaymentStore{PaymentRepository: NewPaymentRepository(db), db: db}
}

// Settle locks the session row, lets settle inspect it, and records the
// payment settle returns. When settle returns nil the latest payment is
// returned unchanged.
func (s *PaymentStore) Settle(ctx context.Context, sessionID int64, settle SettleFunc) (*models.Payment, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	session, err := NewSessionRepository(tx).GetByIDForUpdate(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	txPaymentRepo := NewPaymentRepository(tx)
	latest, err := txPaymentRepo.GetLatestBySessionID(ctx, sessionID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		latest = nil
	}

	input, err := settle(session, latest)
	if err != nil {
		return nil, err
	}
	if input == nil {
		return latest, nil
	}

	payment, err := txPaymentRepo.Create(ctx, *input)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return payment, nil
}
