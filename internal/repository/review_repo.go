package repository

import (
	"context"

	"github.com/MickeyDagm/MDAFOnlineTutor/internal/models"
	"github.com/MickeyDagm/MDAFOnlineTutor/internal/pricing"
)

type CreateReviewInput struct {
	SessionID int64
	StudentID int64
	TutorID   int64
	Rating    int
	Comment   string
}

type ReviewRepository struct {
	db DBTX
}

func NewReviewRepository(db DBTX) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) Create(ctx context.Context, input CreateReviewInput) (*models.Review, error) {
	query := `
		INSERT INTO reviews (session_id, student_id, tutor_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, session_id, student_id, tutor_id, rating, comment, created_at
	`
	var review models.Review
	err := r.db.QueryRow(ctx, query, input.SessionID, input.StudentID, input.TutorID, input.Rating, input.Comment).Scan(
		&review.ID,
		&review.SessionID,
		&review.StudentID,
		&review.TutorID,
		&review.Rating,
		&review.Comment,
		&review.CreatedAt,
	)
	if isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *ReviewRepository) ListByTutor(ctx context.Context, tutorID int64) ([]models.ReviewListItem, error) {
	return r.list(ctx, "rv.tutor_id = $1", tutorID)
}

func (r *ReviewRepository) ListByStudent(ctx context.Context, studentID int64) ([]models.ReviewListItem, error) {
	return r.list(ctx, "rv.student_id = $1", studentID)
}

func (r *ReviewRepository) list(ctx context.Context, where string, actorID int64) ([]models.ReviewListItem, error) {
	query := `
		SELECT rv.id, rv.session_id, rv.student_id, rv.tutor_id, rv.rating, rv.comment, rv.created_at,
			   s.subject, COALESCE(st.name, ''), COALESCE(tu.name, '')
		FROM reviews rv
		JOIN sessions s ON s.id = rv.session_id
		LEFT JOIN users st ON st.id = rv.student_id
		LEFT JOIN users tu ON tu.id = rv.tutor_id
		WHERE ` + where + `
		ORDER BY rv.created_at DESC, rv.id DESC
	`
	rows, err := r.db.Query(ctx, query, actorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]models.ReviewListItem, 0)
	for rows.Next() {
		var item models.ReviewListItem
		if err := rows.Scan(
			&item.ID,
			&item.SessionID,
			&item.StudentID,
			&item.TutorID,
			&item.Rating,
			&item.Comment,
			&item.CreatedAt,
			&item.Subject,
			&item.StudentName,
			&item.TutorName,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *ReviewRepository) ratingsForTutor(ctx context.Context, tutorID int64) ([]int, error) {
	rows, err := r.db.Query(ctx, `SELECT rating FROM reviews WHERE tutor_id = $1`, tutorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ratings := make([]int, 0)
	for rows.Next() {
		var rating int
		if err := rows.Scan(&rating); err != nil {
			return nil, err
		}
		ratings = append(ratings, rating)
	}
	return ratings, rows.Err()
}

// ReviewStore records a review and everything derived from it in one transaction.
type ReviewStore struct {
	*ReviewRepository
	db TxDB
}

func NewReviewStore(db TxDB) *ReviewStore {
	return &ReviewStore{ReviewRepository: NewReviewRepository(db), db: db}
}

// Submit inserts the review, copies it onto the session, and recomputes the
// tutor's average from every review they have. A second review for the same
// session and student returns ErrDuplicate.
func (s *ReviewStore) Submit(ctx context.Context, input CreateReviewInput) (*models.Review, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txRepo := NewReviewRepository(tx)
	review, err := txRepo.Create(ctx, input)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE sessions SET rating = $2, review = $3, updated_at = NOW() WHERE id = $1`,
		input.SessionID, input.Rating, input.Comment,
	); err != nil {
		return nil, err
	}

	ratings, err := txRepo.ratingsForTutor(ctx, input.TutorID)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE tutor_profiles SET rating = $2, total_reviews = $3, updated_at = NOW() WHERE user_id = $1`,
		input.TutorID, pricing.AverageRating(ratings), len(ratings),
	); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return review, nil
}
