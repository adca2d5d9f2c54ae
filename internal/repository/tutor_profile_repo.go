package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/MickeyDagm/MDAFOnlineTutor/internal/models"
)

const tutorProfileColumns = `
	tp.id, tp.user_id, tp.full_name, tp.bio, tp.subjects, tp.price_per_hour, tp.timezone,
	tp.rating, tp.total_reviews, tp.is_verified, tp.created_at, tp.updated_at,
	(SELECT COUNT(*) FROM sessions s WHERE s.tutor_id = tp.user_id AND s.status = 'completed') AS total_sessions
`

type TutorListFilter struct {
	Search    string
	Subject   string
	MinRating float64
	MinPrice  float64
	MaxPrice  float64
	Day       string
	Sort      string
	Offset    int
	Limit     int
}

type UpdateTutorProfileInput struct {
	FullName     *string
	Bio          *string
	Subjects     *[]string
	PricePerHour *float64
	Timezone     *string
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type TutorProfileRepository struct {
	db DBTX
}

func NewTutorProfileRepository(db DBTX) *TutorProfileRepository {
	return &TutorProfileRepository{db: db}
}

func scanTutorProfile(row rowScanner) (*models.TutorProfile, error) {
	var profile models.TutorProfile
	err := row.Scan(
		&profile.ID,
		&profile.UserID,
		&profile.FullName,
		&profile.Bio,
		&profile.Subjects,
		&profile.PricePerHour,
		&profile.Timezone,
		&profile.Rating,
		&profile.TotalReviews,
		&profile.IsVerified,
		&profile.CreatedAt,
		&profile.UpdatedAt,
		&profile.TotalSessions,
	)
	if err != nil {
		return nil, err
	}
	if profile.Subjects == nil {
		profile.Subjects = []string{}
	}
	return &profile, nil
}

func (r *TutorProfileRepository) CreateEmpty(ctx context.Context, userID int64, fullName string, timezone string) error {
	query := `INSERT INTO tutor_profiles (user_id, full_name, timezone) VALUES ($1, NULLIF($2, ''), $3)`
	_, err := r.db.Exec(ctx, query, userID, fullName, timezone)
	return err
}

// GetByUserID loads the profile with its availability rules.
func (r *TutorProfileRepository) GetByUserID(ctx context.Context, userID int64) (*models.TutorProfile, error) {
	query := `SELECT ` + tutorProfileColumns + ` FROM tutor_profiles tp WHERE tp.user_id = $1`
	profile, err := scanTutorProfile(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, err
	}

	rules, err := r.ListAvailability(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile.Availability = rules
	return profile, nil
}

func (r *TutorProfileRepository) List(ctx context.Context, filter TutorListFilter) ([]models.TutorProfile, int, error) {
	args := make([]any, 0, 6)
	whereParts := []string{"u.role = 'tutor'"}

	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+likeEscaper.Replace(search)+"%")
		whereParts = append(whereParts, fmt.Sprintf(`(
			u.name ILIKE $%[1]d OR tp.full_name ILIKE $%[1]d OR tp.bio ILIKE $%[1]d
			OR EXISTS (SELECT 1 FROM unnest(tp.subjects) s WHERE s ILIKE $%[1]d)
		)`, len(args)))
	}
	if subject := strings.TrimSpace(filter.Subject); subject != "" {
		args = append(args, subject)
		whereParts = append(whereParts, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM unnest(tp.subjects) s WHERE lower(s) = lower($%d))", len(args)))
	}
	if filter.MinRating > 0 {
		args = append(args, filter.MinRating)
		whereParts = append(whereParts, fmt.Sprintf("tp.rating >= $%d", len(args)))
	}
	if filter.MinPrice > 0 {
		args = append(args, filter.MinPrice)
		whereParts = append(whereParts, fmt.Sprintf("tp.price_per_hour >= $%d", len(args)))
	}
	if filter.MaxPrice > 0 {
		args = append(args, filter.MaxPrice)
		whereParts = append(whereParts, fmt.Sprintf("tp.price_per_hour <= $%d", len(args)))
	}
	if day := strings.TrimSpace(filter.Day); day != "" {
		args = append(args, day)
		whereParts = append(whereParts, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM availability_rules ar WHERE ar.tutor_id = tp.user_id AND lower(ar.day) = lower($%d))", len(args)))
	}

	where := strings.Join(whereParts, " AND ")

	var total int
	countQuery := `SELECT COUNT(*) FROM tutor_profiles tp JOIN users u ON u.id = tp.user_id WHERE ` + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	orderBy := "tp.rating DESC, tp.total_reviews DESC, tp.user_id ASC"
	switch filter.Sort {
	case "price_asc":
		orderBy = "tp.price_per_hour ASC NULLS LAST, tp.user_id ASC"
	case "price_desc":
		orderBy = "tp.price_per_hour DESC NULLS LAST, tp.user_id ASC"
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM tutor_profiles tp
		JOIN users u ON u.id = tp.user_id
		WHERE %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d
	`, tutorProfileColumns, where, orderBy, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	profiles := make([]models.TutorProfile, 0)
	for rows.Next() {
		profile, err := scanTutorProfile(rows)
		if err != nil {
			return nil, 0, err
		}
		profiles = append(profiles, *profile)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return profiles, total, nil
}

func (r *TutorProfileRepository) FilterOptions(ctx context.Context) (*models.FilterOptions, error) {
	options := &models.FilterOptions{Subjects: []string{}, Days: []string{}}

	subjectRows, err := r.db.Query(ctx, `
		SELECT DISTINCT s
		FROM tutor_profiles tp, unnest(tp.subjects) s
		ORDER BY s
	`)
	if err != nil {
		return nil, err
	}
	for subjectRows.Next() {
		var subject string
		if err := subjectRows.Scan(&subject); err != nil {
			subjectRows.Close()
			return nil, err
		}
		options.Subjects = append(options.Subjects, subject)
	}
	subjectRows.Close()
	if err := subjectRows.Err(); err != nil {
		return nil, err
	}

	dayRows, err := r.db.Query(ctx, `SELECT DISTINCT day FROM availability_rules ORDER BY day`)
	if err != nil {
		return nil, err
	}
	defer dayRows.Close()
	for dayRows.Next() {
		var day string
		if err := dayRows.Scan(&day); err != nil {
			return nil, err
		}
		options.Days = append(options.Days, day)
	}
	if err := dayRows.Err(); err != nil {
		return nil, err
	}
	return options, nil
}

func (r *TutorProfileRepository) UpdatePartial(ctx context.Context, userID int64, req UpdateTutorProfileInput) (*models.TutorProfile, error) {
	query := `
		UPDATE tutor_profiles tp
		SET full_name = COALESCE($1, full_name),
			bio = COALESCE($2, bio),
			subjects = COALESCE($3, subjects),
			price_per_hour = COALESCE($4, price_per_hour),
			timezone = COALESCE($5, timezone),
			updated_at = NOW()
		WHERE user_id = $6
		RETURNING ` + tutorProfileColumns
	profile, err := scanTutorProfile(r.db.QueryRow(ctx, query,
		req.FullName,
		req.Bio,
		req.Subjects,
		req.PricePerHour,
		req.Timezone,
		userID,
	))
	if err != nil {
		return nil, err
	}

	rules, err := r.ListAvailability(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile.Availability = rules
	return profile, nil
}

// MarkVerified sets is_verified on a tutor profile that has a name, subjects
// and a price. ErrNoRows means no such profile or the profile is incomplete.
func (r *TutorProfileRepository) MarkVerified(ctx context.Context, userID int64) (*models.TutorProfile, error) {
	query := `
		UPDATE tutor_profiles tp
		SET is_verified = TRUE,
			updated_at = NOW()
		WHERE user_id = $1
			AND COALESCE(full_name, '') <> ''
			AND cardinality(subjects) > 0
			AND price_per_hour > 0
		RETURNING ` + tutorProfileColumns
	return scanTutorProfile(r.db.QueryRow(ctx, query, userID))
}

func (r *TutorProfileRepository) ListAvailability(ctx context.Context, tutorID int64) ([]models.AvailabilityRule, error) {
	query := `
		SELECT id, tutor_id, day, start_time, end_time
		FROM availability_rules
		WHERE tutor_id = $1
		ORDER BY position ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, tutorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules := make([]models.AvailabilityRule, 0)
	for rows.Next() {
		var rule models.AvailabilityRule
		if err := rows.Scan(&rule.ID, &rule.TutorID, &rule.Day, &rule.StartTime, &rule.EndTime); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rules, nil
}

// AvailabilityStore replaces a tutor's rule set atomically.
type AvailabilityStore struct {
	*TutorProfileRepository
	db TxDB
}

func NewAvailabilityStore(db TxDB) *AvailabilityStore {
	return &AvailabilityStore{TutorProfileRepository: NewTutorProfileRepository(db), db: db}
}

func (s *AvailabilityStore) ReplaceAvailability(
	ctx context.Context,
	tutorID int64,
	rules []models.AvailabilityRule,
) ([]models.AvailabilityRule, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `DELETE FROM availability_rules WHERE tutor_id = $1`, tutorID); err != nil {
		return nil, err
	}

	saved := make([]models.AvailabilityRule, 0, len(rules))
	for i, rule := range rules {
		query := `
			INSERT INTO availability_rules (tutor_id, day, start_time, end_time, position)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`
		if err := tx.QueryRow(ctx, query, tutorID, rule.Day, rule.StartTime, rule.EndTime, i).Scan(&rule.ID); err != nil {
			return nil, err
		}
		rule.TutorID = tutorID
		saved = append(saved, rule)
	}

	if _, err := tx.Exec(ctx, `UPDATE tutor_profiles SET updated_at = NOW() WHERE user_id = $1`, tutorID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return saved, nil
}
