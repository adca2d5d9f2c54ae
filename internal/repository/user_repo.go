package repository

import (
	"context"
	"errors"

	"github.com/MickeyDagm/MDAFOnlineTutor/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrDuplicate is returned when an insert hits a unique constraint.
var ErrDuplicate = errors.New("duplicate record")

type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxDB is a DBTX that can open transactions, such as *pgxpool.Pool.
type TxDB interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (name, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, user.Name, user.Email, user.PasswordHash, user.Role).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, name, email, password_hash, role, created_at, updated_at
		FROM users
		WHERE email = $1
	`
	var user models.User
	err := r.db.QueryRow(ctx, query, email).
		Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `
		SELECT id, name, email, password_hash, role, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	var user models.User
	err := r.db.QueryRow(ctx, query, id).
		Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Register creates the user and, for tutors, an empty tutor profile in one transaction.
func Register(ctx context.Context, db TxDB, user *models.User, defaultTimezone string) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := NewUserRepository(tx).CreateUser(ctx, user); err != nil {
		return err
	}
	if user.Role == models.RoleTutor {
		if err := NewTutorProfileRepository(tx).CreateEmpty(ctx, user.ID, user.Name, defaultTimezone); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// AccountStore binds Register to a pool and the default tutor timezone.
type AccountStore struct {
	*UserRepository
	db              TxDB
	defaultTimezone string
}

func NewAccountStore(db TxDB, defaultTimezone string) *AccountStore {
	return &AccountStore{UserRepository: NewUserRepository(db), db: db, defaultTimezone: defaultTimezone}
}

func (s *AccountStore) Register(ctx context.Context, user *models.User) error {
	return Register(ctx, s.db, user, s.defaultTimezone)
}
