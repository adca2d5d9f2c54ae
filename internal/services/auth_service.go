package services

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/MickeyDagm/MDAFOnlineTutor/internal/models"
	"github.com/MickeyDagm/MDAFOnlineTutor/internal/repository"
	"github.com/MickeyDagm/MDAFOnlineTutor/pkg/utils"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type accountStore interface {
	Register(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

type AuthService struct {
	store     accountStore
	jwtSecret string
	logger    *zap.Logger
}

func NewAuthService(store accountStore, jwtSecret string, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{store: store, jwtSecret: jwtSecret, logger: logger}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register creates the account and issues a token. Tutors also get an empty
// profile that they fill in before they can be booked.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	if input.Role != models.RoleStudent && input.Role != models.RoleTutor {
		return nil, ErrInvalidProfileData
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:         strings.TrimSpace(input.Name),
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash: hashed,
		Role:         input.Role,
	}
	if err := s.store.Register(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	s.logger.Info("account registered", zap.Int64("user_id", user.ID), zap.String("role", user.Role))
	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.store.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBadCredentials
		}
		return nil, err
	}
	if !utils.CheckPassword(password, user.PasswordHash) {
		return nil, ErrBadCredentials
	}
	return s.issue(user)
}

func (s *AuthService) Me(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.store.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, err := utils.GenerateToken(strconv.FormatInt(user.ID, 10), user.Role, s.jwtSecret)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}
