package handlers

import (
	"context"
	"errors"

	"github.com/MickeyDagm/MDAFOnlineTutor/internal/models"
	"github.com/MickeyDagm/MDAFOnlineTutor/internal/services"
	"github.com/gofiber/fiber/v2"
)

type authApplicationService interface {
	Register(ctx context.Context, input services.RegisterInput) (*services.AuthResult, error)
	Login(ctx context.Context, email, password string) (*services.AuthResult, error)
	Me(ctx context.Context, userID int64) (*models.User, error)
}

type tutorProfileGetter interface {
	Get(ctx context.Context, tutorID int64) (*models.TutorProfile, error)
}

type AuthHandler struct {
	service authApplicationService
	tutors  tutorProfileGetter
}

func NewAuthHandler(service authApplicationService, tutors tutorProfileGetter) *AuthHandler {
	return &AuthHandler{service: service, tutors: tutors}
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"required,oneof=student tutor"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if ok, err := bindJSON(c, &req); !ok {
		return err
	}

	result, err := h.service.Register(c.Context(), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if ok, err := bindJSON(c, &req); !ok {
		return err
	}

	result, err := h.service.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrBadCredentials) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid email or password"})
		}
		return mapServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, role, ok := currentActor(c)
	if !ok {
		return invalidToken(c)
	}

	user, err := h.service.Me(c.Context(), userID)
	if err != nil {
		return mapServiceError(c, err)
	}
	if role != models.RoleTutor {
		return c.JSON(fiber.Map{"user": user})
	}

	profile, err := h.tutors.Get(c.Context(), userID)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"user":    user,
		"profile": profile,
	})
}
