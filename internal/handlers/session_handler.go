package handlers

import (
	"context"
	"strings"

	"github.com/MickeyDagm/MDAFOnlineTutor/internal/models"
	"github.com/MickeyDagm/MDAFOnlineTutor/internal/services"
	"github.com/gofiber/fiber/v2"
)

type SessionHandler struct {
	service  sessionApplicationService
	payments paymentApplicationService
}

type sessionApplicationService interface {
	CreateSession(ctx context.Context, actorID int64, role string, input services.CreateSessionInput) (*models.SessionDetail, error)
	ListSessions(ctx context.Context, actorID int64, role string, status string) ([]models.SessionDetail, error)
	GetSession(ctx context.Context, actorID int64, sessionID int64) (*models.SessionDetail, error)
	Confirm(ctx context.Context, actorID int64, sessionID int64) (*models.SessionDetail, error)
	StartCall(ctx context.Context, actorID int64, sessionID int64) (*models.SessionDetail, error)
	Complete(ctx context.Context, actorID int64, sessionID int64) (*models.SessionDetail, error)
	Cancel(ctx context.Context, actorID int64, sessionID int64) (*models.SessionDetail, error)
}

type paymentApplicationService interface {
	PayForSession(ctx context.Context, actorID int64, sessionID int64, paymentMethod string) (*models.SessionDetail, error)
	Earnings(ctx context.Context, actorID int64, role string) (*models.EarningsSummary, error)
}

func NewSessionHandler(service sessionApplicationService, payments paymentApplicationService) *SessionHandler {
	return &SessionHandler{service: service, payments: payments}
}

type createSessionRequest struct {
	TutorID       int64   `json:"tutor_id"`
	Subject       string  `json:"subject"`
	Date          string  `json:"date"`
	Time          string  `json:"time"`
	DurationHours float64 `json:"duration_hours"`
}

type listSessionsQuery struct {
	Status string `json:"status" validate:"omitempty,oneof=scheduled confirmed completed cancelled"`
}

type payForSessionRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required,max=50"`
}

// CreateSession leaves field checks to the service so the booking errors keep
// their documented precedence.
func (h *SessionHandler) CreateSession(c *fiber.Ctx) error {
	userID, role, ok := currentActor(c)
	if !ok {
		return invalidToken(c)
	}

	var req createSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	detail, err := h.service.CreateSession(c.Context(), userID, role, services.CreateSessionInput{
		TutorID:       req.TutorID,
		Subject:       req.Subject,
		Date:          strings.TrimSpace(req.Date),
		Time:          strings.TrimSpace(req.Time),
		DurationHours: req.DurationHours,
	})
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"session": detail})
}

func (h *SessionHandler) ListSessions(c *fiber.Ctx) error {
	userID, role, ok := currentActor(c)
	if !ok {
		return invalidToken(c)
	}

	query := listSessionsQuery{Status: strings.TrimSpace(c.Query("status"))}
	if err := validate.Struct(query); err != nil {
		return validationError(c, err)
	}

	sessions, err := h.service.ListSessions(c.Context(), userID, role, query.Status)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"sessions": sessions})
}

func (h *SessionHandler) GetSession(c *fiber.Ctx) error {
	return h.sessionAction(c, h.service.GetSession)
}

func (h *SessionHandler) Confirm(c *fiber.Ctx) error {
	return h.sessionAction(c, h.service.Confirm)
}

func (h *SessionHandler) StartCall(c *fiber.Ctx) error {
	return h.sessionAction(c, h.service.StartCall)
}

func (h *SessionHandler) Complete(c *fiber.Ctx) error {
	return h.sessionAction(c, h.service.Complete)
}

func (h *SessionHandler) Cancel(c *fiber.Ctx) error {
	return h.sessionAction(c, h.service.Cancel)
}

func (h *SessionHandler) PayForSession(c *fiber.Ctx) error {
	userID, _, ok := currentActor(c)
	if !ok {
		return invalidToken(c)
	}

	sessionID, ok := parseIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	var req payForSessionRequest
	if ok, err := bindJSON(c, &req); !ok {
		return err
	}

	detail, err := h.payments.PayForSession(c.Context(), userID, sessionID, req.PaymentMethod)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"session": detail})
}

func (h *SessionHandler) Earnings(c *fiber.Ctx) error {
	userID, role, ok := currentActor(c)
	if !ok {
		return invalidToken(c)
	}

	summary, err := h.payments.Earnings(c.Context(), userID, role)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"earnings": summary})
}

func (h *SessionHandler) sessionAction(
	c *fiber.Ctx,
	action func(ctx context.Context, actorID int64, sessionID int64) (*models.SessionDetail, error),
) error {
	userID, _, ok := currentActor(c)
	if !ok {
		return invalidToken(c)
	}

	sessionID, ok := parseIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session id"})
	}

	detail, err := action(c.Context(), userID, sessionID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"session": detail})
}
