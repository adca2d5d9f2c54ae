package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/MickeyDagm/MDAFOnlineTutor/internal/models"
	"github.com/MickeyDagm/MDAFOnlineTutor/internal/repository"
	"github.com/MickeyDagm/MDAFOnlineTutor/internal/services"
	"github.com/gofiber/fiber/v2"
)

type tutorDirectoryService interface {
	List(ctx context.Context, filter repository.TutorListFilter) ([]models.TutorProfile, int, error)
	Get(ctx context.Context, tutorID int64) (*models.TutorProfile, error)
	FilterOptions(ctx context.Context) (*models.FilterOptions, error)
	UpdateProfile(ctx context.Context, actorID int64, role string, input repository.UpdateTutorProfileInput) (*models.TutorProfile, error)
	Verify(ctx context.Context, actorID int64, role string) (*models.TutorProfile, error)
}

type availabilityApplicationService interface {
	ReplaceAvailability(ctx context.Context, actorID int64, role string, rules []models.AvailabilityRule) ([]models.AvailabilityRule, error)
	AvailableSlots(ctx context.Context, tutorID int64, viewerZone string) (*services.SlotsResult, error)
}

type reviewApplicationService interface {
	SubmitReview(ctx context.Context, actorID int64, input services.SubmitReviewInput) (*models.Review, error)
	ListForTutor(ctx context.Context, tutorID int64) ([]models.ReviewListItem, error)
	ListForStudent(ctx context.Context, studentID int64) ([]models.ReviewListItem, error)
}

type TutorHandler struct {
	tutors       tutorDirectoryService
	availability availabilityApplicationService
	reviews      reviewApplicationService
}

func NewTutorHandler(
	tutors tutorDirectoryService,
	availability availabilityApplicationService,
	reviews reviewApplicationService,
) *TutorHandler {
	return &TutorHandler{
		tutors:       tutors,
		availability: availability,
		reviews:      reviews,
	}
}

type listTutorsQuery struct {
	Search string `json:"search" validate:"max=100"`
	Sort   string `json:"sort" validate:"omitempty,oneof=rating price_asc price_desc"`
}

type updateTutorProfileRequest struct {
	FullName     *string   `json:"full_name" validate:"omitempty,min=1,max=120"`
	Bio          *string   `json:"bio" validate:"omitempty,max=2000"`
	Subjects     *[]string `json:"subjects" validate:"omitempty,max=20,dive,max=60"`
	PricePerHour *float64  `json:"price_per_hour" validate:"omitempty,gte=0,lte=100000"`
	Timezone     *string   `json:"timezone"`
}

type availabilityRuleRequest struct {
	Day       string `json:"day" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

type replaceAvailabilityRequest struct {
	Rules []availabilityRuleRequest `json:"rules" validate:"max=50,dive"`
}

type submitReviewRequest struct {
	SessionID int64  `json:"session_id" validate:"required,gt=0"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment" validate:"max=2000"`
}

func (h *TutorHandler) ListTutors(c *fiber.Ctx) error {
	page := parsePositiveInt(c.Query("page"), 1)
	limit := parsePositiveInt(c.Query("limit"), defaultPageLimit)
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	minRating, err := parseNonNegativeFloat(c.Query("min_rating"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "min_rating must be a valid non-negative number"})
	}
	minPrice, err := parseNonNegativeFloat(c.Query("min_price"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "min_price must be a valid non-negative number"})
	}
	maxPrice, err := parseNonNegativeFloat(c.Query("max_price"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "max_price must be a valid non-negative number"})
	}
	query := listTutorsQuery{
		Search: strings.TrimSpace(c.Query("search")),
		Sort:   strings.TrimSpace(c.Query("sort")),
	}
	if err := validate.Struct(query); err != nil {
		return validationError(c, err)
	}

	tutors, total, err := h.tutors.List(c.Context(), repository.TutorListFilter{
		Search:    query.Search,
		Subject:   strings.TrimSpace(c.Query("subject")),
		MinRating: minRating,
		MinPrice:  minPrice,
		MaxPrice:  maxPrice,
		Day:       strings.TrimSpace(c.Query("day")),
		Sort:      query.Sort,
		Offset:    (page - 1) * limit,
		Limit:     limit,
	})
	if err != nil {
		return mapServiceError(c, err)
	}

	response := make([]models.TutorListResponse, 0, len(tutors))
	for _, tutor := range tutors {
		response = append(response, buildTutorListResponse(tutor))
	}

	return c.JSON(fiber.Map{
		"tutors":     response,
		"pagination": buildPaginationMeta(page, limit, total),
	})
}

func (h *TutorHandler) GetTutor(c *fiber.Ctx) error {
	tutorID, ok := parseIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid tutor id"})
	}

	tutor, err := h.tutors.Get(c.Context(), tutorID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"tutor": buildTutorDetailResponse(*tutor)})
}

func (h *TutorHandler) FilterOptions(c *fiber.Ctx) error {
	options, err := h.tutors.FilterOptions(c.Context())
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(options)
}

func (h *TutorHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, role, ok := currentActor(c)
	if !ok {
		return invalidToken(c)
	}

	var req updateTutorProfileRequest
	if ok, err := bindJSON(c, &req); !ok {
		return err
	}

	profile, err := h.tutors.UpdateProfile(c.Context(), userID, role, repository.UpdateTutorProfileInput{
		FullName:     req.FullName,
		Bio:          req.Bio,
		Subjects:     req.Subjects,
		PricePerHour: req.PricePerHour,
		Timezone:     req.Timezone,
	})
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"profile": profile})
}

func (h *TutorHandler) ReplaceAvailability(c *fiber.Ctx) error {
	userID, role, ok := currentActor(c)
	if !ok {
		return invalidToken(c)
	}

	var req replaceAvailabilityRequest
	if ok, err := bindJSON(c, &req); !ok {
		return err
	}

	rules := make([]models.AvailabilityRule, 0, len(req.Rules))
	for _, rule := range req.Rules {
		rules = append(rules, models.AvailabilityRule{
			Day:       rule.Day,
			StartTime: rule.StartTime,
			EndTime:   rule.EndTime,
		})
	}

	saved, err := h.availability.ReplaceAvailability(c.Context(), userID, role, rules)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"availability": saved})
}

// AvailableSlots lists bookable start times. The viewer's zone comes from the
// tz query parameter and defaults to UTC.
func (h *TutorHandler) AvailableSlots(c *fiber.Ctx) error {
	tutorID, ok := parseIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid tutor id"})
	}

	result, err := h.availability.AvailableSlots(c.Context(), tutorID, c.Query("tz"))
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *TutorHandler) TutorReviews(c *fiber.Ctx) error {
	tutorID, ok := parseIDParam(c, "id")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid tutor id"})
	}

	reviews, err := h.reviews.ListForTutor(c.Context(), tutorID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"reviews": reviews})
}

func (h *TutorHandler) MyReviews(c *fiber.Ctx) error {
	userID, _, ok := currentActor(c)
	if !ok {
		return invalidToken(c)
	}

	reviews, err := h.reviews.ListForStudent(c.Context(), userID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(fiber.Map{"reviews": reviews})
}

// SubmitReview leaves the rating range to the service so an out-of-range
// rating and a closed session report the same way over every transport.
func (h *TutorHandler) SubmitReview(c *fiber.Ctx) error {
	userID, _, ok := currentActor(c)
	if !ok {
		return invalidToken(c)
	}

	var req submitReviewRequest
	if ok, err := bindJSON(c, &req); !ok {
		return err
	}

	review, err := h.reviews.SubmitReview(c.Context(), userID, services.SubmitReviewInput{
		SessionID: req.SessionID,
		Rating:    req.Rating,
		Comment:   strings.TrimSpace(req.Comment),
	})
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"review": review})
}

func (h *TutorHandler) VerifyProfile(c *fiber.Ctx) error {
	userID, role, ok := currentActor(c)
	if !ok {
		return invalidToken(c)
	}

	profile, err := h.tutors.Verify(c.Context(), userID, role)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(fiber.Map{"tutor": buildTutorDetailResponse(*profile)})
}

func buildTutorListResponse(tutor models.TutorProfile) models.TutorListResponse {
	subjects := tutor.Subjects
	if subjects == nil {
		subjects = []string{}
	}
	return models.TutorListResponse{
		ID:            strconv.FormatInt(tutor.UserID, 10),
		FullName:      stringValue(tutor.FullName),
		Subjects:      subjects,
		PricePerHour:  floatValueResponse(tutor.PricePerHour),
		Rating:        tutor.Rating,
		TotalReviews:  tutor.TotalReviews,
		TotalSessions: tutor.TotalSessions,
		IsVerified:    tutor.IsVerified,
	}
}

func buildTutorDetailResponse(tutor models.TutorProfile) models.TutorDetailResponse {
	availability := tutor.Availability
	if availability == nil {
		availability = []models.AvailabilityRule{}
	}
	return models.TutorDetailResponse{
		TutorListResponse: buildTutorListResponse(tutor),
		Bio:               stringValue(tutor.Bio),
		Timezone:          tutor.Timezone,
		Availability:      availability,
	}
}

func stringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func floatValueResponse(value *float64) float64 {
	if value == nil {
		return 0
	}
	return *value
}
