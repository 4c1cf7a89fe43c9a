package handler

import (
	"errors"
	"strings"
	"time"

	"study-sync/internal/delivery/http/dto"
	"study-sync/internal/delivery/http/middleware"
	"study-sync/internal/domain/match"
	"study-sync/internal/pkg/response"
	"study-sync/internal/usecase"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type MatchHandler struct {
	matching usecase.MatchingUsecase
	requests usecase.MatchRequestUsecase
	now      func() time.Time
}

type suggestionsQuery struct {
	University string `query:"university" validate:"max=200"`
	Year       int    `query:"year" validate:"min=0"`
	Major      string `query:"major" validate:"max=200"`
	Courses    string `query:"courses"`
	Limit      int    `query:"limit" validate:"min=0"`
}

type listMatchesQuery struct {
	Status string `query:"status" validate:"omitempty,oneof=pending accepted rejected expired"`
	Page   int    `query:"page" validate:"min=0"`
	Limit  int    `query:"limit" validate:"min=0"`
}

type createMatchRequest struct {
	TargetID string `json:"target_id" validate:"required,uuid"`
}

type respondMatchRequest struct {
	Action string `json:"action" validate:"required,oneof=accept reject"`
}

func NewMatchHandler(matching usecase.MatchingUsecase, requests usecase.MatchRequestUsecase) *MatchHandler {
	return &MatchHandler{matching: matching, requests: requests, now: time.Now}
}

func (h *MatchHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	grp := r.Group("/matches")
	grp.Get("/suggestions", h.Suggestions)
	grp.Get("/stats", h.Stats)
	grp.Get("/compatibility/:partner_id", h.Compatibility)
	grp.Get("/", h.List)
	grp.Post("/", h.Create)
	grp.Post("/:match_id/respond", h.Respond)
}

func (h *MatchHandler) Suggestions(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	var q suggestionsQuery
	if err := c.Bind().Query(&q); err != nil {
		return middleware.BindError(err)
	}

	filter := usecase.SuggestionFilter{
		University: q.University,
		Year:       q.Year,
		Major:      q.Major,
		Courses:    splitList(q.Courses),
	}
	ranked, err := h.matching.FindMatches(c.Context(), userID, filter, q.Limit)
	if err != nil {
		return mapMatchUsecaseError(err)
	}

	out := make([]dto.SuggestionResponse, 0, len(ranked))
	for _, rc := range ranked {
		out = append(out, dto.NewSuggestionResponse(rc))
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, out)
}

func (h *MatchHandler) Compatibility(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	partnerID, err := uuid.Parse(c.Params("partner_id"))
	if err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Invalid partner id", nil, err)
	}

	res, err := h.matching.GetCompatibility(c.Context(), userID, partnerID)
	if err != nil {
		return mapMatchUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewCompatibilityResponse(partnerID, res))
}

func (h *MatchHandler) Create(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	var req createMatchRequest
	if err := c.Bind().Body(&req); err != nil {
		return middleware.BindError(err)
	}
	targetID, err := uuid.Parse(req.TargetID)
	if err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Invalid target id", nil, err)
	}

	m, err := h.requests.CreateMatchRequest(c.Context(), userID, targetID)
	if err != nil {
		return mapMatchUsecaseError(err)
	}
	return response.Created(c, dto.NewMatchResponse(m, userID, h.now()))
}

func (h *MatchHandler) Respond(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	matchID, err := uuid.Parse(c.Params("match_id"))
	if err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Invalid match id", nil, err)
	}

	var req respondMatchRequest
	if err := c.Bind().Body(&req); err != nil {
		return middleware.BindError(err)
	}

	m, err := h.requests.RespondToMatch(c.Context(), matchID, userID, match.Action(req.Action))
	if err != nil {
		return mapMatchUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewMatchResponse(m, userID, h.now()))
}

func (h *MatchHandler) List(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	var q listMatchesQuery
	if err := c.Bind().Query(&q); err != nil {
		return middleware.BindError(err)
	}

	var status *match.Status
	if q.Status != "" {
		st, err := match.ParseStatus(q.Status)
		if err != nil {
			return middleware.NewAppError(fiber.StatusBadRequest, "Invalid status", nil, err)
		}
		status = &st
	}

	paged, err := h.requests.ListMatches(c.Context(), userID, status, q.Page, q.Limit)
	if err != nil {
		return mapMatchUsecaseError(err)
	}

	now := h.now()
	items := make([]dto.MatchResponse, 0, len(paged.Items))
	for _, m := range paged.Items {
		items = append(items, dto.NewMatchResponse(m, userID, now))
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, response.Page{
		Items: items,
		Page:  paged.Page,
		Limit: paged.Limit,
		Total: paged.Total,
	})
}

func (h *MatchHandler) Stats(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	st, err := h.requests.GetMatchStats(c.Context(), userID)
	if err != nil {
		return mapMatchUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.NewMatchStatsResponse(st))
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func mapMatchUsecaseError(err error) error {
	if err == nil {
		return nil
	}

	var ve *usecase.ValidationError
	switch {
	case errors.As(err, &ve):
		return middleware.NewAppError(fiber.StatusBadRequest, "Validation failed", []middleware.FieldError{{Field: ve.Field, Rule: ve.Reason}}, err)
	case errors.Is(err, usecase.ErrUserNotFound):
		return middleware.NewAppError(fiber.StatusNotFound, "User not found", nil, err)
	case errors.Is(err, match.ErrNotFound):
		return middleware.NewAppError(fiber.StatusNotFound, "Match not found", nil, err)
	case errors.Is(err, match.ErrSelfMatch):
		return middleware.NewAppError(fiber.StatusBadRequest, "Cannot match with yourself", nil, err)
	case errors.Is(err, match.ErrInvalidAction):
		return middleware.NewAppError(fiber.StatusBadRequest, "Invalid action", nil, err)
	case errors.Is(err, usecase.ErrSelfRating):
		return middleware.NewAppError(fiber.StatusBadRequest, "Cannot rate yourself", nil, err)
	case errors.Is(err, usecase.ErrInvalidInput):
		return middleware.NewAppError(fiber.StatusBadRequest, "Bad request", nil, err)
	case errors.Is(err, match.ErrDuplicateMatch):
		return middleware.NewAppError(fiber.StatusConflict, "Match already exists", nil, err)
	case errors.Is(err, usecase.ErrBlocked):
		return middleware.NewAppError(fiber.StatusForbidden, "User is not available for matching", nil, err)
	case errors.Is(err, match.ErrUserNotInMatch):
		return middleware.NewAppError(fiber.StatusForbidden, "Not a participant of this match", nil, err)
	case errors.Is(err, match.ErrUnauthorizedTransition):
		return middleware.NewAppError(fiber.StatusForbidden, "Match can no longer be answered", nil, err)
	default:
		return middleware.NewAppError(fiber.StatusInternalServerError, response.MessageInternalServerError, nil, err)
	}
}
