package handler

import (
	"study-sync/internal/delivery/http/dto"
	"study-sync/internal/delivery/http/middleware"
	"study-sync/internal/pkg/response"
	"study-sync/internal/usecase"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type RatingHandler struct {
	uc usecase.RatingUsecase
}

type ratePartnerRequest struct {
	RatedUserID string `json:"rated_user_id" validate:"required,uuid"`
	Rating      int    `json:"rating" validate:"required,min=1,max=5"`
}

func NewRatingHandler(uc usecase.RatingUsecase) *RatingHandler {
	return &RatingHandler{uc: uc}
}

func (h *RatingHandler) RegisterRoutes(r fiber.Router) {
	if r == nil {
		return
	}
	r.Post("/ratings", h.Rate)
}

func (h *RatingHandler) Rate(c fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	var req ratePartnerRequest
	if err := c.Bind().Body(&req); err != nil {
		return middleware.BindError(err)
	}
	ratedID, err := uuid.Parse(req.RatedUserID)
	if err != nil {
		return middleware.NewAppError(fiber.StatusBadRequest, "Invalid user id", nil, err)
	}

	p, err := h.uc.RatePartner(c.Context(), userID, ratedID, req.Rating)
	if err != nil {
		return mapMatchUsecaseError(err)
	}
	return response.Success(c, fiber.StatusOK, response.MessageOK, dto.RatingResponse{
		UserID:       p.ID,
		Reputation:   p.Reputation,
		RatingsCount: p.RatingsCount,
	})
}
