package v1

import (
	"study-sync/internal/delivery/http/handler"

	"github.com/gofiber/fiber/v3"
)

func RegisterRatings(r fiber.Router, ratingHandler *handler.RatingHandler) {
	if r == nil {
		return
	}
	if ratingHandler == nil {
		return
	}

	ratingHandler.RegisterRoutes(r)
}
