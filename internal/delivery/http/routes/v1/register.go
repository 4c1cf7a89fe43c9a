package v1

import (
	"study-sync/internal/delivery/http/handler"
	"study-sync/internal/delivery/http/middleware"

	"github.com/gofiber/fiber/v3"
)

// Register mounts the authenticated study-partner API under r.
func Register(r fiber.Router, authMw *middleware.AuthMiddleware, matchHandler *handler.MatchHandler, ratingHandler *handler.RatingHandler) {
	if r == nil || authMw == nil {
		return
	}

	protected := r.Group("", authMw.Middleware())
	RegisterMatches(protected, matchHandler)
	RegisterRatings(protected, ratingHandler)
}
