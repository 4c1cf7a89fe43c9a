package routes

import (
	"study-sync/internal/delivery/http/handler"
	"study-sync/internal/delivery/http/middleware"
	v1 "study-sync/internal/delivery/http/routes/v1"

	"github.com/gofiber/fiber/v3"
)

type V1Handlers struct {
	Auth   *middleware.AuthMiddleware
	Match  *handler.MatchHandler
	Rating *handler.RatingHandler
}

func RegisterV1(r fiber.Router, h V1Handlers) {
	if r == nil {
		return
	}

	v1.Register(r, h.Auth, h.Match, h.Rating)
}
