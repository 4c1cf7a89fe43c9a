package routes

import (
	"study-sync/internal/delivery/http/handler"
	"study-sync/internal/ws"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	health *handler.HealthHandler
	ws     *ws.Handler
	v1     V1Handlers
}

func NewRegistry(health *handler.HealthHandler, wsHandler *ws.Handler, v1 V1Handlers) *Registry {
	return &Registry{health: health, ws: wsHandler, v1: v1}
}

func (r *Registry) Register(app *fiber.App) {
	if app == nil {
		return
	}

	r.registerHealth(app)
	r.registerMetrics(app)
	r.registerAPI(app)
}

func (r *Registry) registerHealth(app *fiber.App) {
	if r.health != nil {
		r.health.RegisterRoutes(app)
	}
}

func (r *Registry) registerMetrics(app *fiber.App) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}

func (r *Registry) registerAPI(app *fiber.App) {
	api := app.Group("/api")
	v1 := api.Group("/v1")
	if r.ws != nil {
		v1.Get("/ws", r.ws.HandleMatchEvents)
	}
	RegisterV1(v1, r.v1)
}
