package app

import (
	"fmt"
	"strings"

	"study-sync/internal/config"
	"study-sync/internal/delivery/http/handler"
	"study-sync/internal/delivery/http/middleware"
	"study-sync/internal/delivery/http/routes"
	"study-sync/internal/ws"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

type App struct {
	Fiber     *fiber.App
	Container *Container
}

// New builds the HTTP application on top of an already wired container.
func New(c *Container) *App {
	f := fiber.New(fiber.Config{
		AppName:         c.Config.App.AppName,
		StructValidator: middleware.NewStructValidator(),
	})

	registerGlobalMiddleware(f, c.Logger)
	registerRoutes(f, c)

	return &App{Fiber: f, Container: c}
}

func Bootstrap(cfg config.Config, logger *zap.Logger) (*App, func() error, error) {
	c, err := NewContainer(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return New(c), c.Close, nil
}

func registerGlobalMiddleware(app *fiber.App, logger *zap.Logger) {
	if app == nil {
		return
	}

	app.Use(middleware.NewAccessLogMiddleware(logger).Middleware())
	app.Use(middleware.NewErrorMiddleware(logger).Middleware())
}

func registerRoutes(app *fiber.App, c *Container) {
	if app == nil || c == nil {
		return
	}

	health := handler.NewHealthHandler(map[string]handler.Pinger{
		"database": c.DB,
		"redis":    c.Redis,
	})
	registry := routes.NewRegistry(health, ws.NewHandler(c.Hub, c.Tokens, c.Logger), routes.V1Handlers{
		Auth:   middleware.NewAuthMiddleware(c.Tokens),
		Match:  handler.NewMatchHandler(c.Matching, c.Requests),
		Rating: handler.NewRatingHandler(c.Ratings),
	})
	registry.Register(app)
}

func ListenAddr(port string) (string, error) {
	p := strings.TrimSpace(port)
	if p == "" {
		return "", fmt.Errorf("empty HTTP port")
	}
	if strings.HasPrefix(p, ":") {
		return p, nil
	}
	return ":" + p, nil
}
