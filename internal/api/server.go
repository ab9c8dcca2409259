package api

import (
	"context"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/sparkmatch/messaging-service/internal/metrics"
	"github.com/sparkmatch/messaging-service/internal/service"
	wstransport "github.com/sparkmatch/messaging-service/internal/ws"
)

// ServerDeps collects everything the HTTP surface wires together.
type ServerDeps struct {
	Service           *service.ChatService
	WS                *wstransport.Server
	Verifier          TokenVerifier
	Limiter           RateLimiter
	MessagesPerMinute int
	HealthCheck       func(ctx context.Context) error
	Log               *zap.SugaredLogger
}

func NewServer(deps ServerDeps) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(recover.New())
	app.Use(fiberlogger.New())

	h := NewHandler(deps.Service, deps.Log)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		if deps.HealthCheck != nil {
			if err := deps.HealthCheck(c.UserContext()); err != nil {
				return respondError(c, fiber.StatusServiceUnavailable, "storage unreachable")
			}
		}
		return respond(c, fiber.StatusOK, fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", metrics.Handler())

	if deps.WS != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws", websocket.New(deps.WS.Handler()))
	}

	chats := app.Group("/chats", AuthMiddleware(deps.Verifier))
	chats.Get("/", h.List)
	chats.Post("/:profileId", h.CreateOrFind)
	chats.Get("/:chatId", h.Get)
	chats.Post("/:chatId/messages",
		RateLimitMiddleware(deps.Limiter, deps.MessagesPerMinute, deps.Log),
		h.AppendMessage)
	chats.Patch("/:chatId/read", h.UpdateReadReceipt)

	return app
}
