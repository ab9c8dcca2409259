package api

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/sparkmatch/messaging-service/internal/repository"
	"github.com/sparkmatch/messaging-service/internal/service"
)

type Handler struct {
	svc      *service.ChatService
	validate *validator.Validate
	log      *zap.SugaredLogger
}

func NewHandler(svc *service.ChatService, log *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, validate: validator.New(), log: log}
}

type appendMessageRequest struct {
	Text string `json:"text" validate:"required"`
}

type readReceiptRequest struct {
	Timestamp string `json:"timestamp" validate:"required"`
}

// POST /chats/:profileId
func (h *Handler) CreateOrFind(c *fiber.Ctx) error {
	result, err := h.svc.CreateOrFind(c.UserContext(), callerID(c), c.Params("profileId"))
	if err != nil {
		return h.fail(c, err)
	}
	return respond(c, fiber.StatusOK, result)
}

// GET /chats
func (h *Handler) List(c *fiber.Ctx) error {
	chats, err := h.svc.ListForCaller(c.UserContext(), callerID(c))
	if err != nil {
		return h.fail(c, err)
	}
	return respond(c, fiber.StatusOK, fiber.Map{"chats": chats})
}

// GET /chats/:chatId?limit&cursor
func (h *Handler) Get(c *fiber.Ctx) error {
	opts := repository.PageOpts{Cursor: c.Query("cursor")}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return respondError(c, fiber.StatusBadRequest, "limit must be an integer")
		}
		opts.Limit = limit
	}

	detail, err := h.svc.GetByID(c.UserContext(), c.Params("chatId"), callerID(c), opts)
	if err != nil {
		return h.fail(c, err)
	}
	return respond(c, fiber.StatusOK, fiber.Map{
		"chat":       detail.Conversation,
		"pagination": detail.Page,
	})
}

// POST /chats/:chatId/messages
func (h *Handler) AppendMessage(c *fiber.Ctx) error {
	var req appendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, "malformed body")
	}
	if err := h.validate.Struct(req); err != nil {
		return respondError(c, fiber.StatusBadRequest, "text is required")
	}

	msg, err := h.svc.AppendMessage(c.UserContext(), c.Params("chatId"), callerID(c), req.Text)
	if err != nil {
		return h.fail(c, err)
	}
	return respond(c, fiber.StatusCreated, fiber.Map{"message": msg})
}

// PATCH /chats/:chatId/read
func (h *Handler) UpdateReadReceipt(c *fiber.Ctx) error {
	var req readReceiptRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, "malformed body")
	}
	if err := h.validate.Struct(req); err != nil {
		return respondError(c, fiber.StatusBadRequest, "timestamp is required")
	}
	ts, err := time.Parse(time.RFC3339, req.Timestamp)
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, "timestamp must be RFC 3339")
	}

	conv, err := h.svc.UpdateReadReceipt(c.UserContext(), c.Params("chatId"), callerID(c), ts)
	if err != nil {
		return h.fail(c, err)
	}
	return respond(c, fiber.StatusOK, fiber.Map{"chat": conv})
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		return respondError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		return respondError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrNotFound):
		return respondError(c, fiber.StatusNotFound, err.Error())
	default:
		h.log.Errorw("request failed", "path", c.Path(), "error", err)
		return respondError(c, fiber.StatusInternalServerError, "internal error")
	}
}
