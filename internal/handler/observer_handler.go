package handler

import (
	"startup-standup-be/internal/pkg/logger"
	"startup-standup-be/internal/service"
	internalWS "startup-standup-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// ObserverHandler streams a session's events to websocket observers.
type ObserverHandler struct {
	service service.IStandupService
	hub     *internalWS.Hub
	logger  logger.ILogger
}

func NewObserverHandler(service service.IStandupService, hub *internalWS.Hub, log logger.ILogger) *ObserverHandler {
	return &ObserverHandler{
		service: service,
		hub:     hub,
		logger:  log,
	}
}

// ServeWs rejects unknown sessions before upgrading.
func (h *ObserverHandler) ServeWs(c *fiber.Ctx) error {
	sessionID := c.Params("id")
	if !h.service.SessionExists(sessionID) {
		return fiber.NewError(fiber.StatusNotFound, "Invalid session")
	}

	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info("OBSERVER", "Observer connected", map[string]interface{}{"session_id": sessionID})
			internalWS.ServeWs(h.hub, conn, sessionID)
			h.logger.Info("OBSERVER", "Observer disconnected", map[string]interface{}{"session_id": sessionID})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}

func (h *ObserverHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/sessions/:id/observe", h.ServeWs)
}
