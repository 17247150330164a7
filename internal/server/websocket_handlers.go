package server

import (
	"errors"
	"time"

	"bookswap/internal/middleware"
	"bookswap/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const wsTicketTTL = 30 * time.Second

var errRedisUnavailable = errors.New("redis is not configured")

// IssueWSTicket handles POST /api/ws/ticket. Browsers cannot set headers on a
// websocket upgrade, so the socket authenticates with this single-use ticket.
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return nil
	}
	if s.redis == nil {
		return respondError(c, models.NewDependencyError("redis", errRedisUnavailable))
	}

	ticket := uuid.NewString()
	if err := s.redis.Set(c.UserContext(), wsTicketPrefix+ticket, userID.String(), wsTicketTTL).Err(); err != nil {
		return respondError(c, models.NewDependencyError("redis", err))
	}
	return c.JSON(fiber.Map{
		"ticket":     ticket,
		"expires_in": int(wsTicketTTL.Seconds()),
	})
}

// WebsocketHandler handles GET /api/ws. The socket receives notification and
// chat events published for the authenticated user on any instance.
func (s *Server) WebsocketHandler() fiber.Handler {
	upgrade := websocket.New(func(conn *websocket.Conn) {
		userID, ok := conn.Locals("userID").(uuid.UUID)
		if !ok || s.hub == nil {
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			middleware.Logger.Warn("websocket register failed", "user_id", userID, "error", err)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}
		client.Serve()
	})

	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return upgrade(c)
	}
}
