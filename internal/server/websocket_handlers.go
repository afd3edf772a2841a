package server

import (
	"strconv"

	"chirp/internal/cache"
	"chirp/internal/middleware"
	"chirp/internal/models"
	"chirp/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// IssueWSTicket handles POST /api/ws/ticket. Browsers cannot set an
// Authorization header on the websocket upgrade, so authenticated clients
// exchange their JWT for a short-lived single-use ticket first.
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	if s.redis == nil {
		// Without Redis the upgrade falls back to token query auth.
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewInternalError(fiber.ErrServiceUnavailable))
	}

	ticket := uuid.New().String()
	key := cache.WebSocketTicketKey(ticket)
	if err := s.redis.Set(c.Context(), key, strconv.FormatUint(uint64(userID), 10), cache.WebSocketTicketTTL).Err(); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"ticket":     ticket,
		"expires_in": int(cache.WebSocketTicketTTL.Seconds()),
	})
}

// WSAuthRequired authenticates the websocket upgrade. A single-use ticket is
// preferred; a JWT in the token query parameter is the fallback.
func (s *Server) WSAuthRequired(c *fiber.Ctx) error {
	ticket := c.Query("ticket")
	if ticket != "" && s.redis != nil {
		key := cache.WebSocketTicketKey(ticket)
		userIDStr, err := s.redis.Get(c.Context(), key).Result()
		if err == nil {
			// Single use: delete before accepting.
			s.redis.Del(c.Context(), key)
			if userID, parseErr := strconv.ParseUint(userIDStr, 10, 32); parseErr == nil {
				c.Locals("userID", uint(userID))
				return c.Next()
			}
		}
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Invalid or expired WebSocket ticket"))
	}

	return middleware.WebSocketAuthRequired(c)
}

// WebsocketHandler upgrades the connection and attaches it to the hub.
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userIDVal := conn.Locals("userID")
		userID, ok := userIDVal.(uint)
		if !ok {
			_ = conn.Close()
			return
		}

		if s.hub == nil {
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			observability.GlobalLogger.Warn("websocket registration refused",
				"user_id", userID, "error", err.Error())
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		client.TrySend([]byte(`{"type":"connected"}`))

		go client.WritePump()
		client.ReadPump()
	})
}
