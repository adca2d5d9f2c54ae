package handlers

import (
	"strings"

	"github.com/MickeyDagm/MDAFOnlineTutor/internal/middleware"
	"github.com/MickeyDagm/MDAFOnlineTutor/internal/realtime"
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// RealtimeHandler upgrades authenticated clients onto the session event hub.
type RealtimeHandler struct {
	hub        *realtime.Hub
	authorizer realtime.JoinAuthorizer
	jwtSecret  string
}

func NewRealtimeHandler(hub *realtime.Hub, authorizer realtime.JoinAuthorizer, jwtSecret string) *RealtimeHandler {
	return &RealtimeHandler{
		hub:        hub,
		authorizer: authorizer,
		jwtSecret:  jwtSecret,
	}
}

func (h *RealtimeHandler) WebSocketAuth(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{"error": "WebSocket upgrade required"})
	}

	identity, err := h.parseWSIdentity(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
	}

	middleware.SetIdentity(c, identity)
	return c.Next()
}

func (h *RealtimeHandler) HandleWebSocket(conn *websocket.Conn) {
	identity, ok := conn.Locals(middleware.IdentityKey).(middleware.Identity)
	if !ok || identity.UserID <= 0 {
		_ = conn.Close()
		return
	}

	client := realtime.NewClient(h.hub, conn, identity.UserID)
	h.hub.Register(client)
	go client.WritePump()
	client.ReadPump(h.authorizer)
}

// parseWSIdentity prefers the token query parameter since browsers cannot set
// headers on a websocket handshake.
func (h *RealtimeHandler) parseWSIdentity(c *fiber.Ctx) (middleware.Identity, error) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		var err error
		token, err = middleware.BearerToken(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return middleware.Identity{}, err
		}
	}
	return middleware.ParseIdentity(token, h.jwtSecret)
}
