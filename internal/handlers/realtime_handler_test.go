package handlers

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/MickeyDagm/MDAFOnlineTutor/internal/middleware"
	"github.com/MickeyDagm/MDAFOnlineTutor/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

func newRealtimeTestApp() *fiber.App {
	handler := NewRealtimeHandler(nil, nil, "ws-secret")
	app := fiber.New()
	app.Get("/ws", handler.WebSocketAuth, func(c *fiber.Ctx) error {
		identity, _ := middleware.CurrentIdentity(c)
		return c.SendString(strconv.FormatInt(identity.UserID, 10))
	})
	return app
}

func upgradeRequest(target string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Sec-WebSocket-Version", "13")
	req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	return req
}

func TestWebSocketAuthRequiresUpgrade(t *testing.T) {
	resp, err := newRealtimeTestApp().Test(httptest.NewRequest(http.MethodGet, "/ws", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUpgradeRequired {
		t.Fatalf("expected 426, got %d", resp.StatusCode)
	}
}

func TestWebSocketAuthRejectsBadToken(t *testing.T) {
	token, err := utils.GenerateToken("42", "student", "other-secret")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	for _, target := range []string{"/ws", "/ws?token=" + token} {
		resp, err := newRealtimeTestApp().Test(upgradeRequest(target))
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", target, resp.StatusCode)
		}
	}
}

func TestWebSocketAuthAcceptsQueryOrBearerToken(t *testing.T) {
	token, err := utils.GenerateToken("42", "student", "ws-secret")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	queryReq := upgradeRequest("/ws?token=" + token)
	bearerReq := upgradeRequest("/ws")
	bearerReq.Header.Set("Authorization", "Bearer "+token)

	for _, req := range []*http.Request{queryReq, bearerReq} {
		resp, err := newRealtimeTestApp().Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
	}
}

func TestWebSocketAuthRejectsNonMarketplaceRole(t *testing.T) {
	token, err := utils.GenerateToken("42", "admin", "ws-secret")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	resp, err := newRealtimeTestApp().Test(upgradeRequest("/ws?token=" + token))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}
