package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/MickeyDagm/MDAFOnlineTutor/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "middleware-secret"

func newAuthTestApp() *fiber.App {
	app := fiber.New()
	app.Get("/me", AuthRequired(testSecret), func(c *fiber.Ctx) error {
		identity, ok := CurrentIdentity(c)
		if !ok {
			return c.SendStatus(fiber.StatusTeapot)
		}
		return c.SendString(identity.Role + ":" + strconv.FormatInt(identity.UserID, 10))
	})
	return app
}

func doAuthRequest(t *testing.T, header string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp, err := newAuthTestApp().Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	buf := make([]byte, 64)
	n, _ := resp.Body.Read(buf)
	return resp.StatusCode, string(buf[:n])
}

func mustToken(t *testing.T, userID, role string) string {
	t.Helper()
	token, err := utils.GenerateToken(userID, role, testSecret)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return token
}

func TestAuthRequiredStoresParsedIdentity(t *testing.T) {
	status, body := doAuthRequest(t, "Bearer "+mustToken(t, "42", "tutor"))
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if body != "tutor:42" {
		t.Fatalf("unexpected identity %q", body)
	}
}

func TestAuthRequiredRejects(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "wrong scheme", header: "Basic " + mustToken(t, "42", "student")},
		{name: "extra parts", header: "Bearer a b"},
		{name: "wrong secret", header: "Bearer " + func() string {
			token, _ := utils.GenerateToken("42", "student", "other")
			return token
		}()},
		{name: "unknown role", header: "Bearer " + mustToken(t, "42", "admin")},
		{name: "non numeric user", header: "Bearer " + mustToken(t, "abc", "student")},
		{name: "non positive user", header: "Bearer " + mustToken(t, "0", "student")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := doAuthRequest(t, tt.header)
			if status != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", status)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	token, err := BearerToken("  bearer abc.def  ")
	if err != nil || token != "abc.def" {
		t.Fatalf("expected abc.def, got %q (%v)", token, err)
	}
	if _, err := BearerToken(""); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
	for _, header := range []string{"Bearer", "Bearer ", "Token abc", "Bearer a b"} {
		if _, err := BearerToken(header); !errors.Is(err, ErrMalformedHeader) {
			t.Fatalf("%q: expected ErrMalformedHeader, got %v", header, err)
		}
	}
}

func TestParseIdentityRejectsOtherSigningMethods(t *testing.T) {
	claims := utils.Claims{UserID: "42", Role: "student"}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	if _, err := ParseIdentity(token, testSecret); err == nil {
		t.Fatalf("expected HS512 token to be rejected")
	}
}
