package middleware

import (
	"errors"
	"strconv"
	"strings"

	"github.com/MickeyDagm/MDAFOnlineTutor/internal/models"
	"github.com/MickeyDagm/MDAFOnlineTutor/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

// IdentityKey is the Locals key AuthRequired stores the caller under.
const IdentityKey = "identity"

var (
	ErrMissingToken       = errors.New("missing token")
	ErrMalformedHeader    = errors.New("invalid authorization header format")
	ErrUnsupportedAccount = errors.New("token does not carry a marketplace account")
)

// Identity is the authenticated caller. Role is always student or tutor.
type Identity struct {
	UserID int64
	Role   string
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" value.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingToken
	}
	scheme, token, found := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" || strings.Contains(token, " ") {
		return "", ErrMalformedHeader
	}
	return token, nil
}

// ParseIdentity validates the token and checks its claims name a positive
// user id and a marketplace role.
func ParseIdentity(token, secret string) (Identity, error) {
	claims, err := utils.ValidateToken(token, secret)
	if err != nil {
		return Identity{}, err
	}
	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil || userID <= 0 {
		return Identity{}, ErrUnsupportedAccount
	}
	if claims.Role != models.RoleStudent && claims.Role != models.RoleTutor {
		return Identity{}, ErrUnsupportedAccount
	}
	return Identity{UserID: userID, Role: claims.Role}, nil
}

func SetIdentity(c *fiber.Ctx, identity Identity) {
	c.Locals(IdentityKey, identity)
}

// CurrentIdentity returns the caller stored by AuthRequired, if any.
func CurrentIdentity(c *fiber.Ctx) (Identity, bool) {
	identity, ok := c.Locals(IdentityKey).(Identity)
	return identity, ok && identity.UserID > 0
}

func AuthRequired(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := BearerToken(c.Get(fiber.HeaderAuthorization))
		if errors.Is(err, ErrMissingToken) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing authorization header",
			})
		}
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid authorization header format",
			})
		}

		identity, err := ParseIdentity(token, secret)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		SetIdentity(c, identity)
		return c.Next()
	}
}
