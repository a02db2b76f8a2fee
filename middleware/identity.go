// middleware/identity.go - Per-device player identity token
package middleware

import (
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// The identity token is not an auth system: it is the persisted "current
// player identity" a device carries for the duration of one game. The
// browser stores it at join and presents it on every score-dependent call;
// the server only trusts it as far as "this device claims to be player X".

// IssuePlayerToken signs an identity token for a freshly joined player.
func IssuePlayerToken(playerID string) (string, error) {
	claims := jwt.MapClaims{
		"player_id": playerID,
		"exp":       time.Now().Add(24 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret()))
}

// PlayerIdentity resolves the Bearer token to a player id and stores it in
// c.Locals("playerId"). A missing or unreadable token is terminal for the
// request: the client clears its identity and returns to the join screen.
func PlayerIdentity(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return c.Status(401).JSON(fiber.Map{"error": "Missing player identity"})
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return c.Status(401).JSON(fiber.Map{"error": "Invalid authorization header format"})
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(401, "Invalid signing method")
		}
		return []byte(jwtSecret()), nil
	})
	if err != nil || !token.Valid {
		return c.Status(401).JSON(fiber.Map{"error": "Invalid or expired player identity"})
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return c.Status(401).JSON(fiber.Map{"error": "Invalid token claims"})
	}

	playerID, ok := claims["player_id"].(string)
	if !ok || playerID == "" {
		return c.Status(401).JSON(fiber.Map{"error": "Invalid player identity"})
	}

	c.Locals("playerId", playerID)
	return c.Next()
}

func jwtSecret() string {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "owlhoot-secret-change-in-production"
	}
	return secret
}
