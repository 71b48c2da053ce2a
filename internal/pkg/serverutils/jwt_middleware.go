package serverutils

import (
	"strings"

	"ai-tutor-be/internal/pkg/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const userIDKey = "user_id"

// JwtMiddleware accepts HS256 bearer tokens signed with secret and stores the
// user_id claim in Locals. Websocket upgrades may pass the token as ?token=.
func JwtMiddleware(secret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		tokenStr := ""
		authHeader := ctx.Get("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			tokenStr = authHeader[7:]
		} else if q := ctx.Query("token"); q != "" {
			tokenStr = q
		}
		if tokenStr == "" {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Missing token"))
		}

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Invalid claims"))
		}
		userID, _ := claims[userIDKey].(string)
		if userID == "" {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Invalid claims"))
		}

		ctx.Locals(userIDKey, userID)
		return ctx.Next()
	}
}

// UserID returns the authenticated user of the request.
func UserID(ctx *fiber.Ctx) (string, error) {
	userID, _ := ctx.Locals(userIDKey).(string)
	if userID == "" {
		return "", apperror.New(apperror.KindAuth, "unauthorized")
	}
	return userID, nil
}
