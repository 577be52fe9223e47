package http

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	ctxKeyUserID = "user_id"
	ctxKeyEmail  = "email"
)

// RequireAuth validates a Bearer access token and injects the caller's id
// and email into the echo context. Every booking route is owner-scoped, so
// handlers read the identity from here rather than from request bodies.
func (s *Server) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		auth := c.Request().Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
		}
		raw := strings.TrimPrefix(auth, "Bearer ")

		tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, echo.ErrUnauthorized
			}
			return s.jwtSecret, nil
		})
		if err != nil || !tok.Valid {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
		}

		claims, ok := tok.Claims.(jwt.MapClaims)
		if !ok {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
		}

		sub, _ := claims["sub"].(string)
		userID, err := uuid.Parse(sub)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid subject"})
		}
		email, _ := claims["email"].(string)

		c.Set(ctxKeyUserID, userID)
		c.Set(ctxKeyEmail, email)
		return next(c)
	}
}

func userIDFromContext(c echo.Context) uuid.UUID {
	id, _ := c.Get(ctxKeyUserID).(uuid.UUID)
	return id
}

func emailFromContext(c echo.Context) string {
	email, _ := c.Get(ctxKeyEmail).(string)
	return email
}
