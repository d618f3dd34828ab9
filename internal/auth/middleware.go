package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const userIDKey = "user_id"

// bearerToken extracts the credential from an "Authorization: Bearer <token>" header.
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != "" && !strings.ContainsAny(token, " \t")
}

// Middleware rejects requests without a valid session token and records
// the caller's id on the context for GetUserIDFromContext.
func Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if header == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Missing Authorization header")
		}
		token, ok := bearerToken(header)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Authorization header format")
		}

		userID, err := ParseToken(token)
		switch {
		case errors.Is(err, ErrInvalidToken):
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
		case err != nil:
			return echo.NewHTTPError(http.StatusInternalServerError, "Server auth configuration error")
		}

		c.Set(userIDKey, userID)
		return next(c)
	}
}

func GetUserIDFromContext(c echo.Context) (uuid.UUID, error) {
	id, ok := c.Get(userIDKey).(uuid.UUID)
	if !ok {
		return uuid.Nil, errors.New("user ID not found in context")
	}
	return id, nil
}
