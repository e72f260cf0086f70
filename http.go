package identity

import (
	"net/http"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// RefreshCookieName is the cookie that carries the refresh token between
// the browser and the refresh/logout endpoints.
const RefreshCookieName = "refreshToken"

// ErrorResponse is the JSON body returned for any failed request.
type ErrorResponse struct {
	Message  string `json:"message"`
	TextCode string `json:"text_code,omitempty"`
}

// WriteError renders err as a JSON error response. Rich errors carry their
// own HTTP status code; anything else is treated as an internal error so
// driver and IO details never leak to clients.
func WriteError(c router.Context, logger Logger, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	status := richErr.Code
	if status < http.StatusBadRequest {
		status = statusForCategory(richErr.Category)
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			"error", richErr.Message,
			"category", richErr.Category,
		)
	}

	return c.JSON(status, ErrorResponse{
		Message:  richErr.Message,
		TextCode: richErr.TextCode,
	})
}

func statusForCategory(category errors.Category) int {
	switch category {
	case errors.CategoryAuth:
		return http.StatusUnauthorized
	case errors.CategoryAuthz:
		return http.StatusForbidden
	case errors.CategoryNotFound:
		return http.StatusNotFound
	case errors.CategoryConflict:
		return http.StatusConflict
	case errors.CategoryBadInput, errors.CategoryValidation, errors.CategoryOperation:
		return http.StatusBadRequest
	case errors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func setRefreshCookie(c router.Context, val string, duration time.Duration, secure bool) {
	c.Cookie(&router.Cookie{
		Name:     RefreshCookieName,
		Value:    val,
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   secure,
		SameSite: "Lax",
	})
}

func clearRefreshCookie(c router.Context, secure bool) {
	c.Cookie(&router.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   secure,
		SameSite: "Lax",
	})
}
