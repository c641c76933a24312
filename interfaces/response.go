package interfaces

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"staffable/domain"
	"staffable/infrastructure"
)

var errRateLimited = errors.New("too many requests")

// ErrorEnvelope is the body of every error response.
type ErrorEnvelope struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Meta    map[string]string `json:"meta,omitempty"`
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, domain.ErrUpstream):
		return http.StatusBadGateway, "upstream_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// errorEnvelope builds the response for err. Internal and upstream failures
// get a fixed message; the detail only goes to the log.
func errorEnvelope(c *gin.Context, err error) (int, ErrorEnvelope) {
	status, code := statusFor(err)
	env := ErrorEnvelope{Code: code, Message: err.Error()}
	switch status {
	case http.StatusInternalServerError:
		env.Message = "internal server error"
	case http.StatusBadGateway:
		env.Message = "a dependent service is unavailable, try again shortly"
	case http.StatusNotFound:
		env.Message = "not found"
	case http.StatusUnauthorized:
		env.Message = "sign in to continue"
	}

	meta := map[string]string{}
	if id := c.GetString(requestIDKey); id != "" {
		meta["request_id"] = id
	}
	var apiErr *infrastructure.APIError
	if errors.As(err, &apiErr) && apiErr.Code != "" {
		meta["crm_code"] = apiErr.Code
	}
	if len(meta) > 0 {
		env.Meta = meta
	}
	return status, env
}

func respondError(c *gin.Context, err error) {
	status, env := errorEnvelope(c, err)
	log := LoggerFrom(c).WithError(err).WithField("status", status)
	if status >= http.StatusInternalServerError {
		log.Error("request failed")
	} else {
		log.Debug("request rejected")
	}
	c.AbortWithStatusJSON(status, env)
}
