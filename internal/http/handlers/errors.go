package handlers

import (
	"errors"
	"net/http"

	"confidential_casino/internal/game"
	"confidential_casino/internal/logger"
	"confidential_casino/internal/service"

	"github.com/gin-gonic/gin"
)

// errorStatus maps service failures onto HTTP statuses.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, game.ErrInvalidChoice):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrAuthFailed), errors.Is(err, service.ErrRevealDenied):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrNotOwner), errors.Is(err, errNoLocalSigner):
		return http.StatusForbidden
	case errors.Is(err, service.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrSimulationRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrSessionActive),
		errors.Is(err, service.ErrOperationInFlight),
		errors.Is(err, service.ErrInvalidState),
		errors.Is(err, service.ErrStaleSimulation),
		errors.Is(err, service.ErrNothingToClaim),
		errors.Is(err, service.ErrClaimRejected),
		errors.Is(err, service.ErrNotLanded),
		errors.Is(err, game.ErrProofRequired),
		errors.Is(err, game.ErrOutcomeMismatch):
		return http.StatusConflict
	case errors.Is(err, service.ErrExecutionFailed),
		errors.Is(err, service.ErrRevealUnavailable),
		errors.Is(err, service.ErrEncryptUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondError writes err. Unknown failures are logged and not echoed back.
func respondError(c *gin.Context, err error, extra gin.H) {
	status := errorStatus(err)
	body := gin.H{
		"error":     err.Error(),
		"retryable": service.IsRetryable(err),
	}
	if status == http.StatusInternalServerError {
		logger.WithContext(c.Request.Context()).Error("request failed", "path", c.FullPath(), "error", err)
		body["error"] = "internal error"
	}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(status, body)
}
