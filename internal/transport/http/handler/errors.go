package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ErlanBelekov/recircular-api/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	errInternalServer = "Internal server error"
	errRouteNotFound  = "Route not found"
)

// errorStatuses maps domain sentinels to HTTP statuses. The response body
// carries the sentinel's own message, never the wrapped chain.
var errorStatuses = []struct {
	err    error
	status int
}{
	{domain.ErrInvalidCredentials, http.StatusBadRequest},
	{domain.ErrEmailTaken, http.StatusBadRequest},
	{domain.ErrTokenInvalid, http.StatusBadRequest},
	{domain.ErrAccountInactive, http.StatusForbidden},
	{domain.ErrUnauthorized, http.StatusUnauthorized},

	{domain.ErrOfferNotFound, http.StatusNotFound},
	{domain.ErrRequestNotFound, http.StatusNotFound},
	{domain.ErrUserNotFound, http.StatusNotFound},

	{domain.ErrNotOfferOwner, http.StatusForbidden},
	{domain.ErrNotRequestOwner, http.StatusForbidden},

	{domain.ErrOfferNotActive, http.StatusBadRequest},
	{domain.ErrRequestNotPending, http.StatusBadRequest},
	{domain.ErrDuplicateRequest, http.StatusBadRequest},
	{domain.ErrOwnOffer, http.StatusBadRequest},
}

// respondError writes the status for a known domain error and logs anything
// else as a 500.
func respondError(c *gin.Context, logger *slog.Logger, op string, err error) {
	if errors.Is(err, domain.ErrValidation) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			c.JSON(e.status, gin.H{"error": e.err.Error()})
			return
		}
	}
	logger.ErrorContext(c.Request.Context(), op, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
}

// pathID reads a UUID path parameter. Malformed ids cannot name an existing
// row, so they answer with notFound.
func pathID(c *gin.Context, name string, notFound error) (string, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
		return "", false
	}
	return id.String(), true
}

func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": errRouteNotFound})
}
