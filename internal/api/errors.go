package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/youruser/gemdeck/internal/auraapi"
	"github.com/youruser/gemdeck/internal/companion"
	"github.com/youruser/gemdeck/internal/deck"
	"github.com/youruser/gemdeck/internal/session"
	"github.com/youruser/gemdeck/internal/wallet"
)

// statusOf maps a domain error to the response status.
func statusOf(err error) int {
	var apiErr *auraapi.APIError
	switch {
	case errors.As(err, &apiErr):
		if apiErr.Status >= 400 && apiErr.Status < 500 {
			return apiErr.Status
		}
		return http.StatusBadGateway
	case errors.Is(err, auraapi.ErrUnreachable):
		return http.StatusBadGateway
	case errors.Is(err, session.ErrEnded), errors.Is(err, session.ErrExpired):
		return http.StatusUnauthorized
	case errors.Is(err, companion.ErrNotLoaded),
		errors.Is(err, companion.ErrNotEditing),
		errors.Is(err, companion.ErrCommitInProgress),
		errors.Is(err, companion.ErrNoPendingBind):
		return http.StatusConflict
	case errors.Is(err, companion.ErrDeckIncomplete),
		errors.Is(err, companion.ErrUnknownCard),
		errors.Is(err, companion.ErrNoWallet),
		errors.Is(err, companion.ErrMissingCredentials),
		errors.Is(err, wallet.ErrBadAddress),
		errors.Is(err, wallet.ErrBadSignature),
		errors.Is(err, wallet.ErrSignerMismatch),
		errors.Is(err, deck.ErrWrongSize),
		errors.Is(err, deck.ErrDuplicate),
		errors.Is(err, deck.ErrBadCardID),
		errors.Is(err, deck.ErrBadCode):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// fail writes {"error": message} and records err for the request logger.
func (h *Handlers) fail(c *gin.Context, err error) {
	status := statusOf(err)
	_ = c.Error(err)
	if status >= 500 {
		h.log.Error("request failed", slog.String("path", c.FullPath()), slog.Any("error", err))
	}
	if status == http.StatusUnauthorized {
		h.clearCookie(c)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": auraapi.Message(err)})
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
