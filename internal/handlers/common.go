package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/kiliankoe/animebingo/internal/anilist"
	"github.com/kiliankoe/animebingo/internal/game"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// Status maps a manager error onto an HTTP status.
func Status(err error) int {
	switch {
	case errors.Is(err, game.ErrGameNotFound), errors.Is(err, game.ErrParticipantNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrNotHost):
		return http.StatusForbidden
	case errors.Is(err, game.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, game.ErrGuardFailed), errors.Is(err, game.ErrInvalidTransition),
		errors.Is(err, game.ErrInvalidPhase), errors.Is(err, game.ErrNothingToDraw):
		return http.StatusUnprocessableEntity
	case errors.Is(err, anilist.ErrUpstream):
		return http.StatusBadGateway
	case game.IsClientError(err):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func fail(c *gin.Context, err error) {
	status := Status(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(status, ErrorResponse{Error: "internal error"})
		return
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}
