package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kiliankoe/animebingo/internal/auth"
	"github.com/kiliankoe/animebingo/internal/game"
)

type GameHandler struct {
	manager *game.Manager
}

func NewGameHandler(m *game.Manager) *GameHandler {
	return &GameHandler{manager: m}
}

type CreateGameRequest struct {
	Name     string    `json:"name" binding:"required"`
	GameMode game.Mode `json:"gameMode" binding:"required"`
}

type ParticipantRequest struct {
	Name        string `json:"name" binding:"required"`
	AnilistUser string `json:"anilistUser"`
}

type TransitionRequest struct {
	Event         game.Event `json:"event" binding:"required"`
	ParticipantID string     `json:"participantId"`
}

type DrawRequest struct {
	ParticipantID string `json:"participantId"`
	All           bool   `json:"all"`
}

type IndicatorRequest struct {
	ParticipantID string `json:"participantId" binding:"required"`
}

type IndicationRequest struct {
	IndicatorID string         `json:"indicatorId" binding:"required"`
	ReceiverID  string         `json:"receiverId"`
	Anime       game.AnimeData `json:"anime"`
}

type SelectionRequest struct {
	ParticipantID string `json:"participantId"`
	AnimeTitle    string `json:"animeTitle" binding:"required"`
}

type UserStateRequest struct {
	ActiveGameID string `json:"activeGameId"`
}

func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return false
	}
	return true
}

func (h *GameHandler) respond(c *gin.Context, g *game.Game, err error) {
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (h *GameHandler) ListGenres(c *gin.Context) {
	c.JSON(http.StatusOK, game.Genres)
}

func (h *GameHandler) ListGames(c *gin.Context) {
	games, err := h.manager.ListGames(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, games)
}

func (h *GameHandler) CreateGame(c *gin.Context) {
	var req CreateGameRequest
	if !bind(c, &req) {
		return
	}
	g, err := h.manager.CreateGame(c.Request.Context(), auth.UserID(c), req.Name, req.GameMode)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

func (h *GameHandler) GetGame(c *gin.Context) {
	g, err := h.manager.GetGame(c.Request.Context(), c.Param("id"))
	h.respond(c, g, err)
}

func (h *GameHandler) DeleteGame(c *gin.Context) {
	if err := h.manager.DeleteGame(c.Request.Context(), auth.UserID(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "game deleted"})
}

func (h *GameHandler) GetUserState(c *gin.Context) {
	st, err := h.manager.UserState(c.Request.Context(), auth.UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *GameHandler) PutUserState(c *gin.Context) {
	var req UserStateRequest
	if !bind(c, &req) {
		return
	}
	st, err := h.manager.SelectGame(c.Request.Context(), auth.UserID(c), req.ActiveGameID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *GameHandler) AddParticipant(c *gin.Context) {
	var req ParticipantRequest
	if !bind(c, &req) {
		return
	}
	p, g, err := h.manager.AddParticipant(c.Request.Context(), auth.UserID(c), c.Param("id"), req.Name, req.AnilistUser)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"participant": p, "game": g})
}

func (h *GameHandler) UpdateParticipant(c *gin.Context) {
	var req ParticipantRequest
	if !bind(c, &req) {
		return
	}
	g, err := h.manager.UpdateParticipant(c.Request.Context(), auth.UserID(c), c.Param("id"), c.Param("pid"), req.Name, req.AnilistUser)
	h.respond(c, g, err)
}

func (h *GameHandler) RemoveParticipant(c *gin.Context) {
	g, err := h.manager.RemoveParticipant(c.Request.Context(), auth.UserID(c), c.Param("id"), c.Param("pid"))
	h.respond(c, g, err)
}

func (h *GameHandler) Transition(c *gin.Context) {
	var req TransitionRequest
	if !bind(c, &req) {
		return
	}
	out, g, err := h.manager.Transition(c.Request.Context(), auth.UserID(c), c.Param("id"), game.Action{Event: req.Event, ParticipantID: req.ParticipantID})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"outcome": out, "game": g})
}

// draw serves the four draw routes. Without a participant id it draws for everyone in
// scope.
func (h *GameHandler) draw(kind game.DrawKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req DrawRequest
		if c.Request.ContentLength > 0 && !bind(c, &req) {
			return
		}
		out, g, err := h.manager.Draw(c.Request.Context(), auth.UserID(c), c.Param("id"), game.DrawRequest{
			Kind:          kind,
			ParticipantID: req.ParticipantID,
			All:           req.All || req.ParticipantID == "",
		})
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"outcome": out, "game": g})
	}
}

func (h *GameHandler) DrawGenre() gin.HandlerFunc { return h.draw(game.KindGenre) }
func (h *GameHandler) DrawClubGenre() gin.HandlerFunc { return h.draw(game.KindClubGenre) }
func (h *GameHandler) DrawAnime() gin.HandlerFunc { return h.draw(game.KindAnime) }
func (h *GameHandler) DrawClubAnime() gin.HandlerFunc { return h.draw(game.KindClubAnime) }

func (h *GameHandler) SetIndicator(c *gin.Context) {
	var req IndicatorRequest
	if !bind(c, &req) {
		return
	}
	g, err := h.manager.SetIndicator(c.Request.Context(), auth.UserID(c), c.Param("id"), req.ParticipantID)
	h.respond(c, g, err)
}

func (h *GameHandler) AddIndication(c *gin.Context) {
	var req IndicationRequest
	if !bind(c, &req) {
		return
	}
	g, err := h.manager.AddIndication(c.Request.Context(), auth.UserID(c), c.Param("id"), req.IndicatorID, req.ReceiverID, req.Anime)
	h.respond(c, g, err)
}

func (h *GameHandler) AddClubIndication(c *gin.Context) {
	var req IndicationRequest
	if !bind(c, &req) {
		return
	}
	g, err := h.manager.AddClubIndication(c.Request.Context(), auth.UserID(c), c.Param("id"), req.IndicatorID, req.Anime)
	h.respond(c, g, err)
}

func (h *GameHandler) Select(c *gin.Context) {
	var req SelectionRequest
	if !bind(c, &req) {
		return
	}
	if req.ParticipantID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "participantId required"})
		return
	}
	g, err := h.manager.Select(c.Request.Context(), auth.UserID(c), c.Param("id"), req.ParticipantID, req.AnimeTitle)
	h.respond(c, g, err)
}

func (h *GameHandler) SelectClub(c *gin.Context) {
	var req SelectionRequest
	if !bind(c, &req) {
		return
	}
	g, err := h.manager.SelectClub(c.Request.Context(), auth.UserID(c), c.Param("id"), req.AnimeTitle)
	h.respond(c, g, err)
}
