package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/rs/zerolog/log"

	"github.com/kiliankoe/animebingo/internal/auth"
	"github.com/kiliankoe/animebingo/internal/game"
)

type ConnCtx struct {
	UserID string
	GameID string // game whose room the connection joined, if any
}

// Server exposes game actions over Socket.IO and pushes every committed change to the
// room named after the game id.
type Server struct {
	Manager *game.Manager
	tokens  *auth.TokenManager
	reveal  time.Duration
	io      *socketio.Server
}

func New(m *game.Manager, tokens *auth.TokenManager, reveal time.Duration) *Server {
	return &Server{Manager: m, tokens: tokens, reveal: reveal}
}

type gamePayload struct {
	GameID string `json:"gameId"`
}

type transitionPayload struct {
	GameID        string     `json:"gameId"`
	Event         game.Event `json:"event"`
	ParticipantID string     `json:"participantId"`
}

type drawPayload struct {
	GameID        string `json:"gameId"`
	ParticipantID string `json:"participantId"`
	All           bool   `json:"all"`
}

type indicationPayload struct {
	GameID      string         `json:"gameId"`
	IndicatorID string         `json:"indicatorId"`
	ReceiverID  string         `json:"receiverId"`
	Anime       game.AnimeData `json:"anime"`
}

type selectionPayload struct {
	GameID        string `json:"gameId"`
	ParticipantID string `json:"participantId"`
	AnimeTitle    string `json:"animeTitle"`
}

type participantPayload struct {
	GameID      string `json:"gameId"`
	Name        string `json:"name"`
	AnilistUser string `json:"anilistUser"`
}

func opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

func userOf(s socketio.Conn) string {
	if ctx, ok := s.Context().(*ConnCtx); ok {
		return ctx.UserID
	}
	return ""
}

// gameOf falls back to the watched game when the payload names none.
func gameOf(s socketio.Conn, id string) string {
	if id != "" {
		return id
	}
	if ctx, ok := s.Context().(*ConnCtx); ok {
		return ctx.GameID
	}
	return ""
}

// Mount attaches Socket.IO server with handlers to the given Gin engine.
func (srv *Server) Mount(r *gin.Engine) *socketio.Server {
	io := socketio.NewServer(nil)
	srv.io = io

	io.OnConnect("/", func(s socketio.Conn) error {
		u := s.URL()
		userID, err := srv.tokens.Verify(u.Query().Get("token"))
		if err != nil {
			log.Warn().Str("sid", s.ID()).Err(err).Msg("socket rejected")
			s.Emit("error", map[string]any{"code": "unauthorized", "message": err.Error()})
			return err
		}
		s.SetContext(&ConnCtx{UserID: userID})
		log.Info().Str("sid", s.ID()).Str("user", userID).Msg("socket connected")
		return nil
	})

	// game:watch joins the game's room and sends the current snapshot
	io.OnEvent("/", "game:watch", func(s socketio.Conn, p gamePayload) map[string]any {
		ctx, cancel := opCtx()
		defer cancel()
		g, err := srv.Manager.GetGame(ctx, p.GameID)
		if err != nil {
			return srv.err(s, err)
		}
		cc, _ := s.Context().(*ConnCtx)
		if cc == nil {
			cc = &ConnCtx{}
			s.SetContext(cc)
		}
		if cc.GameID != "" && cc.GameID != g.ID {
			s.Leave(cc.GameID)
		}
		cc.GameID = g.ID
		s.Join(g.ID)
		log.Info().Str("sid", s.ID()).Str("game", g.ID).Msg("game:watch")
		s.Emit("game:state", g)
		return map[string]any{"ok": true}
	})

	io.OnEvent("/", "game:unwatch", func(s socketio.Conn) map[string]any {
		if cc, ok := s.Context().(*ConnCtx); ok && cc.GameID != "" {
			s.Leave(cc.GameID)
			cc.GameID = ""
		}
		return map[string]any{"ok": true}
	})

	io.OnEvent("/", "game:transition", func(s socketio.Conn, p transitionPayload) map[string]any {
		ctx, cancel := opCtx()
		defer cancel()
		out, _, err := srv.Manager.Transition(ctx, userOf(s), gameOf(s, p.GameID), game.Action{Event: p.Event, ParticipantID: p.ParticipantID})
		if err != nil {
			return srv.err(s, err)
		}
		return map[string]any{"ok": true, "outcome": out}
	})

	draw := func(kind game.DrawKind) func(s socketio.Conn, p drawPayload) map[string]any {
		return func(s socketio.Conn, p drawPayload) map[string]any {
			ctx, cancel := opCtx()
			defer cancel()
			req := game.DrawRequest{Kind: kind, ParticipantID: p.ParticipantID, All: p.All}
			out, _, err := srv.Manager.Draw(ctx, userOf(s), gameOf(s, p.GameID), req)
			if err != nil {
				return srv.err(s, err)
			}
			return map[string]any{"ok": true, "outcome": out}
		}
	}
	io.OnEvent("/", "genre:draw", draw(game.KindGenre))
	io.OnEvent("/", "genre:drawClub", draw(game.KindClubGenre))
	io.OnEvent("/", "anime:draw", draw(game.KindAnime))
	io.OnEvent("/", "anime:drawClub", draw(game.KindClubAnime))

	io.OnEvent("/", "indication:add", func(s socketio.Conn, p indicationPayload) map[string]any {
		ctx, cancel := opCtx()
		defer cancel()
		if _, err := srv.Manager.AddIndication(ctx, userOf(s), gameOf(s, p.GameID), p.IndicatorID, p.ReceiverID, p.Anime); err != nil {
			return srv.err(s, err)
		}
		return map[string]any{"ok": true}
	})

	io.OnEvent("/", "indication:addClub", func(s socketio.Conn, p indicationPayload) map[string]any {
		ctx, cancel := opCtx()
		defer cancel()
		if _, err := srv.Manager.AddClubIndication(ctx, userOf(s), gameOf(s, p.GameID), p.IndicatorID, p.Anime); err != nil {
			return srv.err(s, err)
		}
		return map[string]any{"ok": true}
	})

	io.OnEvent("/", "indication:setIndicator", func(s socketio.Conn, p selectionPayload) map[string]any {
		ctx, cancel := opCtx()
		defer cancel()
		if _, err := srv.Manager.SetIndicator(ctx, userOf(s), gameOf(s, p.GameID), p.ParticipantID); err != nil {
			return srv.err(s, err)
		}
		return map[string]any{"ok": true}
	})

	// selection:set without a participant picks the club anime
	io.OnEvent("/", "selection:set", func(s socketio.Conn, p selectionPayload) map[string]any {
		ctx, cancel := opCtx()
		defer cancel()
		var err error
		if p.ParticipantID == "" {
			_, err = srv.Manager.SelectClub(ctx, userOf(s), gameOf(s, p.GameID), p.AnimeTitle)
		} else {
			_, err = srv.Manager.Select(ctx, userOf(s), gameOf(s, p.GameID), p.ParticipantID, p.AnimeTitle)
		}
		if err != nil {
			return srv.err(s, err)
		}
		return map[string]any{"ok": true}
	})

	io.OnEvent("/", "participant:add", func(s socketio.Conn, p participantPayload) map[string]any {
		ctx, cancel := opCtx()
		defer cancel()
		added, _, err := srv.Manager.AddParticipant(ctx, userOf(s), gameOf(s, p.GameID), p.Name, p.AnilistUser)
		if err != nil {
			return srv.err(s, err)
		}
		return map[string]any{"ok": true, "participant": added}
	})

	io.OnError("/", func(s socketio.Conn, e error) {
		if s == nil {
			log.Error().Err(e).Msg("socket error")
			return
		}
		log.Error().Str("sid", s.ID()).Err(e).Msg("socket error")
	})
	io.OnDisconnect("/", func(s socketio.Conn, reason string) {
		log.Info().Str("sid", s.ID()).Str("reason", reason).Msg("socket disconnected")
	})

	go func() {
		if err := io.Serve(); err != nil {
			log.Error().Err(err).Msg("socket.io serve")
		}
	}()

	r.GET("/socket.io/*any", gin.WrapH(io))
	r.POST("/socket.io/*any", gin.WrapH(io))

	// Basic CORS preflight for Socket.IO POST
	r.OPTIONS("/socket.io/*any", func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Status(http.StatusNoContent)
	})

	return io
}

func (srv *Server) GameChanged(g *game.Game) {
	if srv.io == nil {
		return
	}
	srv.io.BroadcastToRoom("/", g.ID, "game:state", g)
}

func (srv *Server) GameDeleted(id string) {
	if srv.io == nil {
		return
	}
	srv.io.BroadcastToRoom("/", id, "game:deleted", map[string]any{"gameId": id})
}

func (srv *Server) GameDrawn(gameID string, out game.DrawOutcome) {
	if srv.io == nil {
		return
	}
	srv.io.BroadcastToRoom("/", gameID, "game:draw", map[string]any{
		"kind":     out.Kind,
		"outcome":  out,
		"revealMs": srv.reveal.Milliseconds(),
	})
}

func (srv *Server) err(s socketio.Conn, err error) map[string]any {
	code := ErrorCode(err)
	if code == "internal" {
		log.Error().Str("sid", s.ID()).Err(err).Msg("socket action failed")
	}
	s.Emit("error", map[string]any{"code": code, "message": err.Error()})
	return map[string]any{"error": err.Error(), "code": code}
}

// ErrorCode classifies an action error for clients.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, game.ErrGameNotFound), errors.Is(err, game.ErrParticipantNotFound):
		return "not_found"
	case errors.Is(err, game.ErrNotHost):
		return "forbidden"
	case errors.Is(err, game.ErrVersionConflict):
		return "conflict"
	case errors.Is(err, game.ErrGuardFailed), errors.Is(err, game.ErrInvalidTransition),
		errors.Is(err, game.ErrInvalidPhase), errors.Is(err, game.ErrNothingToDraw):
		return "precondition_failed"
	case game.IsClientError(err):
		return "bad_request"
	}
	return "internal"
}
