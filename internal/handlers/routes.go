package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kiliankoe/animebingo/internal/auth"
)

// Register mounts the REST API on r.
func Register(r gin.IRouter, games *GameHandler, search *AniListHandler, tokens *auth.TokenManager) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	api := r.Group("/api")
	api.POST("/auth/anonymous", auth.AnonymousHandler(tokens))
	api.GET("/genres", games.ListGenres)

	protected := api.Group("")
	protected.Use(auth.Middleware(tokens))
	{
		protected.GET("/me/state", games.GetUserState)
		protected.PUT("/me/state", games.PutUserState)

		protected.GET("/games", games.ListGames)
		protected.POST("/games", games.CreateGame)
		protected.GET("/games/:id", games.GetGame)
		protected.DELETE("/games/:id", games.DeleteGame)

		protected.POST("/games/:id/participants", games.AddParticipant)
		protected.PUT("/games/:id/participants/:pid", games.UpdateParticipant)
		protected.DELETE("/games/:id/participants/:pid", games.RemoveParticipant)

		protected.POST("/games/:id/transitions", games.Transition)
		protected.POST("/games/:id/genres/draw", games.DrawGenre())
		protected.POST("/games/:id/club/genre/draw", games.DrawClubGenre())
		protected.PUT("/games/:id/indicator", games.SetIndicator)
		protected.POST("/games/:id/indications", games.AddIndication)
		protected.POST("/games/:id/club/indications", games.AddClubIndication)
		protected.POST("/games/:id/anime/draw", games.DrawAnime())
		protected.POST("/games/:id/club/anime/draw", games.DrawClubAnime())
		protected.PUT("/games/:id/selection", games.Select)
		protected.PUT("/games/:id/club/selection", games.SelectClub)

		protected.GET("/backup", games.Backup)
		protected.GET("/games/:id/backup", games.Backup)
		protected.POST("/restore", games.Restore)

		if search != nil {
			protected.GET("/anilist/search", search.Search)
		}
	}
}
