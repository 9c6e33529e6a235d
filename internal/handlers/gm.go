package handlers

import (
	"errors"
	"io/fs"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/kiliankoe/animebingo/internal/game"
)

// RegisterGM mounts the game master routes behind basic auth. Nothing is mounted
// without credentials.
func RegisterGM(r gin.IRouter, user, pass string, watchLog *game.WatchLog) {
	if user == "" || pass == "" {
		return
	}
	gm := r.Group("/gm", gin.BasicAuth(gin.Accounts{user: pass}))
	gm.GET("/watch-log", WatchLog(watchLog))
}

// WatchLog downloads the watch log file.
func WatchLog(w *game.WatchLog) gin.HandlerFunc {
	return func(c *gin.Context) {
		if w == nil {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "watch log disabled"})
			return
		}
		if _, err := os.Stat(w.Path()); errors.Is(err, fs.ErrNotExist) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "no watches recorded yet"})
			return
		}
		c.FileAttachment(w.Path(), "anime-bingo-watch-log.txt")
	}
}
