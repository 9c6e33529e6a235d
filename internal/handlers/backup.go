package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kiliankoe/animebingo/internal/auth"
)

const maxBackupSize = 10 << 20

// Backup downloads one game, or all of them when the route has no id.
func (h *GameHandler) Backup(c *gin.Context) {
	data, filename, err := h.manager.Backup(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/json", data)
}

// Restore accepts a multipart "file" field or the backup JSON as the raw body.
func (h *GameHandler) Restore(c *gin.Context) {
	var (
		data []byte
		err  error
	)
	if fh, ferr := c.FormFile("file"); ferr == nil {
		f, oerr := fh.Open()
		if oerr != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: oerr.Error()})
			return
		}
		defer f.Close()
		data, err = io.ReadAll(io.LimitReader(f, maxBackupSize))
	} else {
		data, err = io.ReadAll(io.LimitReader(c.Request.Body, maxBackupSize))
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if len(data) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "empty backup"})
		return
	}

	games, err := h.manager.Restore(c.Request.Context(), auth.UserID(c), data)
	if err != nil {
		fail(c, err)
		return
	}
	ids := make([]string, 0, len(games))
	for _, g := range games {
		ids = append(ids, g.ID)
	}
	c.JSON(http.StatusOK, gin.H{"restored": len(games), "ids": ids})
}
