package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/kiliankoe/animebingo/internal/anilist"
)

type AniListHandler struct {
	client *anilist.Client
}

func NewAniListHandler(client *anilist.Client) *AniListHandler {
	return &AniListHandler{client: client}
}

type SearchResponse struct {
	HasNextPage bool                `json:"hasNextPage"`
	Media       []anilist.Annotated `json:"media"`
}

// Search proxies a catalog search. With user set, hits carry that user's list status
// and hide drops the statuses it names (hide=COMPLETED,DROPPED), or all seen ones for
// hide=true.
func (h *AniListHandler) Search(c *gin.Context) {
	hide, err := anilist.ParseHide(c.Query("hide"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	res, err := h.client.Search(c.Request.Context(), anilist.SearchParams{
		Query: c.Query("q"),
		Genre: c.Query("genre"),
		Page:  page,
	})
	if err != nil {
		fail(c, err)
		return
	}

	var statuses map[int]anilist.Status
	if user := c.Query("user"); user != "" {
		statuses, err = h.client.UserList(c.Request.Context(), user)
		if err != nil {
			// a private or missing list should not break the search
			log.Warn().Err(err).Str("user", user).Msg("anilist user list")
			statuses = nil
		}
	}
	c.JSON(http.StatusOK, SearchResponse{
		HasNextPage: res.HasNextPage,
		Media:       anilist.Filter(res.Media, statuses, hide),
	})
}
