package anilist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kiliankoe/animebingo/internal/game"
)

const DefaultURL = "https://graphql.anilist.co"

const PerPage = 18

const searchQuery = `
query ($page: Int, $perPage: Int, $search: String, $genre: String) {
  Page(page: $page, perPage: $perPage) {
    pageInfo { hasNextPage }
    media(search: $search, type: ANIME, sort: POPULARITY_DESC, isAdult: false, genre: $genre) {
      id, title { romaji }, coverImage { extraLarge }, studios(isMain: true) { nodes { name } },
      seasonYear, format, episodes, genres, averageScore
    }
  }
}`

const userListQuery = `
query ($userName: String) {
  MediaListCollection(userName: $userName, type: ANIME) {
    lists { name, entries { mediaId, status } }
  }
}`

type Status string

const (
	StatusCurrent   Status = "CURRENT"
	StatusCompleted Status = "COMPLETED"
	StatusPlanning  Status = "PLANNING"
	StatusPaused    Status = "PAUSED"
	StatusDropped   Status = "DROPPED"
)

// HiddenStatuses are the list statuses the "hide seen" filter removes.
var HiddenStatuses = []Status{StatusCompleted, StatusCurrent, StatusDropped}

var knownStatuses = []Status{StatusCurrent, StatusCompleted, StatusPlanning, StatusPaused, StatusDropped}

var ErrUpstream = errors.New("anilist request failed")

type Client struct {
	BaseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// New builds a client allowing perMinute requests, with a small burst for the paired
// search and list lookups.
func New(baseURL string, perMinute int) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if perMinute <= 0 {
		perMinute = 90
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 5),
	}
}

type SearchParams struct {
	Query string
	Genre string
	Page  int
}

type SearchResult struct {
	HasNextPage bool             `json:"hasNextPage"`
	Media       []game.AnimeData `json:"media"`
}

type gqlError struct {
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, query string, vars map[string]any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	b, _ := json.Marshal(map[string]any{"query": query, "variables": vars})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	var env struct {
		Data   json.RawMessage `json:"data"`
		Errors []gqlError      `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%w: status %d: %v", ErrUpstream, resp.StatusCode, err)
	}
	if resp.StatusCode/100 != 2 || len(env.Errors) > 0 {
		msg := ""
		if len(env.Errors) > 0 {
			msg = env.Errors[0].Message
		}
		return fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, msg)
	}
	return json.Unmarshal(env.Data, out)
}

func (c *Client) Search(ctx context.Context, p SearchParams) (SearchResult, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	vars := map[string]any{"page": p.Page, "perPage": PerPage}
	if q := strings.TrimSpace(p.Query); q != "" {
		vars["search"] = q
	}
	if p.Genre != "" {
		vars["genre"] = p.Genre
	}
	var out struct {
		Page struct {
			PageInfo struct {
				HasNextPage bool `json:"hasNextPage"`
			} `json:"pageInfo"`
			Media []game.AnimeData `json:"media"`
		} `json:"Page"`
	}
	if err := c.do(ctx, searchQuery, vars, &out); err != nil {
		return SearchResult{}, err
	}
	return SearchResult{HasNextPage: out.Page.PageInfo.HasNextPage, Media: out.Page.Media}, nil
}

// UserList maps media id to the user's list status.
func (c *Client) UserList(ctx context.Context, userName string) (map[int]Status, error) {
	var out struct {
		MediaListCollection struct {
			Lists []struct {
				Name    string `json:"name"`
				Entries []struct {
					MediaID int    `json:"mediaId"`
					Status  Status `json:"status"`
				} `json:"entries"`
			} `json:"lists"`
		} `json:"MediaListCollection"`
	}
	if err := c.do(ctx, userListQuery, map[string]any{"userName": userName}, &out); err != nil {
		return nil, err
	}
	statuses := make(map[int]Status)
	for _, l := range out.MediaListCollection.Lists {
		for _, e := range l.Entries {
			statuses[e.MediaID] = e.Status
		}
	}
	return statuses, nil
}

// Annotated is a search hit with the viewer's list status, if any.
type Annotated struct {
	game.AnimeData
	UserStatus Status `json:"userStatus,omitempty"`
}

// Filter attaches list statuses to media and drops titles whose status is in hide.
func Filter(media []game.AnimeData, statuses map[int]Status, hide []Status) []Annotated {
	out := make([]Annotated, 0, len(media))
	for _, m := range media {
		st := statuses[m.ID]
		if st != "" && slices.Contains(hide, st) {
			continue
		}
		out = append(out, Annotated{AnimeData: m, UserStatus: st})
	}
	return out
}

// ParseHide reads the hide query value: "true" or "1" hides every status in
// HiddenStatuses, anything else is a comma separated list of statuses. Unknown names
// are an error.
func ParseHide(v string) ([]Status, error) {
	switch strings.TrimSpace(v) {
	case "", "false", "0":
		return nil, nil
	case "true", "1":
		return HiddenStatuses, nil
	}
	var out []Status
	for _, part := range strings.Split(v, ",") {
		st := Status(strings.ToUpper(strings.TrimSpace(part)))
		if st == "" {
			continue
		}
		if !slices.Contains(knownStatuses, st) {
			return nil, fmt.Errorf("unknown list status %q", part)
		}
		out = append(out, st)
	}
	return out, nil
}
