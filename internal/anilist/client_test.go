package anilist

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiliankoe/animebingo/internal/game"
)

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

func TestSearch(t *testing.T) {
	var got gqlRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"Page":{"pageInfo":{"hasNextPage":true},"media":[
			{"id":1,"title":{"romaji":"Frieren"},"coverImage":{"extraLarge":"f.jpg"},"studios":{"nodes":[{"name":"Madhouse"}]},"seasonYear":2023,"format":"TV","episodes":28,"genres":["Fantasy"],"averageScore":90}
		]}}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, 600)
	res, err := c.Search(context.Background(), SearchParams{Query: " frieren ", Genre: "Fantasy", Page: 2})
	require.NoError(t, err)

	assert.True(t, res.HasNextPage)
	require.Len(t, res.Media, 1)
	m := res.Media[0]
	assert.Equal(t, "Frieren", m.Title.Romaji)
	assert.Equal(t, "Madhouse", m.Studios.Nodes[0].Name)
	require.NotNil(t, m.AverageScore)
	assert.Equal(t, 90, *m.AverageScore)

	assert.Contains(t, got.Query, "POPULARITY_DESC")
	assert.Equal(t, "frieren", got.Variables["search"])
	assert.Equal(t, "Fantasy", got.Variables["genre"])
	assert.Equal(t, float64(2), got.Variables["page"])
	assert.Equal(t, float64(PerPage), got.Variables["perPage"])
}

func TestUserListAndFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"MediaListCollection":{"lists":[
			{"name":"Watching","entries":[{"mediaId":1,"status":"CURRENT"}]},
			{"name":"Planning","entries":[{"mediaId":2,"status":"PLANNING"},{"mediaId":3,"status":"DROPPED"}]}
		]}}}`))
	}))
	defer srv.Close()

	statuses, err := New(srv.URL, 600).UserList(context.Background(), "someone")
	require.NoError(t, err)
	assert.Equal(t, map[int]Status{1: StatusCurrent, 2: StatusPlanning, 3: StatusDropped}, statuses)

	media := []game.AnimeData{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}}
	all := Filter(media, statuses, nil)
	require.Len(t, all, 4)
	assert.Equal(t, StatusCurrent, all[0].UserStatus)
	assert.Empty(t, all[3].UserStatus)

	visible := Filter(media, statuses, HiddenStatuses)
	require.Len(t, visible, 2)
	assert.Equal(t, 2, visible[0].ID)
	assert.Equal(t, 4, visible[1].ID)
}

func TestFilterBySelectedStatuses(t *testing.T) {
	statuses := map[int]Status{1: StatusCurrent, 2: StatusCompleted, 3: StatusDropped}
	media := []game.AnimeData{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}}

	hide, err := ParseHide("completed, DROPPED")
	require.NoError(t, err)
	assert.Equal(t, []Status{StatusCompleted, StatusDropped}, hide)

	visible := Filter(media, statuses, hide)
	require.Len(t, visible, 2)
	assert.Equal(t, 1, visible[0].ID)
	assert.Equal(t, 4, visible[1].ID)

	all, err := ParseHide("true")
	require.NoError(t, err)
	assert.Equal(t, HiddenStatuses, all)

	none, err := ParseHide("")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = ParseHide("WATCHED")
	assert.Error(t, err)
}

func TestUpstreamErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"data":null,"errors":[{"message":"User not found"}]}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, 600).UserList(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUpstream))
	assert.Contains(t, err.Error(), "User not found")
}
