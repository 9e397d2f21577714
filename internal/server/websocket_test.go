package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/luatutor/internal/search"
)

type liveFrame struct {
	Type        string `json:"type"`
	Query       string `json:"query"`
	IsSearching bool   `json:"is_searching"`
	Results     []struct {
		SubsectionID string `json:"subsection_id"`
	} `json:"results"`
}

func dialLive(t *testing.T, ts *httptest.Server, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/search"
	return websocket.Dial(ctx, wsURL, &websocket.DialOptions{HTTPHeader: header})
}

func TestLiveSearchDebouncesQueries(t *testing.T) {
	server := setupTestServer(t)
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	conn, _, err := dialLive(t, ts, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	for _, q := range []string{"l", "lo", "loc", "loca", "local"} {
		require.NoError(t, wsjson.Write(ctx, conn, map[string]string{"query": q}))
	}

	var frame liveFrame
	require.NoError(t, wsjson.Read(ctx, conn, &frame))
	assert.Equal(t, "results", frame.Type)
	assert.Equal(t, "local", frame.Query, "only the settled query is searched")
	assert.True(t, frame.IsSearching)
	assert.NotEmpty(t, frame.Results)

	require.NoError(t, wsjson.Write(ctx, conn, map[string]string{"query": "   "}))
	require.NoError(t, wsjson.Read(ctx, conn, &frame))
	assert.False(t, frame.IsSearching)
	assert.Empty(t, frame.Results)
}

func TestLiveSearchNoMatches(t *testing.T) {
	server := setupTestServer(t)
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	conn, _, err := dialLive(t, ts, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	require.NoError(t, wsjson.Write(ctx, conn, map[string]string{"query": "zzzz-not-here"}))
	var frame liveFrame
	require.NoError(t, wsjson.Read(ctx, conn, &frame))
	assert.True(t, frame.IsSearching)
	assert.Empty(t, frame.Results)
}

func TestLiveSearchRejectsForeignOrigin(t *testing.T) {
	server := setupTestServer(t)
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	conn, resp, err := dialLive(t, ts, http.Header{"Origin": []string{"http://evil.example.com"}})
	if conn != nil {
		conn.CloseNow()
	}
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestLiveSearchAcceptsConfiguredOrigin(t *testing.T) {
	server := setupTestServer(t)
	ts := httptest.NewServer(server.Handler())
	defer ts.Close()

	conn, _, err := dialLive(t, ts, http.Header{"Origin": []string{"http://localhost:3000"}})
	require.NoError(t, err)
	conn.Close(websocket.StatusNormalClosure, "")
}

func TestOfferLatestKeepsNewest(t *testing.T) {
	server := setupTestServer(t)
	out := make(chan search.Response, 1)
	offerLatest(out, server.index.Search("a"))
	offerLatest(out, server.index.Search("b"))
	assert.Equal(t, "b", (<-out).Query)
}
