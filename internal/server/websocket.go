package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/conneroisu/luatutor/internal/search"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Send pings to peer with this period.
	pingPeriod = 50 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

// liveQuery is a frame sent by the browser on every keystroke.
type liveQuery struct {
	Query string `json:"query"`
}

// liveResults is a frame sent back once the query has settled.
type liveResults struct {
	Type string `json:"type"`
	search.Response
}

// handleLiveSearch runs a debounced search per connection. Every query frame
// restarts the debounce timer; only settled queries are searched and sent.
func (s *Server) handleLiveSearch(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.cfg.Server.AllowedOrigins,
	})
	if err != nil {
		s.logger.Warn(r.Context(), err, "WebSocket upgrade failed")
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(maxMessageSize)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	s.metrics.LiveSearches.Inc()
	defer s.metrics.LiveSearches.Dec()

	out := make(chan search.Response, 1)
	live := search.NewLiveSearch(s.index, s.cfg.Search.Debounce, func(resp search.Response) {
		offerLatest(out, resp)
	})
	defer live.Close()

	go s.writeLiveResults(ctx, cancel, conn, out)

	for {
		var msg liveQuery
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway &&
				!errors.Is(err, context.Canceled) {
				s.logger.Warn(ctx, err, "Live search read failed")
			}
			return
		}
		live.Update(msg.Query)
	}
}

// offerLatest puts resp on a one-slot channel, replacing any unsent response.
func offerLatest(out chan search.Response, resp search.Response) {
	for {
		select {
		case out <- resp:
			return
		default:
		}
		select {
		case <-out:
		default:
		}
	}
}

func (s *Server) writeLiveResults(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, out <-chan search.Response) {
	defer cancel()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case resp := <-out:
			s.metrics.ObserveSearch(resp.IsSearching, len(resp.Results))
			wctx, wcancel := context.WithTimeout(ctx, writeWait)
			err := wsjson.Write(wctx, conn, liveResults{Type: "results", Response: resp})
			wcancel()
			if err != nil {
				s.logger.Warn(ctx, err, "Live search write failed")
				return
			}
		case <-ticker.C:
			pctx, pcancel := context.WithTimeout(ctx, writeWait)
			err := conn.Ping(pctx)
			pcancel()
			if err != nil {
				return
			}
		}
	}
}
