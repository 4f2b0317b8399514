package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"github.com/ligamaster/livematch/live"
	"github.com/ligamaster/livematch/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The stream is public read-only data; origin checks would only break
	// the embedding portals.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type LiveHandler struct {
	hub          *live.Hub
	matchService services.MatchService
	logger       *slog.Logger
}

func NewLiveHandler(hub *live.Hub, matchService services.MatchService, logger *slog.Logger) *LiveHandler {
	return &LiveHandler{hub: hub, matchService: matchService, logger: logger}
}

// ServeMatchStream upgrades to a WebSocket and streams the match's deltas.
// A client that reconnects passes ?since_seq=N; when the hub still holds the
// gap it replays the missed deltas, otherwise the client gets a fresh
// snapshot to rebuild from.
func (h *LiveHandler) ServeMatchStream(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var sinceSeq uint64
	if raw := r.URL.Query().Get("since_seq"); raw != "" {
		sinceSeq, err = strconv.ParseUint(raw, 10, 64)
		if err != nil {
			badRequestResponse(w, r, err)
			return
		}
	}

	// Subscribe before resolving the snapshot so every delta published from
	// here on is either reflected in the snapshot (seq at or below it) or
	// waiting in the subscriber channel. The other order drops whatever lands
	// in between.
	sub, replay, replayOK := h.hub.Subscribe(matchID, sinceSeq)

	// Resolve the snapshot before upgrading so a missing match is still a
	// plain 404.
	snapshot, err := h.matchService.GetSnapshot(r.Context(), matchID)
	if err != nil {
		h.hub.Unsubscribe(sub)
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		h.hub.Unsubscribe(sub)
		h.logger.Error("websocket upgrade failed",
			slog.Int("match_id", matchID), slog.Any("error", err))
		return
	}

	var initial []live.Delta
	if sinceSeq > 0 && replayOK {
		initial = replay
	} else {
		// Deltas already queued with seq at or below the snapshot's are
		// contained in it; the client skips them.
		initial = []live.Delta{{
			Seq:     snapshot.Seq,
			MatchID: matchID,
			Type:    live.EventSnapshot,
			Payload: snapshot,
		}}
	}

	client := live.NewClient(h.hub, sub, conn, h.logger)
	go client.WritePump(initial)
	go client.ReadPump()
}
