// Package live fans committed match changes out to every device watching the
// same match. Each match is a room with its own monotone sequence counter and
// a bounded delta history, so a reconnecting client can ask for "everything
// after seq N" and fall back to a full snapshot when the history no longer
// reaches that far.
package live

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventSnapshot         EventType = "snapshot"
	EventStateChanged     EventType = "state_changed"
	EventIncidentAppended EventType = "incident_appended"
	EventIncidentEdited   EventType = "incident_edited"
	EventIncidentDeleted  EventType = "incident_deleted"
	EventMVPChanged       EventType = "mvp_changed"
)

// Delta is one broadcast unit. Seq is per match and strictly increasing in
// commit order; clients apply deltas idempotently and treat a gap as a signal
// to re-fetch the snapshot.
type Delta struct {
	Seq     uint64      `json:"seq"`
	MatchID int         `json:"match_id"`
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload"`
	At      time.Time   `json:"at"`
}

const subscriberBuffer = 64

// Subscriber is one connected device's queue. The hub never blocks on it: a
// full queue means the device is too slow and gets dropped, to reconnect and
// resync via snapshot.
type Subscriber struct {
	ID      uuid.UUID
	MatchID int
	C       chan Delta

	closed bool // guarded by the hub mutex
}

type room struct {
	seq         uint64
	history     []Delta
	subscribers map[uuid.UUID]*Subscriber
}

type Hub struct {
	mu          sync.RWMutex
	rooms       map[int]*room
	historySize int
	logger      *slog.Logger
}

func NewHub(historySize int, logger *slog.Logger) *Hub {
	if historySize < 1 {
		historySize = 1
	}
	return &Hub{
		rooms:       make(map[int]*room),
		historySize: historySize,
		logger:      logger,
	}
}

func (h *Hub) getOrCreateRoom(matchID int) *room {
	rm, ok := h.rooms[matchID]
	if !ok {
		rm = &room{subscribers: make(map[uuid.UUID]*Subscriber)}
		h.rooms[matchID] = rm
	}
	return rm
}

// Publish assigns the next sequence number for the match and enqueues the
// delta to every subscriber of that room, dropping any subscriber whose queue
// is full. Callers invoke it under the match's single-writer lock, right
// after the transaction commits, so sequence order equals commit order.
func (h *Hub) Publish(matchID int, typ EventType, payload interface{}) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	rm := h.getOrCreateRoom(matchID)
	rm.seq++
	delta := Delta{
		Seq:     rm.seq,
		MatchID: matchID,
		Type:    typ,
		Payload: payload,
		At:      time.Now(),
	}

	rm.history = append(rm.history, delta)
	if len(rm.history) > h.historySize {
		rm.history = rm.history[len(rm.history)-h.historySize:]
	}

	for id, sub := range rm.subscribers {
		select {
		case sub.C <- delta:
		default:
			// Slow consumer: cut it loose rather than back-pressure the
			// command path. The client reconnects and resyncs.
			delete(rm.subscribers, id)
			sub.closed = true
			close(sub.C)
			h.logger.Warn("dropping slow live subscriber",
				slog.Int("match_id", matchID),
				slog.String("subscriber_id", id.String()))
		}
	}
	return rm.seq
}

// CurrentSeq returns the last sequence number published for a match (0 if
// nothing was ever published).
func (h *Hub) CurrentSeq(matchID int) uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if rm, ok := h.rooms[matchID]; ok {
		return rm.seq
	}
	return 0
}

// Subscribe joins a match room. When sinceSeq is non-zero and the room's
// history still covers everything after it, the returned replay slice holds
// exactly those deltas and replayOK is true: the caller can skip the full
// snapshot. Otherwise replayOK is false and the caller must send a snapshot
// first.
func (h *Hub) Subscribe(matchID int, sinceSeq uint64) (sub *Subscriber, replay []Delta, replayOK bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rm := h.getOrCreateRoom(matchID)
	sub = &Subscriber{
		ID:      uuid.New(),
		MatchID: matchID,
		C:       make(chan Delta, subscriberBuffer),
	}
	rm.subscribers[sub.ID] = sub

	if sinceSeq == 0 || sinceSeq > rm.seq {
		return sub, nil, false
	}
	if sinceSeq == rm.seq {
		return sub, nil, true
	}
	// History must reach back to sinceSeq+1 without a gap.
	if len(rm.history) == 0 || rm.history[0].Seq > sinceSeq+1 {
		return sub, nil, false
	}
	for _, delta := range rm.history {
		if delta.Seq > sinceSeq {
			replay = append(replay, delta)
		}
	}
	return sub, replay, true
}

// Unsubscribe removes a subscriber; safe to call after the hub already
// dropped it.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rm, ok := h.rooms[sub.MatchID]
	if !ok {
		return
	}
	if _, present := rm.subscribers[sub.ID]; !present {
		return
	}
	delete(rm.subscribers, sub.ID)
	if !sub.closed {
		sub.closed = true
		close(sub.C)
	}
}

// CloseRoom disconnects every subscriber of a match and forgets its history.
// Called once a match is finalized and its last delta has gone out.
func (h *Hub) CloseRoom(matchID int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rm, ok := h.rooms[matchID]
	if !ok {
		return
	}
	for id, sub := range rm.subscribers {
		delete(rm.subscribers, id)
		if !sub.closed {
			sub.closed = true
			close(sub.C)
		}
	}
	delete(h.rooms, matchID)
}
