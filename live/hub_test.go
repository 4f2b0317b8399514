package live

import (
	"io"
	"log/slog"
	"testing"
)

func testHub(historySize int) *Hub {
	return NewHub(historySize, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func drain(t *testing.T, sub *Subscriber, n int) []Delta {
	t.Helper()
	deltas := make([]Delta, 0, n)
	for i := 0; i < n; i++ {
		select {
		case delta, ok := <-sub.C:
			if !ok {
				t.Fatalf("subscriber channel closed after %d deltas, want %d", i, n)
			}
			deltas = append(deltas, delta)
		default:
			t.Fatalf("only %d deltas queued, want %d", i, n)
		}
	}
	return deltas
}

func TestPublishAssignsSequentialSeqs(t *testing.T) {
	h := testHub(16)

	sub, _, _ := h.Subscribe(1, 0)
	for i := 0; i < 5; i++ {
		h.Publish(1, EventIncidentAppended, i)
	}

	deltas := drain(t, sub, 5)
	for i, delta := range deltas {
		if delta.Seq != uint64(i+1) {
			t.Errorf("delta %d has seq %d, want %d", i, delta.Seq, i+1)
		}
		if delta.MatchID != 1 {
			t.Errorf("delta %d has match_id %d, want 1", i, delta.MatchID)
		}
	}
	if got := h.CurrentSeq(1); got != 5 {
		t.Errorf("CurrentSeq = %d, want 5", got)
	}
}

func TestSubscribeSinceSeqReplaysTailWithoutGapsOrDuplicates(t *testing.T) {
	h := testHub(16)

	first, _, _ := h.Subscribe(1, 0)
	for i := 1; i <= 5; i++ {
		h.Publish(1, EventIncidentAppended, i)
	}
	drain(t, first, 5)
	h.Unsubscribe(first)

	// Reconnect having seen 1..5; nothing new yet.
	second, replay, ok := h.Subscribe(1, 5)
	if !ok {
		t.Fatal("replay from the current seq should not require a snapshot")
	}
	if len(replay) != 0 {
		t.Fatalf("replay = %d deltas, want 0", len(replay))
	}
	h.Publish(1, EventIncidentAppended, 6)
	got := drain(t, second, 1)
	if got[0].Seq != 6 {
		t.Errorf("next delta seq = %d, want 6", got[0].Seq)
	}
	h.Unsubscribe(second)

	// Reconnect having seen only 1..3: 4..6 come from history.
	third, replay, ok := h.Subscribe(1, 3)
	if !ok {
		t.Fatal("history still covers seq 4..6, snapshot should not be needed")
	}
	if len(replay) != 3 || replay[0].Seq != 4 || replay[2].Seq != 6 {
		t.Fatalf("replay seqs = %v, want [4 5 6]", seqsOf(replay))
	}
	h.Unsubscribe(third)
}

func seqsOf(deltas []Delta) []uint64 {
	seqs := make([]uint64, len(deltas))
	for i, d := range deltas {
		seqs[i] = d.Seq
	}
	return seqs
}

func TestSubscribeFallsBackToSnapshotWhenHistoryTooShort(t *testing.T) {
	h := testHub(2)

	for i := 1; i <= 10; i++ {
		h.Publish(1, EventIncidentAppended, i)
	}

	// History only holds 9..10; seq 5 is gone.
	sub, replay, ok := h.Subscribe(1, 5)
	if ok {
		t.Fatalf("expected snapshot fallback, got replay %v", seqsOf(replay))
	}
	h.Unsubscribe(sub)

	// A seq from the future is equally unserviceable.
	sub, _, ok = h.Subscribe(1, 99)
	if ok {
		t.Fatal("a since_seq ahead of the room must force a snapshot")
	}
	h.Unsubscribe(sub)
}

func TestNoCrossMatchFanOut(t *testing.T) {
	h := testHub(16)

	subA, _, _ := h.Subscribe(1, 0)
	subB, _, _ := h.Subscribe(2, 0)

	h.Publish(1, EventStateChanged, "a")
	h.Publish(1, EventIncidentAppended, "a")
	h.Publish(2, EventStateChanged, "b")

	drain(t, subA, 2)
	got := drain(t, subB, 1)
	if got[0].MatchID != 2 {
		t.Errorf("subscriber B got a delta for match %d", got[0].MatchID)
	}
	select {
	case delta := <-subB.C:
		t.Errorf("subscriber B received unexpected delta %+v", delta)
	default:
	}

	// Sequences are per match, not global.
	if got[0].Seq != 1 {
		t.Errorf("match 2 first seq = %d, want 1", got[0].Seq)
	}
}

func TestSlowSubscriberIsDroppedNotBlocked(t *testing.T) {
	h := testHub(subscriberBuffer * 4)

	slow, _, _ := h.Subscribe(1, 0)
	for i := 0; i < subscriberBuffer+1; i++ {
		h.Publish(1, EventIncidentAppended, i)
	}

	// The overflowing publish must have closed the queue.
	deltas := drain(t, slow, subscriberBuffer)
	if deltas[len(deltas)-1].Seq != subscriberBuffer {
		t.Errorf("last queued seq = %d, want %d", deltas[len(deltas)-1].Seq, subscriberBuffer)
	}
	if _, ok := <-slow.C; ok {
		t.Fatal("expected closed channel after the hub dropped the slow subscriber")
	}

	// Unsubscribe after the drop must not panic or double-close.
	h.Unsubscribe(slow)

	// The room keeps working for new subscribers.
	fresh, replay, ok := h.Subscribe(1, uint64(subscriberBuffer))
	if !ok || len(replay) != 1 {
		t.Fatalf("replay after drop = (%v, %v), want 1 delta", seqsOf(replay), ok)
	}
	h.Unsubscribe(fresh)
}

func TestCloseRoomDisconnectsAndForgets(t *testing.T) {
	h := testHub(16)

	sub, _, _ := h.Subscribe(1, 0)
	h.Publish(1, EventStateChanged, "final")
	h.CloseRoom(1)

	drain(t, sub, 1)
	if _, ok := <-sub.C; ok {
		t.Fatal("expected closed channel after CloseRoom")
	}
	if got := h.CurrentSeq(1); got != 0 {
		t.Errorf("CurrentSeq after CloseRoom = %d, want 0 (history forgotten)", got)
	}
}
