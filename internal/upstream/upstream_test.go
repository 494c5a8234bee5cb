package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/spriggler/sprig-core/internal/event"
)

func makeEvent(msg string) event.Event {
	return event.New(event.ComponentSystem, "sprigd", event.LevelInfo, msg, nil)
}

func TestQueueDropsOldestWhenFull(t *testing.T) {
	q := NewQueue(3)
	for _, msg := range []string{"a", "b", "c", "d", "e"} {
		q.Push(makeEvent(msg))
	}

	if q.Len() != 3 {
		t.Fatalf("Len = %d, want 3", q.Len())
	}
	if q.Dropped() != 2 {
		t.Errorf("Dropped = %d, want 2", q.Dropped())
	}

	events := q.Drain(10)
	if len(events) != 3 {
		t.Fatalf("drained %d, want 3", len(events))
	}
	if events[0].Message != "c" || events[2].Message != "e" {
		t.Errorf("kept wrong events: %s..%s, want c..e", events[0].Message, events[2].Message)
	}
}

func TestQueueDrainRespectsMax(t *testing.T) {
	q := NewQueue(10)
	for _, msg := range []string{"a", "b", "c"} {
		q.Push(makeEvent(msg))
	}

	first := q.Drain(2)
	if len(first) != 2 || first[0].Message != "a" {
		t.Fatalf("first drain = %v", first)
	}
	rest := q.Drain(10)
	if len(rest) != 1 || rest[0].Message != "c" {
		t.Fatalf("second drain = %v", rest)
	}
}

func TestQueueRequeuePreservesOrder(t *testing.T) {
	q := NewQueue(10)
	for _, msg := range []string{"a", "b", "c"} {
		q.Push(makeEvent(msg))
	}

	batch := q.Drain(2)
	q.Requeue(batch)

	events := q.Drain(10)
	if len(events) != 3 {
		t.Fatalf("drained %d, want 3", len(events))
	}
	for i, want := range []string{"a", "b", "c"} {
		if events[i].Message != want {
			t.Errorf("events[%d] = %s, want %s", i, events[i].Message, want)
		}
	}
}

func TestQueueRequeueDropsOldestOverCapacity(t *testing.T) {
	q := NewQueue(2)
	q.Push(makeEvent("c"))
	q.Requeue([]event.Event{makeEvent("a"), makeEvent("b")})

	events := q.Drain(10)
	if len(events) != 2 {
		t.Fatalf("drained %d, want 2", len(events))
	}
	if events[0].Message != "b" || events[1].Message != "c" {
		t.Errorf("kept %s,%s, want b,c", events[0].Message, events[1].Message)
	}
	if q.Dropped() != 1 {
		t.Errorf("Dropped = %d, want 1", q.Dropped())
	}
}

type mockPublisher struct {
	mu        sync.Mutex
	connected bool
	fail      bool
	published map[string][][]byte
	retained  map[string][][]byte
}

func newMockPublisher() *mockPublisher {
	return &mockPublisher{
		connected: true,
		published: make(map[string][][]byte),
		retained:  make(map[string][][]byte),
	}
}

func (m *mockPublisher) Publish(topic string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("broker unreachable")
	}
	m.published[topic] = append(m.published[topic], payload)
	return nil
}

func (m *mockPublisher) PublishRetained(topic string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("broker unreachable")
	}
	m.retained[topic] = append(m.retained[topic], payload)
	return nil
}

func (m *mockPublisher) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *mockPublisher) trancheCount(topic string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.published[topic])
}

func testSyncerConfig() Config {
	return Config{
		SnapshotTopic:    "sprig/core/snapshot",
		TrancheTopic:     "sprig/core/tranche",
		SnapshotInterval: 10 * time.Millisecond,
		TrancheInterval:  10 * time.Millisecond,
		TrancheMaxEvents: 100,
	}
}

func TestSyncerPublishesSnapshotAndTranche(t *testing.T) {
	pub := newMockPublisher()
	q := NewQueue(100)
	q.Push(makeEvent("boot"))

	s := NewSyncer(pub, q, func() any {
		return map[string]any{"status": "running"}
	}, testSyncerConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	deadline := time.After(time.Second)
	for {
		pub.mu.Lock()
		snaps := len(pub.retained["sprig/core/snapshot"])
		pub.mu.Unlock()
		if snaps > 0 && pub.trancheCount("sprig/core/tranche") > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("snapshot or tranche never published")
		case <-time.After(time.Millisecond):
		}
	}

	cancel()
	<-done

	pub.mu.Lock()
	payload := pub.published["sprig/core/tranche"][0]
	pub.mu.Unlock()
	var tr Tranche
	if err := json.Unmarshal(payload, &tr); err != nil {
		t.Fatalf("tranche payload: %v", err)
	}
	if len(tr.Events) != 1 || tr.Events[0].Message != "boot" {
		t.Errorf("tranche events = %+v", tr.Events)
	}
	if q.Len() != 0 {
		t.Errorf("queue should be drained, len = %d", q.Len())
	}
}

func TestSyncerRequeuesOnPublishFailure(t *testing.T) {
	pub := newMockPublisher()
	pub.fail = true
	q := NewQueue(100)
	q.Push(makeEvent("boot"))

	s := NewSyncer(pub, q, func() any { return nil }, testSyncerConfig(), nil)
	s.publishTranche()

	if q.Len() != 1 {
		t.Errorf("failed tranche should be requeued, len = %d", q.Len())
	}
}

func TestSyncerHoldsWhileDisconnected(t *testing.T) {
	pub := newMockPublisher()
	pub.connected = false
	q := NewQueue(100)
	q.Push(makeEvent("boot"))

	s := NewSyncer(pub, q, func() any { return nil }, testSyncerConfig(), nil)
	s.publishTranche()
	s.publishSnapshot()

	if q.Len() != 1 {
		t.Errorf("events must stay queued while disconnected, len = %d", q.Len())
	}
	if pub.trancheCount("sprig/core/tranche") != 0 {
		t.Error("nothing should publish while disconnected")
	}
}
