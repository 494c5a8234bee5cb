package upstream

import (
	"context"
	"encoding/json"
	"time"

	"github.com/spriggler/sprig-core/internal/event"
)

// Publisher is the transport the syncer publishes through. Implementations
// must be non-blocking from the syncer's point of view beyond ordinary
// network latency; a disconnected transport should fail fast.
type Publisher interface {
	Publish(topic string, payload []byte) error
	PublishRetained(topic string, payload []byte) error
	Connected() bool
}

// Logger is the minimal logging interface the syncer depends on.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// SnapshotFunc produces the current state snapshot to publish. The daemon
// supplies it; the syncer only handles cadence and delivery.
type SnapshotFunc func() any

// Config carries the syncer's cadences, topics and batch bound.
type Config struct {
	SnapshotTopic    string
	TrancheTopic     string
	SnapshotInterval time.Duration
	TrancheInterval  time.Duration
	TrancheMaxEvents int
}

// Tranche is one batch of events shipped upstream.
type Tranche struct {
	SentAt  time.Time     `json:"sent_at"`
	Dropped uint64        `json:"dropped_total"`
	Events  []event.Event `json:"events"`
}

// Syncer periodically publishes a retained state snapshot and drains the
// event queue into tranche batches. Failed tranches are requeued; failed
// snapshots are simply retried next interval since a newer one supersedes
// them anyway.
type Syncer struct {
	publisher Publisher
	queue     *Queue
	snapshot  SnapshotFunc
	cfg       Config
	logger    Logger
}

// NewSyncer creates a Syncer.
func NewSyncer(publisher Publisher, queue *Queue, snapshot SnapshotFunc, cfg Config, logger Logger) *Syncer {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Syncer{
		publisher: publisher,
		queue:     queue,
		snapshot:  snapshot,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run publishes until ctx is cancelled. It never returns an error: the
// upstream channel is best-effort by contract.
func (s *Syncer) Run(ctx context.Context) {
	snapTicker := time.NewTicker(s.cfg.SnapshotInterval)
	defer snapTicker.Stop()
	trancheTicker := time.NewTicker(s.cfg.TrancheInterval)
	defer trancheTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			// One final drain attempt so a clean shutdown ships what it can.
			s.publishTranche()
			return
		case <-snapTicker.C:
			s.publishSnapshot()
		case <-trancheTicker.C:
			s.publishTranche()
		}
	}
}

func (s *Syncer) publishSnapshot() {
	if !s.publisher.Connected() {
		s.logger.Debug("snapshot skipped, transport disconnected")
		return
	}
	payload, err := json.Marshal(s.snapshot())
	if err != nil {
		s.logger.Error("snapshot marshal failed", "error", err)
		return
	}
	if err := s.publisher.PublishRetained(s.cfg.SnapshotTopic, payload); err != nil {
		s.logger.Warn("snapshot publish failed", "error", err)
		return
	}
	s.logger.Debug("snapshot published", "bytes", len(payload))
}

func (s *Syncer) publishTranche() {
	if s.queue.Len() == 0 {
		return
	}
	if !s.publisher.Connected() {
		s.logger.Debug("tranche held, transport disconnected", "queued", s.queue.Len())
		return
	}

	events := s.queue.Drain(s.cfg.TrancheMaxEvents)
	if len(events) == 0 {
		return
	}

	payload, err := json.Marshal(Tranche{
		SentAt:  time.Now().UTC(),
		Dropped: s.queue.Dropped(),
		Events:  events,
	})
	if err != nil {
		s.logger.Error("tranche marshal failed", "error", err)
		s.queue.Requeue(events)
		return
	}

	if err := s.publisher.Publish(s.cfg.TrancheTopic, payload); err != nil {
		s.logger.Warn("tranche publish failed, requeued", "events", len(events), "error", err)
		s.queue.Requeue(events)
		return
	}
	s.logger.Debug("tranche published", "events", len(events))
}
