package mqtt

// Topic layout for the upstream channel. Everything the daemon publishes
// lives under the sprig/ prefix; per-site isolation happens at the broker.
//
//	sprig/system/status      retained LWT: online/offline
//	sprig/core/heartbeat     periodic liveness beacon
//	sprig/core/snapshot      retained current-state snapshot
//	sprig/core/tranche       batched event deliveries
type Topics struct {
	prefix string
}

// NewTopics creates topic builders under the given prefix ("sprig" when
// empty).
func NewTopics(prefix string) Topics {
	if prefix == "" {
		prefix = "sprig"
	}
	return Topics{prefix: prefix}
}

// Status returns the retained online/offline status topic.
func (t Topics) Status() string { return t.prefix + "/system/status" }

// Heartbeat returns the liveness beacon topic.
func (t Topics) Heartbeat() string { return t.prefix + "/core/heartbeat" }

// Snapshot returns the retained state snapshot topic.
func (t Topics) Snapshot() string { return t.prefix + "/core/snapshot" }

// Tranche returns the batched event delivery topic.
func (t Topics) Tranche() string { return t.prefix + "/core/tranche" }
