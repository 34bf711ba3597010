package authgate

import "sync/atomic"

// MetricID defines a public type used by authgate APIs.
//
// MetricID values index the fixed counter table; they are stable across a
// process lifetime and safe to export by name.
type MetricID uint16

const (
	// MetricSignInSuccess is an exported constant or variable used by the auth service.
	MetricSignInSuccess MetricID = iota
	// MetricSignInFailure is an exported constant or variable used by the auth service.
	MetricSignInFailure
	// MetricSignInBanned is an exported constant or variable used by the auth service.
	MetricSignInBanned
	// MetricSignUp is an exported constant or variable used by the auth service.
	MetricSignUp
	// MetricMagicLinkRequested is an exported constant or variable used by the auth service.
	MetricMagicLinkRequested
	// MetricPasswordResetRequested is an exported constant or variable used by the auth service.
	MetricPasswordResetRequested
	// MetricMFARequired is an exported constant or variable used by the auth service.
	MetricMFARequired
	// MetricMFASuccess is an exported constant or variable used by the auth service.
	MetricMFASuccess
	// MetricMFAFailure is an exported constant or variable used by the auth service.
	MetricMFAFailure
	// MetricMFAUpgradeRequired is an exported constant or variable used by the auth service.
	MetricMFAUpgradeRequired
	// MetricAdvisoryDegraded is an exported constant or variable used by the auth service.
	MetricAdvisoryDegraded
	// MetricSessionChanged is an exported constant or variable used by the auth service.
	MetricSessionChanged
	// MetricSignOut is an exported constant or variable used by the auth service.
	MetricSignOut
	metricIDCount
)

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics defines a public type used by authgate APIs.
//
// Metrics is a fixed table of lock-free counters. A nil or disabled
// Metrics accepts increments and discards them.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// MetricsSnapshot defines a public type used by authgate APIs.
//
// MetricsSnapshot is a point-in-time copy of every counter.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// NewMetrics describes the newmetrics operation and its observable behavior.
//
// NewMetrics never fails; a disabled config yields a Metrics that discards
// increments.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled: cfg.Enabled,
	}
}

// Enabled reports whether increments are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc describes the inc operation and its observable behavior.
//
// Inc is lock-free and safe for concurrent use.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Value describes the value operation and its observable behavior.
//
// Value reads one counter without blocking writers.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot describes the snapshot operation and its observable behavior.
//
// Snapshot copies every counter; the copy is not atomic across counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		Counters: make(map[MetricID]uint64, int(metricIDCount)),
	}
	if m == nil {
		return snap
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		snap.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}
	return snap
}
