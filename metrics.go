package securecore

import "sync/atomic"

// MetricID identifies one engine counter.
type MetricID uint16

const (
	MetricLoginSuccess MetricID = iota
	MetricLoginFailure
	MetricLoginLockout
	MetricMFARequired
	MetricMFASuccess
	MetricMFAFailure
	MetricBackupCodeUsed
	MetricBackupCodeRegenerated
	MetricRefreshSuccess
	MetricRefreshFailure
	MetricLogout
	MetricPermissionDenied
	MetricRateLimitHit
	metricIDCount
)

// MetricNames maps every counter to a stable external name, in MetricID
// order. Exporters key off this table.
var MetricNames = [metricIDCount]string{
	MetricLoginSuccess:          "login_success_total",
	MetricLoginFailure:          "login_failure_total",
	MetricLoginLockout:          "login_lockout_total",
	MetricMFARequired:           "mfa_required_total",
	MetricMFASuccess:            "mfa_success_total",
	MetricMFAFailure:            "mfa_failure_total",
	MetricBackupCodeUsed:        "backup_code_used_total",
	MetricBackupCodeRegenerated: "backup_code_regenerated_total",
	MetricRefreshSuccess:        "refresh_success_total",
	MetricRefreshFailure:        "refresh_failure_total",
	MetricLogout:                "logout_total",
	MetricPermissionDenied:      "permission_denied_total",
	MetricRateLimitHit:          "rate_limit_hit_total",
}

// Metrics is a fixed array of atomic counters. Increments are lock-free;
// Snapshot reads each counter once without stopping writers.
type Metrics struct {
	counters [metricIDCount]atomic.Uint64
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

// Inc adds one to the counter. Safe on a nil receiver.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || id >= metricIDCount {
		return
	}
	m.counters[id].Add(1)
}

// Value returns the counter's current value.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.counters[id].Load()
}

// Snapshot copies every counter.
func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{Counters: make(map[MetricID]uint64, int(metricIDCount))}
	if m == nil {
		return s
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = m.counters[id].Load()
	}
	return s
}
