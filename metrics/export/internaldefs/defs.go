package internaldefs

import (
	"github.com/MrEthical07/lendconsole"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   lendconsole.MetricID
	Name string
	Help string
}

// HistogramDef names one exported histogram.
type HistogramDef struct {
	ID   lendconsole.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter for audit events dropped on a full buffer.
const (
	AuditDroppedName = "lendconsole_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

var CounterDefs = []CounterDef{
	{ID: lendconsole.MetricLoginSuccess, Name: "lendconsole_login_success_total", Help: "Successful logins."},
	{ID: lendconsole.MetricLoginFailure, Name: "lendconsole_login_failure_total", Help: "Rejected or unpersisted logins."},
	{ID: lendconsole.MetricLoginIncomplete, Name: "lendconsole_login_incomplete_total", Help: "Login responses missing token, username or role."},
	{ID: lendconsole.MetricLogout, Name: "lendconsole_logout_total", Help: "Explicit logouts."},
	{ID: lendconsole.MetricForcedLogout, Name: "lendconsole_forced_logout_total", Help: "Logouts forced by a 401 from the API."},
	{ID: lendconsole.MetricSessionRestored, Name: "lendconsole_session_restored_total", Help: "Sessions restored from the store."},
	{ID: lendconsole.MetricSessionExpired, Name: "lendconsole_session_expired_total", Help: "Stored sessions discarded as expired."},
	{ID: lendconsole.MetricSessionCorrupt, Name: "lendconsole_session_corrupt_total", Help: "Stored sessions discarded as unreadable."},
	{ID: lendconsole.MetricAccessDenied, Name: "lendconsole_access_denied_total", Help: "API calls answered with 403."},
	{ID: lendconsole.MetricRequestSuccess, Name: "lendconsole_request_success_total", Help: "API calls answered below 400."},
	{ID: lendconsole.MetricRequestFailure, Name: "lendconsole_request_failure_total", Help: "API calls failed in transport or answered 400 and above."},
}

var HistogramDefs = []HistogramDef{
	{ID: lendconsole.MetricRequestLatency, Name: "lendconsole_request_latency_seconds", Help: "API round trip latency."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds. The last
// bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed eight-bucket array.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
