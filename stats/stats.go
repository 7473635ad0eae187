package stats

import (
	"sync/atomic"
	"time"
)

// Stats holds process-wide service statistics with atomic counters.
// A single instance is created at startup and passed to everything that
// records into it; counters reset only on process restart.
type Stats struct {
	// Server info
	StartTime time.Time

	// Upstream call counters
	RequestsMade atomic.Int64
	CacheHits    atomic.Int64
	Errors       atomic.Int64

	// Sub-call failures the aggregator downgraded to partial results
	PartialFailures atomic.Int64

	// Consumer-facing request counters
	TotalRequests     atomic.Int64
	AuthRequests      atomic.Int64
	EventRequests     atomic.Int64
	BetRequests       atomic.Int64
	DashboardRequests atomic.Int64
	OtherRequests     atomic.Int64

	// Response status codes
	Status2xx atomic.Int64
	Status4xx atomic.Int64
	Status5xx atomic.Int64

	// Upstream response time tracking (microseconds)
	totalResponseTime atomic.Int64
	responseCount     atomic.Int64

	// Backend health as observed by the last health check
	backendHealthy atomic.Bool
}

// New returns a fresh Stats instance. The backend is assumed healthy until a
// health check says otherwise.
func New() *Stats {
	s := &Stats{StartTime: time.Now()}
	s.backendHealthy.Store(true)
	return s
}

// RecordRequest records a consumer-facing request by route group.
func (s *Stats) RecordRequest(group string) {
	s.TotalRequests.Add(1)
	switch group {
	case "auth":
		s.AuthRequests.Add(1)
	case "events":
		s.EventRequests.Add(1)
	case "bets":
		s.BetRequests.Add(1)
	case "dashboard":
		s.DashboardRequests.Add(1)
	default:
		s.OtherRequests.Add(1)
	}
}

// RecordUpstreamCall records an attempted upstream request.
func (s *Stats) RecordUpstreamCall() {
	s.RequestsMade.Add(1)
}

// RecordCacheHit records a request served from cache without contacting upstream.
func (s *Stats) RecordCacheHit() {
	s.CacheHits.Add(1)
}

// RecordError records a failed upstream call.
func (s *Stats) RecordError() {
	s.Errors.Add(1)
}

// RecordPartialFailure records a non-critical sub-call failure that was
// downgraded to a partial aggregate result.
func (s *Stats) RecordPartialFailure() {
	s.PartialFailures.Add(1)
}

// RecordUpstreamLatency records the duration of a completed upstream call.
func (s *Stats) RecordUpstreamLatency(d time.Duration) {
	s.totalResponseTime.Add(d.Microseconds())
	s.responseCount.Add(1)
}

// RecordStatusCode records a consumer-facing response status code.
func (s *Stats) RecordStatusCode(code int) {
	switch {
	case code >= 200 && code < 300:
		s.Status2xx.Add(1)
	case code >= 400 && code < 500:
		s.Status4xx.Add(1)
	case code >= 500:
		s.Status5xx.Add(1)
	}
}

// SetBackendHealthy records the result of the latest upstream health check.
func (s *Stats) SetBackendHealthy(healthy bool) {
	s.backendHealthy.Store(healthy)
}

// BackendHealthy reports whether the last upstream health check succeeded.
func (s *Stats) BackendHealthy() bool {
	return s.backendHealthy.Load()
}

// Uptime returns the time since the stats instance was created.
func (s *Stats) Uptime() time.Duration {
	return time.Since(s.StartTime)
}

// CacheHitRate returns cache hits as a percentage of all upstream-bound calls.
func (s *Stats) CacheHitRate() float64 {
	hits := s.CacheHits.Load()
	total := hits + s.RequestsMade.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}

// AvgUpstreamLatency returns the average upstream response time.
func (s *Stats) AvgUpstreamLatency() time.Duration {
	count := s.responseCount.Load()
	if count == 0 {
		return 0
	}
	return time.Duration(s.totalResponseTime.Load()/count) * time.Microsecond
}

// Snapshot returns a point-in-time view of all stats for the /stats endpoint.
func (s *Stats) Snapshot() map[string]interface{} {
	uptime := s.Uptime()

	return map[string]interface{}{
		"server": map[string]interface{}{
			"start_time":     s.StartTime.Format(time.RFC3339),
			"uptime":         uptime.String(),
			"uptime_seconds": int64(uptime.Seconds()),
		},
		"requests": map[string]interface{}{
			"total":     s.TotalRequests.Load(),
			"auth":      s.AuthRequests.Load(),
			"events":    s.EventRequests.Load(),
			"bets":      s.BetRequests.Load(),
			"dashboard": s.DashboardRequests.Load(),
			"other":     s.OtherRequests.Load(),
		},
		"upstream": map[string]interface{}{
			"requests_made":    s.RequestsMade.Load(),
			"cache_hits":       s.CacheHits.Load(),
			"cache_hit_rate":   s.CacheHitRate(),
			"errors":           s.Errors.Load(),
			"partial_failures": s.PartialFailures.Load(),
			"avg_latency":      s.AvgUpstreamLatency().String(),
			"healthy":          s.BackendHealthy(),
		},
		"responses": map[string]interface{}{
			"2xx": s.Status2xx.Load(),
			"4xx": s.Status4xx.Load(),
			"5xx": s.Status5xx.Load(),
		},
	}
}
