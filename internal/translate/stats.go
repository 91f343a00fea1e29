package translate

import (
	"slices"
	"sync"
	"time"
)

// StatsSnapshot aggregates the latency samples of one backend.
type StatsSnapshot struct {
	Count int     `json:"count"`
	MinMs int64   `json:"min_ms"`
	MaxMs int64   `json:"max_ms"`
	AvgMs float64 `json:"avg_ms"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
	P99Ms float64 `json:"p99_ms"`
}

// maxSamples bounds the window kept per backend.
const maxSamples = 1024

type call struct {
	at time.Time
	ms int64
}

// window is a ring of the most recent calls of one backend.
type window struct {
	calls []call
	next  int
}

func (w *window) add(c call) {
	if len(w.calls) < maxSamples {
		w.calls = append(w.calls, c)
		return
	}
	w.calls[w.next] = c
	w.next = (w.next + 1) % maxSamples
}

// since returns the durations of calls made at or after cutoff.
func (w *window) since(cutoff time.Time) []int64 {
	var out []int64
	for _, c := range w.calls {
		if !c.at.Before(cutoff) {
			out = append(out, c.ms)
		}
	}
	return out
}

// LatencyStats tracks recent call latencies per backend name within a
// rolling time window. A nil *LatencyStats ignores records.
type LatencyStats struct {
	mu       sync.Mutex
	backends map[string]*window
	maxAge   time.Duration
}

func NewLatencyStats(maxAge time.Duration) *LatencyStats {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &LatencyStats{backends: make(map[string]*window), maxAge: maxAge}
}

// Record adds one call of backend that took d.
func (s *LatencyStats) Record(backend string, d time.Duration) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.backends[backend]
	if !ok {
		w = &window{}
		s.backends[backend] = w
	}
	w.add(call{at: time.Now(), ms: max(0, d.Milliseconds())})
}

// Since records the time elapsed from start for backend.
func (s *LatencyStats) Since(backend string, start time.Time) {
	s.Record(backend, time.Since(start))
}

// Backend summarizes the calls of one backend inside the window.
func (s *LatencyStats) Backend(name string) StatsSnapshot {
	if s == nil {
		return StatsSnapshot{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.backends[name]
	if !ok {
		return StatsSnapshot{}
	}
	return summarize(w.since(time.Now().Add(-s.maxAge)))
}

// Snapshot summarizes every backend with at least one call in the window.
func (s *LatencyStats) Snapshot() map[string]StatsSnapshot {
	out := make(map[string]StatsSnapshot)
	if s == nil {
		return out
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-s.maxAge)
	for name, w := range s.backends {
		if snap := summarize(w.since(cutoff)); snap.Count > 0 {
			out[name] = snap
		}
	}
	return out
}

func summarize(ms []int64) StatsSnapshot {
	if len(ms) == 0 {
		return StatsSnapshot{}
	}
	slices.Sort(ms)
	var sum int64
	for _, v := range ms {
		sum += v
	}
	return StatsSnapshot{
		Count: len(ms),
		MinMs: ms[0],
		MaxMs: ms[len(ms)-1],
		AvgMs: float64(sum) / float64(len(ms)),
		P50Ms: quantile(ms, 0.50),
		P95Ms: quantile(ms, 0.95),
		P99Ms: quantile(ms, 0.99),
	}
}

// quantile interpolates linearly between the two closest ranks of sorted.
func quantile(sorted []int64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	i := int(pos)
	if i+1 >= len(sorted) {
		return float64(sorted[len(sorted)-1])
	}
	frac := pos - float64(i)
	return float64(sorted[i]) + frac*float64(sorted[i+1]-sorted[i])
}
