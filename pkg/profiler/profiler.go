// Package profiler collects per-phase timings of a spamid run.
package profiler

import (
	"fmt"
	"io"
	"slices"
	"sync"
	"time"
)

// Phases recorded by the classification pipeline
const (
	PhaseLearn    = "learn"
	PhaseClassify = "classify"
	PhaseWrite    = "write"
)

// Profiler tracks durations per phase. The zero value is not usable; a nil
// *Profiler records nothing.
type Profiler struct {
	mu    sync.Mutex
	times map[string][]time.Duration
}

// New creates a new profiler
func New() *Profiler {
	return &Profiler{
		times: make(map[string][]time.Duration),
	}
}

// Record adds one duration to phase
func (p *Profiler) Record(phase string, d time.Duration) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.times[phase] = append(p.times[phase], d)
	p.mu.Unlock()
}

// Time runs fn and records how long it took under phase
func (p *Profiler) Time(phase string, fn func() error) error {
	start := time.Now()
	err := fn()
	p.Record(phase, time.Since(start))
	return err
}

// Stats contains timing statistics of one phase
type Stats struct {
	Phase   string
	Count   int
	Total   time.Duration
	Average time.Duration
	Min     time.Duration
	Max     time.Duration
	P95     time.Duration
}

// Stats returns the statistics of phase; Count is 0 for an unknown phase
func (p *Profiler) Stats(phase string) Stats {
	if p == nil {
		return Stats{Phase: phase}
	}

	p.mu.Lock()
	sorted := slices.Clone(p.times[phase])
	p.mu.Unlock()

	if len(sorted) == 0 {
		return Stats{Phase: phase}
	}
	slices.Sort(sorted)

	var total time.Duration
	for _, d := range sorted {
		total += d
	}

	return Stats{
		Phase:   phase,
		Count:   len(sorted),
		Total:   total,
		Average: total / time.Duration(len(sorted)),
		Min:     sorted[0],
		Max:     sorted[len(sorted)-1],
		P95:     sorted[(len(sorted)*95)/100],
	}
}

// AllStats returns the statistics of every recorded phase sorted by name
func (p *Profiler) AllStats() []Stats {
	if p == nil {
		return nil
	}

	p.mu.Lock()
	phases := make([]string, 0, len(p.times))
	for phase := range p.times {
		phases = append(phases, phase)
	}
	p.mu.Unlock()

	slices.Sort(phases)

	stats := make([]Stats, 0, len(phases))
	for _, phase := range phases {
		stats = append(stats, p.Stats(phase))
	}
	return stats
}

// WriteReport prints a timing table to w
func (p *Profiler) WriteReport(w io.Writer) {
	stats := p.AllStats()
	if len(stats) == 0 {
		fmt.Fprintln(w, "No timing data available")
		return
	}

	fmt.Fprintf(w, "⏱️  Timing Report\n")
	fmt.Fprintf(w, "══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "%-10s %8s %10s %9s %9s %9s %9s\n", "Phase", "Count", "Total", "Avg", "Min", "Max", "P95")
	fmt.Fprintf(w, "──────────────────────────────────────────────────────────\n")
	for _, s := range stats {
		fmt.Fprintf(w, "%-10s %8d %10s %9s %9s %9s %9s\n",
			s.Phase, s.Count,
			formatDuration(s.Total),
			formatDuration(s.Average),
			formatDuration(s.Min),
			formatDuration(s.Max),
			formatDuration(s.P95),
		)
	}
	fmt.Fprintf(w, "══════════════════════════════════════════════════════════\n")
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Microsecond:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	case d < time.Millisecond:
		return fmt.Sprintf("%.1fμs", float64(d.Nanoseconds())/1e3)
	case d < time.Second:
		return fmt.Sprintf("%.2fms", float64(d.Nanoseconds())/1e6)
	default:
		return fmt.Sprintf("%.3fs", d.Seconds())
	}
}
