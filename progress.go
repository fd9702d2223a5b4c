package crosspack

import (
	"sync"
	"time"

	"github.com/n0rad/go-erlog/logs"
)

// Stopwatch measures wall-clock time of labelled steps and logs each duration
// when the step stops. It has no effect on the pipeline outcome.
type Stopwatch struct {
	mu     sync.Mutex
	starts map[string]time.Time
	now    func() time.Time
	report func(label string, elapsed time.Duration)
}

func NewStopwatch() *Stopwatch {
	return newStopwatch(time.Now, logDuration)
}

func newStopwatch(now func() time.Time, report func(string, time.Duration)) *Stopwatch {
	return &Stopwatch{
		starts: make(map[string]time.Time),
		now:    now,
		report: report,
	}
}

func (s *Stopwatch) Start(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starts[label] = s.now()
}

// Stop reports and returns the time elapsed since Start(label).
// Stopping a label that was never started returns 0 and reports nothing.
func (s *Stopwatch) Stop(label string) time.Duration {
	s.mu.Lock()
	start, ok := s.starts[label]
	delete(s.starts, label)
	s.mu.Unlock()

	if !ok {
		logs.WithField("label", label).Warn("Stopwatch stopped without being started")
		return 0
	}
	elapsed := s.now().Sub(start)
	s.report(label, elapsed)
	return elapsed
}

func logDuration(label string, elapsed time.Duration) {
	logs.WithField("duration", elapsed.Round(time.Millisecond).String()).Info(label + " done")
}
