package pipeline

import "sync/atomic"

// Stage names passed to a [Reporter].
const (
	StageResolve = "resolve"
	StageLink    = "link"
)

// Counter tracks a stage's progress. It is safe for concurrent use.
type Counter struct {
	total atomic.Int64
	done  atomic.Int64
}

// Add grows the total by n.
func (c *Counter) Add(n int) { c.total.Add(int64(n)) }

// Tick marks one unit done.
func (c *Counter) Tick() { c.done.Add(1) }

// Total returns the number of known units.
func (c *Counter) Total() int { return int(c.total.Load()) }

// Done returns the number of finished units.
func (c *Counter) Done() int { return int(c.done.Load()) }

// Reporter observes stage progress. The runner calls StageStarted before a
// stage begins ticking c and StageFinished once it returns.
type Reporter interface {
	StageStarted(stage string, c *Counter)
	StageFinished(stage string, c *Counter, err error)
}

// NopReporter ignores progress.
type NopReporter struct{}

func (NopReporter) StageStarted(string, *Counter)         {}
func (NopReporter) StageFinished(string, *Counter, error) {}
