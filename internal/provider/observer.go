package provider

import "time"

// Observer receives non-fatal events during a streaming pass. Both
// callbacks are optional; a nil Observer or nil callback is ignored.
//
// Skip is the only channel through which dropped records are reported:
// a record-level failure never becomes an error, but it is never
// silent either.
type Observer struct {
	// Progress is invoked with the running record count, throttled to
	// once per progressEvery records or progressInterval elapsed,
	// whichever threshold is reached first.
	Progress func(count int)

	// Skip is invoked once per dropped record with the record's
	// identifier (or positional index when no identifier could be
	// extracted) and a human-readable reason.
	Skip func(id, reason string)
}

const (
	progressEvery    = 250
	progressInterval = 2 * time.Second
)

func (o *Observer) skip(id, reason string) {
	if o != nil && o.Skip != nil {
		o.Skip(id, reason)
	}
}

// progressTracker throttles Progress callbacks.
type progressTracker struct {
	obs   *Observer
	count int
	since int
	last  time.Time
}

func newProgressTracker(obs *Observer) *progressTracker {
	return &progressTracker{obs: obs, last: time.Now()}
}

// tick records one processed record and fires Progress when either
// threshold is crossed.
func (p *progressTracker) tick() {
	p.count++
	p.since++
	if p.obs == nil || p.obs.Progress == nil {
		return
	}
	if p.since >= progressEvery || time.Since(p.last) >= progressInterval {
		p.obs.Progress(p.count)
		p.since = 0
		p.last = time.Now()
	}
}
