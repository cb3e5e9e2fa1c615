package calendar

import (
	"log/slog"
	"sync"
	"time"
)

// Calendar is the state container: it owns the current State, serializes
// dispatch and notifies subscribers after every accepted transition.
type Calendar struct {
	mu     sync.Mutex
	state  State
	clock  Clock
	logger *slog.Logger

	subMu  sync.Mutex
	subs   map[int]func(State)
	nextID int

	// Tracking ids with edits applied in memory but not yet persisted.
	dirty map[string]int

	// Sequence of the last accepted edit per tracking id. Starts at 1 so a
	// zero EditMark means "no guard".
	editSeq uint64
	edited  map[string]uint64

	// Dates whose shifts and tracking, plus the day before, are in memory.
	loadedFrom, loadedTo DateKey
}

// EditMark identifies a point in the tracking edit history. Capture one
// before reading storage and pass it with the reloaded data.
type EditMark uint64

type Option func(*Calendar)

func WithClock(clock Clock) Option { return func(c *Calendar) { c.clock = clock } }

func WithLogger(logger *slog.Logger) Option { return func(c *Calendar) { c.logger = logger } }

// WithLoadedRange declares the range initial was loaded for, as by Load.
func WithLoadedRange(from, to DateKey) Option {
	return func(c *Calendar) { c.loadedFrom, c.loadedTo = from, to }
}

// New returns a container holding initial.
func New(initial State, opts ...Option) *Calendar {
	c := &Calendar{
		state:   hydrate(NewState(), initial, nil),
		clock:   time.Now,
		logger:  slog.Default(),
		subs:    map[int]func(State){},
		dirty:   map[string]int{},
		editSeq: 1,
		edited:  map[string]uint64{},
	}
	c.state.ArmedTemplateID = initial.ArmedTemplateID
	c.state.ArmedAbsenceTemplateID = initial.ArmedAbsenceTemplateID
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current state. Treat it as read-only.
func (c *Calendar) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Now returns the container clock's time.
func (c *Calendar) Now() time.Time { return c.clock() }

// Clock returns the container clock.
func (c *Calendar) Clock() Clock { return c.clock }

// Dispatch applies a to the current state. A rejected action leaves the
// state untouched and notifies no one.
func (c *Calendar) Dispatch(a Action) (State, error) {
	_, next, err := c.dispatch(a)
	return next, err
}

// dispatch also returns the state the action was applied to, which the
// executor needs to build compensating actions.
func (c *Calendar) dispatch(a Action) (State, State, error) {
	c.mu.Lock()
	switch r := a.(type) {
	case RefreshTracking:
		if r.Reload {
			r.Skip = c.skipSetLocked(r.Skip, r.Since)
			a = r
		}
	case Hydrate:
		if r.Since != 0 {
			r.Skip = c.skipSetLocked(r.Skip, r.Since)
			a = r
		}
	}
	prev := c.state
	next, err := Reduce(prev, a, c.clock())
	if err != nil {
		c.mu.Unlock()
		c.logger.Debug("action rejected", "action", a.actionName(), "error", err)
		return prev, prev, err
	}
	c.state = next
	if h, ok := a.(Hydrate); ok {
		c.loadedFrom, c.loadedTo = h.From, h.To
	} else if id := trackingID(a); id != "" {
		c.editSeq++
		c.edited[id] = c.editSeq
	}
	c.mu.Unlock()

	c.notify(next)
	return prev, next, nil
}

// Subscribe registers fn to receive every new state. The returned function
// removes the subscription.
func (c *Calendar) Subscribe(fn func(State)) func() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	return func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		delete(c.subs, id)
	}
}

func (c *Calendar) notify(s State) {
	c.subMu.Lock()
	fns := make([]func(State), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}

// =============================================================================
// UNFLUSHED EDITS
// =============================================================================

// markDirty records an in-flight persistence of a tracking record. Calls
// nest; each must be paired with clearDirty.
func (c *Calendar) markDirty(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirty[id]++
}

func (c *Calendar) clearDirty(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dirty[id] <= 1 {
		delete(c.dirty, id)
		return
	}
	c.dirty[id]--
}

// IsDirty reports whether a tracking record has unflushed local edits.
func (c *Calendar) IsDirty(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty[id] > 0
}

// EditMark returns the current position in the tracking edit history.
func (c *Calendar) EditMark() EditMark {
	c.mu.Lock()
	defer c.mu.Unlock()
	return EditMark(c.editSeq)
}

// Covers reports whether shifts and tracking for date and the day before
// are held in memory, as loaded by the last ranged Hydrate.
func (c *Calendar) Covers(date DateKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loadedFrom.IsZero() {
		return false
	}
	return !date.Before(c.loadedFrom) && !date.After(c.loadedTo)
}

// skipSetLocked collects the tracking ids a reload must leave alone: those
// with unflushed edits, those in extra, and those edited after since.
func (c *Calendar) skipSetLocked(extra map[string]bool, since EditMark) map[string]bool {
	skip := make(map[string]bool, len(c.dirty)+len(extra))
	for id := range c.dirty {
		skip[id] = true
	}
	if since != 0 {
		for id, seq := range c.edited {
			if seq > uint64(since) {
				skip[id] = true
			}
		}
	}
	for id, v := range extra {
		if v {
			skip[id] = true
		}
	}
	return skip
}
