package events

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
)

// Listener handles one event. It may block; Raise waits for it.
type Listener func(ctx context.Context, ev Event) Result

// Handle identifies a registered listener
type Handle uint64

type registration struct {
	handle   Handle
	listener Listener
	filters  []Filter
}

// Dispatcher delivers events to listeners in registration order and
// reduces their answers to a single Result.
type Dispatcher struct {
	mu        sync.Mutex
	next      Handle
	listeners []registration
	logger    *log.Logger
}

// NewDispatcher creates an empty dispatcher. A nil logger discards output.
func NewDispatcher(logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = discardLogger()
	}
	return &Dispatcher{logger: logger}
}

// AddListener registers a listener. With no filters it receives every event;
// otherwise it receives events matching any of the filters.
func (d *Dispatcher) AddListener(fn Listener, filters ...Filter) Handle {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next++
	d.listeners = append(d.listeners, registration{
		handle:   d.next,
		listener: fn,
		filters:  filters,
	})
	return d.next
}

// RemoveListener deregisters a listener. Unknown handles are ignored.
func (d *Dispatcher) RemoveListener(h Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, r := range d.listeners {
		if r.handle == h {
			d.listeners = append(d.listeners[:i], d.listeners[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered listeners
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.listeners)
}

// Raise delivers ev to every matching listener, one at a time, in
// registration order. The first Abort stops the chain and is returned.
// A cancelled context aborts before the next listener runs.
func (d *Dispatcher) Raise(ctx context.Context, ev Event) Result {
	d.mu.Lock()
	snapshot := make([]registration, len(d.listeners))
	copy(snapshot, d.listeners)
	d.mu.Unlock()

	d.logger.Debug("raise", "event", ev.Type, "form", ev.Form, "block", ev.Block, "field", ev.Field)

	for _, r := range snapshot {
		if !r.matches(ev) {
			continue
		}
		if err := ctx.Err(); err != nil {
			d.logger.Warn("raise cancelled", "event", ev.Type, "err", err)
			return Abort(err.Error())
		}
		res := r.listener(ctx, ev)
		if res.Aborted() {
			d.logger.Debug("veto", "event", ev.Type, "listener", r.handle, "reason", res.Reason())
			return res
		}
	}
	return Proceed()
}

func (r registration) matches(ev Event) bool {
	if len(r.filters) == 0 {
		return true
	}
	for _, f := range r.filters {
		if f.Matches(ev) {
			return true
		}
	}
	return false
}
