package view

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/thesavant42/tableforms/internal/events"
	"github.com/thesavant42/tableforms/internal/models"
)

// Session is one running application: the forms it has open, the trigger
// dispatcher they share and the single form that is current.
type Session struct {
	mu         sync.Mutex
	dispatcher *events.Dispatcher
	logger     *log.Logger
	forms      map[string]*Form
	current    *Form
}

// NewSession creates a session. A nil logger discards output.
func NewSession(logger *log.Logger) *Session {
	if logger == nil {
		logger = discardLogger()
	}
	return &Session{
		dispatcher: events.NewDispatcher(logger.WithPrefix("events")),
		logger:     logger,
		forms:      make(map[string]*Form),
	}
}

// Dispatcher returns the session's trigger dispatcher
func (s *Session) Dispatcher() *events.Dispatcher {
	return s.dispatcher
}

// Logger returns the session logger
func (s *Session) Logger() *log.Logger {
	return s.logger
}

// NewForm creates and registers an empty form
func (s *Session) NewForm(name string) (*Form, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(name)
	if _, ok := s.forms[key]; ok {
		return nil, fmt.Errorf("form %q is already open", key)
	}
	f := newForm(s, key)
	s.forms[key] = f
	s.logger.Debug("create form", "form", key)
	return f, nil
}

// Form returns an open form by name, or nil
func (s *Session) Form(name string) *Form {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forms[strings.ToLower(name)]
}

// Current returns the form that holds focus, or nil
func (s *Session) Current() *Form {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Session) setCurrent(f *Form) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = f
}

// Drop closes a form. A navigation in progress finishes first; then the
// form's listeners are removed, its blocks released and the current-form
// pointer cleared if it named the form.
func (s *Session) Drop(ctx context.Context, f *Form) error {
	if err := f.lock(ctx); err != nil {
		return fmt.Errorf("failed to drop form %s: %w", f.name, err)
	}
	defer f.unlock()

	for _, h := range f.handles {
		s.dispatcher.RemoveListener(h)
	}
	f.clear()

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.forms, f.name)
	if s.current == f {
		s.current = nil
	}
	s.logger.Debug("drop form", "form", f.name)
	return nil
}

// Ref names a form or block together with the tier it was taken from.
// Events carry enough to build one; Resolve turns it into live objects.
type Ref struct {
	Tier  models.Tier
	Form  string
	Block string
}

// RefOf builds a reference from an event
func RefOf(ev events.Event) Ref {
	return Ref{Tier: ev.Tier, Form: ev.Form, Block: ev.Block}
}

// Resolve returns the form and block a reference names. Block is nil when
// the reference names only a form. Model-tier references resolve to the
// view block linked to that model block.
func (s *Session) Resolve(ref Ref) (*Form, *Block, error) {
	f := s.Form(ref.Form)
	if f == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownForm, ref.Form)
	}
	if ref.Block == "" {
		return f, nil, nil
	}
	b := f.Block(ref.Block)
	if b == nil {
		return f, nil, fmt.Errorf("%w: %s.%s", ErrUnknownBlock, ref.Form, ref.Block)
	}
	return f, b, nil
}

func discardLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}
