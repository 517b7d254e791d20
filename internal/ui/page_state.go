package ui

import "time"

// PageState is what every page keeps besides its own data: the screen
// layout, a transient status line and whether the page is closing.
type PageState struct {
	Layout   Layout
	Quitting bool

	StatusMsg    string
	StatusExpiry time.Time
	now          func() time.Time
}

// NewPageState starts a page on layout l with no status
func NewPageState(l Layout) PageState {
	return PageState{Layout: l, now: time.Now}
}

// SetStatus shows msg for d. A zero d keeps it until the next SetStatus.
func (p *PageState) SetStatus(msg string, d time.Duration) {
	p.StatusMsg = msg
	p.StatusExpiry = time.Time{}
	if d > 0 {
		p.StatusExpiry = p.clock().Add(d)
	}
}

// ClearExpiredStatus drops a status whose time is up. Pages call it at
// the top of Update.
func (p *PageState) ClearExpiredStatus() {
	if p.StatusExpiry.IsZero() || !p.clock().After(p.StatusExpiry) {
		return
	}
	p.StatusMsg = ""
	p.StatusExpiry = time.Time{}
}

func (p *PageState) HasStatus() bool {
	return p.StatusMsg != ""
}

// UpdateLayout recomputes the layout for a new terminal size and reports
// whether it changed
func (p *PageState) UpdateLayout(width, height int) bool {
	l := NewLayout(width, height)
	if l == p.Layout {
		return false
	}
	p.Layout = l
	return true
}

func (p *PageState) clock() time.Time {
	if p.now == nil {
		return time.Now()
	}
	return p.now()
}
