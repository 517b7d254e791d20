package events

import (
	"fmt"

	"github.com/thesavant42/tableforms/internal/models"
)

// EventType identifies a lifecycle trigger
type EventType int

const (
	PreForm EventType = iota + 1
	PostForm
	PreBlock
	PostBlock
	PreRecord
	PostRecord
	PreField
	PostField
	PreQuery
	PostQuery
	PostChange
)

var typeNames = map[EventType]string{
	PreForm:    "PreForm",
	PostForm:   "PostForm",
	PreBlock:   "PreBlock",
	PostBlock:  "PostBlock",
	PreRecord:  "PreRecord",
	PostRecord: "PostRecord",
	PreField:   "PreField",
	PostField:  "PostField",
	PreQuery:   "PreQuery",
	PostQuery:  "PostQuery",
	PostChange: "PostChange",
}

func (t EventType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("EventType(%d)", int(t))
}

// Event is one raised trigger. Form, Block and Field are lowercase names;
// fields that do not apply to the event type are left empty.
type Event struct {
	Type   EventType
	Tier   models.Tier
	Form   string
	Block  string
	Field  string
	Row    int
	Record int
	Value  string
}

func (e Event) String() string {
	s := e.Type.String() + " form=" + e.Form
	if e.Block != "" {
		s += " block=" + e.Block
	}
	if e.Field != "" {
		s += " field=" + e.Field
	}
	return s
}

// Filter restricts which events a listener receives.
// Zero-valued members match anything.
type Filter struct {
	Types []EventType
	Form  string
	Block string
	Field string
}

// Matches reports whether the event passes the filter
func (f Filter) Matches(ev Event) bool {
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if t == ev.Type {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Form != "" && f.Form != ev.Form {
		return false
	}
	if f.Block != "" && f.Block != ev.Block {
		return false
	}
	if f.Field != "" && f.Field != ev.Field {
		return false
	}
	return true
}

// Result is what a listener answers: proceed, or abort with a reason
type Result struct {
	abort  bool
	reason string
}

// Proceed lets the navigation continue
func Proceed() Result {
	return Result{}
}

// Abort vetoes the navigation. The reason is reported to the caller.
func Abort(reason string) Result {
	if reason == "" {
		reason = "vetoed"
	}
	return Result{abort: true, reason: reason}
}

// Aborted reports whether the result is a veto
func (r Result) Aborted() bool {
	return r.abort
}

// Reason returns the veto reason ("" when the result proceeds)
func (r Result) Reason() string {
	return r.reason
}
