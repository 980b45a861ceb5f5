// Package model holds the variable tree, the behavior functions attached to
// its variables and the dispatch rules between them.
package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/ledfix/internal/response"
	"github.com/coreman2200/ledfix/internal/scheduler"
)

// CallKind tells a behavior function why it is called.
type CallKind uint8

const (
	UIFun CallKind = iota
	ChangeFun
	LoopFun
	AddRow
	DelRow
)

func (k CallKind) String() string {
	switch k {
	case UIFun:
		return "uiFun"
	case ChangeFun:
		return "chFun"
	case LoopFun:
		return "loopFun"
	case AddRow:
		return "addRow"
	case DelRow:
		return "delRow"
	}
	return fmt.Sprintf("CallKind(%d)", uint8(k))
}

// VarFun is the behavior attached to a variable. It returns true when it
// handles kind.
type VarFun func(v *Variable, rowNr uint8, kind CallKind) bool

// ConflictPolicy decides what Declare does when an id already exists under
// another parent.
type ConflictPolicy int

const (
	// ConflictDuplicate warns and creates a second node under the requested parent.
	ConflictDuplicate ConflictPolicy = iota
	// ConflictReject returns ErrParentConflict and creates nothing.
	ConflictReject
)

// ParseConflictPolicy maps a config string to a policy.
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch s {
	case "", "duplicate":
		return ConflictDuplicate, nil
	case "reject":
		return ConflictReject, nil
	}
	return ConflictDuplicate, fmt.Errorf("unknown conflict policy %q", s)
}

// ErrParentConflict is returned by Declare under ConflictReject.
var ErrParentConflict = errors.New("variable declared under a different parent")

type Options struct {
	Logger   *zerolog.Logger
	Conflict ConflictPolicy
	Sender   response.Sender
}

// Model is the context object shared by the command processor, the modules
// and the main loop. Only the main loop goroutine may use it.
type Model struct {
	Store *Store
	Sched *scheduler.Scheduler
	Resp  *response.Builder

	funs     []VarFun
	conflict ConflictPolicy
	log      zerolog.Logger
}

func New(opts Options) *Model {
	l := log.Logger
	if opts.Logger != nil {
		l = *opts.Logger
	}
	return &Model{
		Store:    NewStore(),
		Sched:    scheduler.New(),
		Resp:     response.NewBuilder(opts.Sender),
		conflict: opts.Conflict,
		log:      l,
	}
}

// Logger returns the model logger.
func (m *Model) Logger() *zerolog.Logger { return &m.log }

// FindVar looks id up in the whole tree.
func (m *Model) FindVar(id string) *Variable { return m.Store.FindVar(id) }

// FunCount returns the number of registered behavior functions.
func (m *Model) FunCount() int { return len(m.funs) }

// Declare creates the variable id under parent, or reuses it when it is
// already there, and reconciles its type and read-only flag. A supplied
// function is attached only if the variable has none yet; it is asked to
// describe the UI and probed once for loop support.
func (m *Model) Declare(parent *Variable, id, typ string, readOnly bool, fun VarFun) (*Variable, error) {
	v := m.Store.FindVar(id)
	if v != nil && v.parent != parent {
		m.log.Warn().
			Str("id", id).
			Str("existing_parent", parentID(v.parent)).
			Str("parent", parentID(parent)).
			Msg("declare: parents not equal")
		if m.conflict == ConflictReject {
			return nil, fmt.Errorf("declare %s under %q: %w", id, parentID(parent), ErrParentConflict)
		}
		v = m.Store.lookupUnder(parent, id)
	}
	if v == nil {
		v = m.Store.create(parent, id)
		m.log.Debug().Str("id", id).Str("type", typ).Str("parent", parentID(parent)).Msg("declare: create")
	}

	if v.Type != typ {
		v.Type = typ
		m.log.Debug().Str("id", id).Str("type", typ).Msg("declare: set type")
	}
	if v.ReadOnly != readOnly {
		v.ReadOnly = readOnly
	}
	m.Store.assignOrder(v)

	if fun != nil {
		if v.fun == noHandle {
			m.funs = append(m.funs, fun)
			v.fun = FunHandle(len(m.funs) - 1)
			m.Call(v, NoRow, UIFun)
			if fun(v, NoRow, LoopFun) {
				m.addLoop(v)
			}
		} else {
			m.log.Debug().Str("id", id).Msg("declare: function already attached")
			m.Call(v, NoRow, UIFun)
		}
	}
	return v, nil
}

func (m *Model) addLoop(v *Variable) {
	v.loop = m.Sched.Add(v.ID,
		func() { m.Call(v, NoRow, LoopFun) },
		func() time.Duration { return v.Interval },
	)
}

// Call dispatches kind to the function of v and returns its answer.
func (m *Model) Call(v *Variable, rowNr uint8, kind CallKind) bool {
	if v == nil || v.fun == noHandle {
		return false
	}
	return m.funs[v.fun](v, rowNr, kind)
}

// SetValue stores val and, only if it changed, sends it to clients and
// dispatches ChangeFun.
func (m *Model) SetValue(v *Variable, val any, rowNr uint8) bool {
	if v == nil || !v.SetValue(val, rowNr) {
		return false
	}
	m.respondValue(v, rowNr)
	m.Call(v, rowNr, ChangeFun)
	return true
}

// SetValueByID is SetValue after a lookup; a miss is logged and ignored.
func (m *Model) SetValueByID(id string, val any, rowNr uint8) bool {
	v := m.Store.FindVar(id)
	if v == nil {
		m.log.Warn().Str("id", id).Msg("setValue: variable not found")
		return false
	}
	return m.SetValue(v, val, rowNr)
}

// Assign stores val and always dispatches ChangeFun, as a client assignment does.
func (m *Model) Assign(v *Variable, val any, rowNr uint8) {
	v.SetValue(val, rowNr)
	m.respondValue(v, rowNr)
	m.Call(v, rowNr, ChangeFun)
}

// Value returns the value of id at rowNr, nil on a miss.
func (m *Model) Value(id string, rowNr uint8) any {
	v := m.Store.FindVar(id)
	if v == nil {
		return nil
	}
	return v.Value(rowNr)
}

func (m *Model) respondValue(v *Variable, rowNr uint8) {
	if rowNr == NoRow {
		m.Resp.Add(v.ID, "value", v.Value(NoRow))
		return
	}
	m.Resp.Add(v.ID, "value", v.Rows())
}
