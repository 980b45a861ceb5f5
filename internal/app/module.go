// Package app holds the feature modules and the main loop that owns the model.
package app

import (
	"time"

	"github.com/coreman2200/ledfix/internal/model"
	"github.com/coreman2200/ledfix/internal/ui"
)

// Module is a feature unit. Setup declares its variables and runs on every
// declaration pass; Loop runs on every main loop pass and Loop1s once a second.
type Module interface {
	Name() string
	Setup(c *ui.Controls)
	Loop(now time.Time)
	Loop1s(now time.Time)
	Success() bool
}

// base carries what every module shares.
type base struct {
	name    string
	order   int
	success bool
	m       *model.Model
	parent  *model.Variable
}

func newBase(m *model.Model, name string, order int) base {
	return base{name: name, order: order, success: true, m: m}
}

func (b *base) Name() string     { return b.name }
func (b *base) Success() bool    { return b.success }
func (b *base) Loop(time.Time)   {}
func (b *base) Loop1s(time.Time) {}
func (b *base) setupModule(c *ui.Controls, comment string) {
	b.parent = c.InitModule(b.name, b.order, ui.Describe(b.m, "", comment))
}

// Module orders in the reserved band, lowest first in the UI.
const (
	orderFixture = 1100
	orderLeds    = 1200
	orderE131    = 1300
	orderPins    = 1400
	orderFiles   = 4000
	orderSystem  = 4100
)

// varFun adapts per-kind handlers to a model.VarFun. A nil handler leaves
// the kind unhandled.
type varFun struct {
	ui     func(v *model.Variable)
	change func(v *model.Variable, row uint8)
	loop   func(v *model.Variable)
	add    func(v *model.Variable, row uint8)
	del    func(v *model.Variable, row uint8)
}

func (f varFun) fun() model.VarFun {
	return func(v *model.Variable, row uint8, kind model.CallKind) bool {
		switch kind {
		case model.UIFun:
			if f.ui != nil {
				f.ui(v)
				return true
			}
		case model.ChangeFun:
			if f.change != nil {
				f.change(v, row)
				return true
			}
		case model.LoopFun:
			if f.loop != nil {
				f.loop(v)
				return true
			}
		case model.AddRow:
			if f.add != nil {
				f.add(v, row)
				return true
			}
		case model.DelRow:
			if f.del != nil {
				f.del(v, row)
				return true
			}
		}
		return false
	}
}

// labeled is a UIFun that writes a label and an optional comment.
func labeled(m *model.Model, label, comment string) func(v *model.Variable) {
	return func(v *model.Variable) {
		if label != "" {
			m.Resp.Add(v.ID, "label", label)
		}
		if comment != "" {
			m.Resp.Add(v.ID, "comment", comment)
		}
	}
}
