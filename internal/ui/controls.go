// Package ui declares controls on the model and applies client commands to it.
package ui

import (
	"github.com/coreman2200/ledfix/internal/model"
)

// SystemID is the variable that keeps client view settings.
const SystemID = "System"

// Coord3D is the value of a coord3D control.
type Coord3D struct{ X, Y, Z int }

// Value converts the coordinate to its model form.
func (c Coord3D) Value() map[string]any {
	return map[string]any{"x": c.X, "y": c.Y, "z": c.Z}
}

// Controls declares typed controls on a model. Every Init call is idempotent
// and safe to repeat on each setup pass.
type Controls struct {
	M *model.Model
}

func NewControls(m *model.Model) *Controls { return &Controls{M: m} }

// InitModule declares a top level module variable. order is its default
// position in the reserved module band.
func (c *Controls) InitModule(id string, order int, fun model.VarFun) *model.Variable {
	v := c.initVar(nil, id, model.TypeModule, false, fun)
	if v != nil && v.Order > -1000 {
		v.Order = -order
	}
	return v
}

func (c *Controls) InitGroup(parent *model.Variable, id string, fun model.VarFun) *model.Variable {
	return c.initVar(parent, id, model.TypeGroup, false, fun)
}

func (c *Controls) InitTable(parent *model.Variable, id string, readOnly bool, fun model.VarFun) *model.Variable {
	return c.initVar(parent, id, model.TypeTable, readOnly, fun)
}

func (c *Controls) InitCheckBox(parent *model.Variable, id string, value bool, readOnly bool, fun model.VarFun) *model.Variable {
	return c.initVarAndUpdate(parent, id, model.TypeCheckbox, value, readOnly, fun)
}

func (c *Controls) InitSlider(parent *model.Variable, id string, value, min, max int, readOnly bool, fun model.VarFun) *model.Variable {
	v := c.initVarAndUpdate(parent, id, model.TypeSlider, value, readOnly, fun)
	setRange(v, min, max)
	return v
}

func (c *Controls) InitNumber(parent *model.Variable, id string, value, min, max int, readOnly bool, fun model.VarFun) *model.Variable {
	v := c.initVarAndUpdate(parent, id, model.TypeNumber, value, readOnly, fun)
	setRange(v, min, max)
	return v
}

// InitNumberColumn declares a number column of a table; its values are per row.
func (c *Controls) InitNumberColumn(table *model.Variable, id string, min, max int, readOnly bool, fun model.VarFun) *model.Variable {
	v := c.initVar(table, id, model.TypeNumber, readOnly, fun)
	setRange(v, min, max)
	return v
}

// InitTextColumn declares a text column of a table.
func (c *Controls) InitTextColumn(table *model.Variable, id string, readOnly bool, fun model.VarFun) *model.Variable {
	return c.initVar(table, id, model.TypeText, readOnly, fun)
}

func (c *Controls) InitSelect(parent *model.Variable, id string, value int, readOnly bool, fun model.VarFun) *model.Variable {
	return c.initVarAndUpdate(parent, id, model.TypeSelect, value, readOnly, fun)
}

func (c *Controls) InitText(parent *model.Variable, id, value string, max int, readOnly bool, fun model.VarFun) *model.Variable {
	v := c.initVarAndUpdate(parent, id, model.TypeText, value, readOnly, fun)
	if v != nil && max > 0 {
		v.SetAttr("max", max)
	}
	return v
}

func (c *Controls) InitCanvas(parent *model.Variable, id string, readOnly bool, fun model.VarFun) *model.Variable {
	return c.initVar(parent, id, model.TypeCanvas, readOnly, fun)
}

func (c *Controls) InitCoord3D(parent *model.Variable, id string, value Coord3D, min, max int, readOnly bool, fun model.VarFun) *model.Variable {
	v := c.initVarAndUpdate(parent, id, model.TypeCoord3D, value.Value(), readOnly, fun)
	setRange(v, min, max)
	return v
}

func (c *Controls) InitDisplay(parent *model.Variable, id string, fun model.VarFun) *model.Variable {
	return c.initVar(parent, id, model.TypeDisplay, true, fun)
}

// InitButton declares a momentary button; label is its caption. Declaring
// never presses it: ChangeFun only runs for commands from a client.
func (c *Controls) InitButton(parent *model.Variable, id, label string, fun model.VarFun) *model.Variable {
	v := c.initVar(parent, id, model.TypeButton, false, fun)
	if v != nil && v.SetValue(label, model.NoRow) {
		c.M.Resp.Add(v.ID, "value", label)
	}
	return v
}

func (c *Controls) initVar(parent *model.Variable, id, typ string, readOnly bool, fun model.VarFun) *model.Variable {
	v, err := c.M.Declare(parent, id, typ, readOnly, fun)
	if err != nil {
		c.M.Logger().Error().Err(err).Str("id", id).Msg("init var")
		return nil
	}
	return v
}

// initVarAndUpdate declares the variable and gives it value when it has
// none yet. A value that is already present, e.g. loaded from a snapshot,
// is pushed to the behavior function instead so the module picks it up.
func (c *Controls) initVarAndUpdate(parent *model.Variable, id, typ string, value any, readOnly bool, fun model.VarFun) *model.Variable {
	v := c.initVar(parent, id, typ, readOnly, fun)
	if v == nil {
		return nil
	}
	if v.Value(model.NoRow) == nil {
		c.M.SetValue(v, value, model.NoRow)
	} else {
		c.M.Call(v, model.NoRow, model.ChangeFun)
	}
	return v
}

func setRange(v *model.Variable, min, max int) {
	if v == nil {
		return
	}
	v.SetAttr("min", min)
	v.SetAttr("max", max)
}

// Describe builds a VarFun that only answers UIFun with a label and an
// optional comment.
func Describe(m *model.Model, label, comment string) model.VarFun {
	return func(v *model.Variable, _ uint8, kind model.CallKind) bool {
		if kind != model.UIFun {
			return false
		}
		if label != "" {
			m.Resp.Add(v.ID, "label", label)
		}
		if comment != "" {
			m.Resp.Add(v.ID, "comment", comment)
		}
		return true
	}
}
