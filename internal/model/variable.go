package model

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"
)

// NoRow addresses the scalar value of a variable instead of one of its rows.
const NoRow uint8 = math.MaxUint8

// Control types understood by the browser client.
const (
	TypeModule   = "module"
	TypeGroup    = "group"
	TypeCheckbox = "checkbox"
	TypeSlider   = "range"
	TypeNumber   = "number"
	TypeSelect   = "select"
	TypeText     = "text"
	TypeTable    = "table"
	TypeCanvas   = "canvas"
	TypeCoord3D  = "coord3D"
	TypeDisplay  = "display"
	TypeButton   = "button"
)

// moduleOrderBand is the first order reserved for module level variables.
const moduleOrderBand = 1000

// FunHandle indexes the model's function registry. noHandle means unset.
type FunHandle int

const noHandle FunHandle = -1

// Variable is one node of the model tree.
type Variable struct {
	ID       string
	Type     string
	Order    int
	ReadOnly bool
	Interval time.Duration
	Children []*Variable
	Attrs    map[string]any

	value  any
	rows   []any
	fun    FunHandle
	loop   int
	parent *Variable
}

func newVariable(id string, parent *Variable) *Variable {
	return &Variable{ID: id, fun: noHandle, loop: -1, parent: parent}
}

// Parent returns the container the variable was declared under, nil for roots.
func (v *Variable) Parent() *Variable { return v.parent }

// HasFun reports whether a behavior function is attached.
func (v *Variable) HasFun() bool { return v.fun != noHandle }

// HasLoop reports whether the variable has a scheduler entry.
func (v *Variable) HasLoop() bool { return v.loop >= 0 }

// Seen reports whether the variable was declared in the current pass.
func (v *Variable) Seen() bool { return v.Order < 0 }

// Value returns the scalar value for NoRow, otherwise the value at rowNr.
func (v *Variable) Value(rowNr uint8) any {
	if rowNr == NoRow {
		return v.value
	}
	if int(rowNr) >= len(v.rows) {
		return nil
	}
	return v.rows[rowNr]
}

// Rows returns the per-row values, nil when no row was ever set.
func (v *Variable) Rows() []any { return v.rows }

// SetValue stores val in the scalar slot or in row rowNr and reports whether
// the stored value changed.
func (v *Variable) SetValue(val any, rowNr uint8) bool {
	if rowNr == NoRow {
		if reflect.DeepEqual(v.value, val) {
			return false
		}
		v.value = val
		return true
	}
	for len(v.rows) <= int(rowNr) {
		v.rows = append(v.rows, nil)
	}
	if reflect.DeepEqual(v.rows[rowNr], val) {
		return false
	}
	v.rows[rowNr] = val
	return true
}

// Attr returns an extra attribute.
func (v *Variable) Attr(key string) (any, bool) {
	a, ok := v.Attrs[key]
	return a, ok
}

// SetAttr sets an extra attribute.
func (v *Variable) SetAttr(key string, val any) {
	if v.Attrs == nil {
		v.Attrs = map[string]any{}
	}
	v.Attrs[key] = val
}

// Child returns the direct child with the given id.
func (v *Variable) Child(id string) *Variable {
	for _, c := range v.Children {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Int converts the value at rowNr to an int, 0 when it is not numeric.
func (v *Variable) Int(rowNr uint8) int { return AsInt(v.Value(rowNr)) }

// Bool converts the value at rowNr to a bool.
func (v *Variable) Bool(rowNr uint8) bool { return AsBool(v.Value(rowNr)) }

// String formats the value at rowNr.
func (v *Variable) String(rowNr uint8) string {
	val := v.Value(rowNr)
	if val == nil {
		return ""
	}
	if s, ok := val.(string); ok {
		return s
	}
	return fmt.Sprint(val)
}

// AsInt converts JSON decoded scalars to int.
func AsInt(val any) int {
	switch x := val.(type) {
	case int:
		return x
	case int64:
		return int(x)
	case uint8:
		return int(x)
	case uint16:
		return int(x)
	case float64:
		return int(x)
	case json.Number:
		n, _ := x.Float64()
		return int(n)
	case bool:
		if x {
			return 1
		}
		return 0
	case string:
		n, _ := strconv.Atoi(x)
		return n
	}
	return 0
}

// AsBool converts JSON decoded scalars to bool.
func AsBool(val any) bool {
	switch x := val.(type) {
	case bool:
		return x
	case string:
		b, _ := strconv.ParseBool(x)
		return b
	case nil:
		return false
	}
	return AsInt(val) != 0
}

// nodeJSON is the snapshot form of a variable.
type nodeJSON struct {
	ID       string      `json:"id"`
	Type     string      `json:"type,omitempty"`
	Order    int         `json:"o"`
	ReadOnly bool        `json:"ro,omitempty"`
	Value    any         `json:"value,omitempty"`
	Interval int64       `json:"interval,omitempty"`
	Children []*Variable `json:"n,omitempty"`
}

// MarshalJSON writes the fixed fields and the extra attributes in one object.
func (v *Variable) MarshalJSON() ([]byte, error) {
	n := nodeJSON{
		ID:       v.ID,
		Type:     v.Type,
		Order:    v.Order,
		ReadOnly: v.ReadOnly,
		Value:    v.snapshotValue(),
		Interval: v.Interval.Milliseconds(),
		Children: v.Children,
	}
	if len(v.Attrs) == 0 {
		return json.Marshal(n)
	}
	b, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	for k, a := range v.Attrs {
		if _, fixed := m[k]; !fixed {
			m[k] = a
		}
	}
	return json.Marshal(m)
}

// snapshotValue stores row values in place of the scalar, as the client expects.
func (v *Variable) snapshotValue() any {
	if v.rows != nil {
		return v.rows
	}
	return v.value
}

var fixedKeys = map[string]bool{"id": true, "type": true, "o": true, "ro": true, "value": true, "interval": true, "n": true}

func decodeVariable(raw map[string]any, parent *Variable) (*Variable, error) {
	id, _ := raw["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("variable without id under %q", parentID(parent))
	}
	v := newVariable(id, parent)
	v.Type, _ = raw["type"].(string)
	v.Order = AsInt(raw["o"])
	if v.Order < 0 {
		v.Order = -v.Order
	}
	v.ReadOnly = AsBool(raw["ro"])
	if rows, ok := raw["value"].([]any); ok {
		v.rows = rows
	} else {
		v.value = raw["value"]
	}
	v.Interval = time.Duration(AsInt(raw["interval"])) * time.Millisecond
	for k, a := range raw {
		if !fixedKeys[k] {
			v.SetAttr(k, a)
		}
	}
	if kids, ok := raw["n"].([]any); ok {
		for _, k := range kids {
			km, ok := k.(map[string]any)
			if !ok {
				continue
			}
			c, err := decodeVariable(km, v)
			if err != nil {
				return nil, err
			}
			v.Children = append(v.Children, c)
		}
	}
	return v, nil
}

func parentID(p *Variable) string {
	if p == nil {
		return ""
	}
	return p.ID
}
