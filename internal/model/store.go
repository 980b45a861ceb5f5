package model

import (
	"encoding/json"
	"fmt"
)

// Store is the variable tree. Ids are unique among siblings only; lookups
// return the first depth-first match.
type Store struct {
	roots   []*Variable
	counter int
}

// NewStore returns an empty store. The order counter starts at 1 so every
// assigned order can carry a sign.
func NewStore() *Store { return &Store{counter: 1} }

// FindVar returns the first variable with id in depth-first order, or nil.
func (s *Store) FindVar(id string) *Variable {
	return find(s.roots, id)
}

func find(vars []*Variable, id string) *Variable {
	for _, v := range vars {
		if v.ID == id {
			return v
		}
		if f := find(v.Children, id); f != nil {
			return f
		}
	}
	return nil
}

// Walk visits every variable depth-first. Returning false stops descending
// into the children of that variable.
func (s *Store) Walk(fn func(v *Variable) bool) {
	walk(s.roots, fn)
}

func walk(vars []*Variable, fn func(v *Variable) bool) {
	for _, v := range vars {
		if fn(v) {
			walk(v.Children, fn)
		}
	}
}

// Len returns the number of variables in the tree.
func (s *Store) Len() int {
	n := 0
	s.Walk(func(*Variable) bool { n++; return true })
	return n
}

// create appends a new variable under parent, or as a root.
func (s *Store) create(parent *Variable, id string) *Variable {
	v := newVariable(id, parent)
	if parent == nil {
		s.roots = append(s.roots, v)
	} else {
		parent.Children = append(parent.Children, v)
	}
	return v
}

// lookupUnder returns the variable with id directly under parent.
func (s *Store) lookupUnder(parent *Variable, id string) *Variable {
	if parent == nil {
		for _, r := range s.roots {
			if r.ID == id {
				return r
			}
		}
		return nil
	}
	return parent.Child(id)
}

// assignOrder applies the staleness encoding: module level orders are
// negated, everything else takes the next counter value, negative when the
// parent has been seen in this pass.
func (s *Store) assignOrder(v *Variable) {
	if v.Order >= moduleOrderBand {
		v.Order = -v.Order
		return
	}
	if v.Order <= -moduleOrderBand {
		return
	}
	if v.parent != nil && v.parent.Order < 0 {
		v.Order = -s.counter
	} else {
		v.Order = s.counter
	}
	s.counter++
}

// BeginPass marks every variable unseen before a full declaration pass.
func (s *Store) BeginPass() {
	s.Walk(func(v *Variable) bool {
		if v.Order < 0 {
			v.Order = -v.Order
		}
		return true
	})
}

// Sweep removes every variable not seen since BeginPass and returns the
// removed ids.
func (s *Store) Sweep() []string {
	var removed []string
	s.roots = sweep(s.roots, &removed)
	return removed
}

func sweep(vars []*Variable, removed *[]string) []*Variable {
	kept := vars[:0]
	for _, v := range vars {
		if v.Order >= 0 {
			*removed = append(*removed, v.ID)
			continue
		}
		v.Children = sweep(v.Children, removed)
		kept = append(kept, v)
	}
	return kept
}

// MarshalJSON writes the tree as an array of root nodes.
func (s *Store) MarshalJSON() ([]byte, error) {
	if s.roots == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.roots)
}

// Load replaces the tree with a snapshot produced by MarshalJSON. Loaded
// variables are unseen and carry no function or loop handles.
func (s *Store) Load(data []byte) error {
	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode model: %w", err)
	}
	roots := make([]*Variable, 0, len(raw))
	for _, r := range raw {
		v, err := decodeVariable(r, nil)
		if err != nil {
			return err
		}
		roots = append(roots, v)
	}
	s.roots = roots
	return nil
}
