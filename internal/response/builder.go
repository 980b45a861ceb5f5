// Package response collects the fragments written by variable callbacks into
// one outbound document per main-loop pass.
package response

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Sender delivers a serialized document to connected clients.
type Sender interface {
	SendJSON(data []byte)
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(data []byte)

func (f SenderFunc) SendJSON(data []byte) { f(data) }

// Builder is owned by the main loop; it is not safe for concurrent use.
type Builder struct {
	doc    map[string]any
	sender Sender
	sent   int
}

func NewBuilder(s Sender) *Builder {
	return &Builder{doc: map[string]any{}, sender: s}
}

// Add merges attr=value into the fragment of id.
func (b *Builder) Add(id, attr string, value any) {
	b.fragment(id)[attr] = value
}

// AddV formats the value before adding it.
func (b *Builder) AddV(id, attr, format string, args ...any) {
	b.Add(id, attr, fmt.Sprintf(format, args...))
}

// AddRows starts a table payload for id.attr, replacing an earlier one.
func (b *Builder) AddRows(id, attr string) *Rows {
	r := &Rows{}
	b.fragment(id)[attr] = r
	return r
}

// Echo keeps a top level key of an inbound command in the outbound document.
func (b *Builder) Echo(key string, value any) {
	b.doc[key] = value
}

// Get returns the pending fragment of id.
func (b *Builder) Get(id string) (map[string]any, bool) {
	f, ok := b.doc[id].(map[string]any)
	return f, ok
}

// Empty reports whether nothing is pending.
func (b *Builder) Empty() bool { return len(b.doc) == 0 }

// Sent returns how many documents have been flushed so far.
func (b *Builder) Sent() int { return b.sent }

func (b *Builder) fragment(id string) map[string]any {
	switch f := b.doc[id].(type) {
	case map[string]any:
		return f
	case nil:
	default:
		// an echoed scalar becomes the value of the fragment
		m := map[string]any{"value": f}
		b.doc[id] = m
		return m
	}
	m := map[string]any{}
	b.doc[id] = m
	return m
}

// Bytes serializes the pending document without clearing it.
func (b *Builder) Bytes() ([]byte, error) {
	return json.Marshal(b.doc)
}

// Flush sends the pending document and clears it. Nothing is sent when the
// document is empty.
func (b *Builder) Flush() bool {
	if b.Empty() {
		return false
	}
	data, err := b.Bytes()
	b.Reset()
	if err != nil {
		log.Error().Err(err).Msg("response encode")
		return false
	}
	if b.sender != nil {
		b.sender.SendJSON(data)
	}
	b.sent++
	return true
}

// Reset clears the pending document.
func (b *Builder) Reset() {
	b.doc = map[string]any{}
}

// Rows accumulates table rows.
type Rows struct {
	rows [][]any
}

// Add appends one row.
func (r *Rows) Add(cells ...any) { r.rows = append(r.rows, cells) }

// Len returns the number of rows.
func (r *Rows) Len() int { return len(r.rows) }

func (r *Rows) MarshalJSON() ([]byte, error) {
	if r.rows == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r.rows)
}
