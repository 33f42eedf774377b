// Package models holds the wire and storage types shared across the
// board server: elements and the durable session record.
package models

// Element is a single vector drawing primitive. It is represented as a
// raw JSON object rather than a Go struct so that unknown/extra keys
// round-trip verbatim between clients, the in-memory element sequence,
// and the durable store (spec: "Unknown fields on input are preserved
// verbatim on output").
type Element map[string]any

// ElementTypes enumerates the seven recognized `type` discriminants.
var ElementTypes = map[string]struct{}{
	"rectangle": {},
	"circle":    {},
	"line":      {},
	"arrow":     {},
	"pen":       {},
	"text":      {},
	"note":      {},
}

// Type returns the element's `type` discriminant, or "" if missing or
// not a string.
func (e Element) Type() string {
	t, _ := e["type"].(string)
	return t
}

// ID returns the element's `id` field, or "" if missing or not a
// string.
func (e Element) ID() string {
	id, _ := e["id"].(string)
	return id
}

// SetID force-sets the element's id field.
func (e Element) SetID(id string) {
	e["id"] = id
}

// Clone returns a shallow copy of the element's top-level fields. Good
// enough for our purposes: nested values (e.g. pen `points`) are never
// mutated in place, only replaced wholesale.
func (e Element) Clone() Element {
	out := make(Element, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Merge returns a new element that is e overlaid with patch: every key
// in patch replaces the corresponding key in e, every other key in e
// is preserved. Neither input is mutated.
func (e Element) Merge(patch Element) Element {
	out := e.Clone()
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// Session is the durable record for one whiteboard session: identity,
// creation time, and the ordered element sequence. Subscribers are
// deliberately absent — they are never persisted (spec §3).
type Session struct {
	ID        string    `json:"id"`
	CreatedAt int64     `json:"createdAt"`
	Elements  []Element `json:"elements"`
}
