// Package slot provides fixed capacity id tables for render resources.
//
// A table hands out small integer ids. Id zero is reserved and always means
// "no resource", so the zero value of any handle type is safely invalid.
package slot

import "log/slog"

type entry[T any] struct {
	value T
	used  bool
}

// Table stores up to capacity values of type T, addressed by id.
type Table[T any] struct {
	name    string
	entries []entry[T]
}

// NewTable creates a table that can hold capacity values. The name only
// shows up in log output.
func NewTable[T any](name string, capacity int) *Table[T] {
	return &Table[T]{
		name: name,

		// one extra entry so that ids map to indices directly and
		// index zero stays unused
		entries: make([]entry[T], capacity+1),
	}
}

// Alloc finds the first free slot and returns its id together with a pointer
// to the zeroed storage. Returns id zero if the table is full.
func (t *Table[T]) Alloc() (uint32, *T) {
	for idx := 1; idx < len(t.entries); idx++ {
		e := &t.entries[idx]
		if e.used {
			continue
		}

		e.used = true
		return uint32(idx), &e.value
	}

	slog.Warn("Slot table exhausted",
		slog.String("table", t.name),
		slog.Int("capacity", len(t.entries)-1))

	return 0, nil
}

// Get returns the value stored under id, or nil if the id is not in use.
func (t *Table[T]) Get(id uint32) *T {
	if !t.Used(id) {
		return nil
	}

	return &t.entries[id].value
}

// Used reports whether id refers to a live slot.
func (t *Table[T]) Used(id uint32) bool {
	return id >= 1 && id < uint32(len(t.entries)) && t.entries[id].used
}

// Release frees the slot and zeroes its storage. Releasing an id that is not
// in use does nothing.
func (t *Table[T]) Release(id uint32) {
	if !t.Used(id) {
		return
	}

	t.entries[id] = entry[T]{}
}

// Each calls fn for every live slot in id order.
func (t *Table[T]) Each(fn func(id uint32, value *T)) {
	for idx := 1; idx < len(t.entries); idx++ {
		if t.entries[idx].used {
			fn(uint32(idx), &t.entries[idx].value)
		}
	}
}

// Count returns the number of live slots.
func (t *Table[T]) Count() int {
	var n int

	for idx := 1; idx < len(t.entries); idx++ {
		if t.entries[idx].used {
			n++
		}
	}

	return n
}

// Cap returns the number of usable slots.
func (t *Table[T]) Cap() int {
	return len(t.entries) - 1
}
