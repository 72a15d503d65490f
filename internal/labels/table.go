package labels

import (
	"fmt"
	"strconv"
)

// Kind selects the prefix of a synthesized name.
type Kind string

const (
	Node   Kind = "object"
	Attach Kind = "attach"
)

// Entry binds a name to a file address.
type Entry struct {
	Addr uint32
	Name string
}

// Table maps file addresses to names. Entries keep insertion order so a
// written label chunk lists them in the order they were produced.
type Table struct {
	names map[uint32]string
	order []uint32
	width int
}

func New() *Table {
	return &Table{names: make(map[uint32]string), width: 3}
}

// Set binds name to addr. The first name bound to an address wins.
func (t *Table) Set(addr uint32, name string) {
	if _, ok := t.names[addr]; ok {
		return
	}
	t.names[addr] = name
	t.order = append(t.order, addr)
}

// Lookup returns the name bound to addr.
func (t *Table) Lookup(addr uint32) (string, bool) {
	n, ok := t.names[addr]
	return n, ok
}

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.order) }

// Entries returns all entries in insertion order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.order))
	for i, a := range t.order {
		out[i] = Entry{Addr: a, Name: t.names[a]}
	}
	return out
}

// SetWidth sets the zero-padding width used by Resolve.
func (t *Table) SetWidth(width int) { t.width = width }

// Resolve returns the label of addr, or a name synthesized from ordinal.
func (t *Table) Resolve(addr uint32, kind Kind, ordinal int) string {
	if n, ok := t.names[addr]; ok {
		return n
	}
	return Synthesize(kind, ordinal, t.width)
}

// Width returns the padding width for count items: max(3, digits(count)).
func Width(count int) int {
	return max(3, len(strconv.Itoa(count)))
}

// Synthesize builds a name like "object_007".
func Synthesize(kind Kind, ordinal, width int) string {
	return fmt.Sprintf("%s_%0*d", kind, width, ordinal)
}
