package modifier

// Field value generators for synthetic traffic.
//
// A modifier produces one field's bytes across a sequence of positions.
// Modifiers are linked into chains inside a Block: the child of a
// modifier advances once per full cycle of its parent, so a chain behaves
// like a mixed-radix odometer whose digits are independent generators.

// Modifier is a stateful generator of one field's value.
//
// Next and SetCursor only move the receiver. Carry propagation to the
// next digit of a chain is done by the owning Block using the returned
// values, so a modifier never holds a reference to another modifier.
type Modifier interface {
	// Next advances by one position and reports whether the modifier
	// wrapped, i.e. whether its child must advance.
	Next() bool
	// SetCursor positions the modifier at pos and returns the position
	// its child must take.
	SetCursor(pos uint64) uint64
	// Value writes the current value into dst. See the package notes on
	// byte order and masking.
	Value(dst []byte, reverse bool)
	// Size returns the number of bytes Value writes at the current
	// position.
	Size() int
	// Duplicate returns an independent copy of this single modifier.
	Duplicate() Modifier
}
