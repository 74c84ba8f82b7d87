package modifier

// TableModifier cycles through a table of variable-length byte entries.
//
// The table is owned by the caller and never modified; duplicates share
// it. An empty table has no value of its own and carries on every Next.
// A single-entry table is constant and never carries.
type TableModifier struct {
	table [][]byte
	cycle cycle
}

// NewTableModifier creates a table modifier.
func NewTableModifier(table [][]byte, stutter int32) *TableModifier {
	return &TableModifier{
		table: table,
		cycle: newCycle(uint32(len(table)), stutter),
	}
}

func (m *TableModifier) Next() bool {
	if len(m.table) == 0 {
		return true
	}
	_, carry := m.cycle.next()
	return carry && len(m.table) > 1
}

func (m *TableModifier) SetCursor(pos uint64) uint64 {
	if len(m.table) == 0 {
		return pos / (m.cycle.stutter + 1)
	}
	child := m.cycle.set(pos)
	if len(m.table) == 1 {
		return 0
	}
	return child
}

func (m *TableModifier) current() []byte {
	if m.cycle.cursor >= uint64(len(m.table)) {
		return nil
	}
	return m.table[m.cycle.cursor]
}

// Value copies the current entry into dst, byte-reversed when reverse is
// set. Entries are written verbatim; no mask applies.
func (m *TableModifier) Value(dst []byte, reverse bool) {
	entry := m.current()
	if !reverse {
		copy(dst, entry)
		return
	}
	n := len(entry)
	if len(dst) < n {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		dst[i] = entry[len(entry)-1-i]
	}
}

// Size returns the length of the current entry, 0 for an empty table.
func (m *TableModifier) Size() int {
	return len(m.current())
}

func (m *TableModifier) Duplicate() Modifier {
	d := *m
	return &d
}

// Len returns the number of table entries.
func (m *TableModifier) Len() int {
	return len(m.table)
}
