package modifier

import (
	"fmt"
	"sort"
)

// FlowVarIdx identifies one configured variable of one flow.
type FlowVarIdx struct {
	Flow uint16
	Var  uint8
}

func (k FlowVarIdx) String() string {
	return fmt.Sprintf("flow %d var %d", k.Flow, k.Var)
}

func (k FlowVarIdx) less(o FlowVarIdx) bool {
	if k.Flow != o.Flow {
		return k.Flow < o.Flow
	}
	return k.Var < o.Var
}

const noChild = -1

type node struct {
	key       FlowVarIdx
	mod       Modifier
	child     int
	hasParent bool
}

// Block owns every modifier of a configuration and the links between
// them. Modifiers live in one slice; a link is an index into it.
//
// A Block is driven by one caller. Use Clone to hand an independent copy
// to another goroutine.
type Block struct {
	nodes []node
	index map[FlowVarIdx]int
}

// NewBlock creates an empty block.
func NewBlock() *Block {
	return &Block{index: make(map[FlowVarIdx]int)}
}

// Add stores m under key.
func (b *Block) Add(key FlowVarIdx, m Modifier) error {
	if _, ok := b.index[key]; ok {
		return &ConfigError{Key: key, Err: ErrDuplicateVariable}
	}
	b.index[key] = len(b.nodes)
	b.nodes = append(b.nodes, node{key: key, mod: m, child: noChild})
	return nil
}

// SetChild makes child the next digit of parent's chain.
func (b *Block) SetChild(parent, child FlowVarIdx) error {
	p, ok := b.index[parent]
	if !ok {
		return &ConfigError{Key: parent, Err: ErrUnknownVariable}
	}
	c, ok := b.index[child]
	if !ok {
		return &ConfigError{Key: child, Err: ErrUnknownVariable}
	}
	if b.nodes[p].child != noChild {
		return &ConfigError{Key: parent, Err: ErrParentTaken}
	}
	if b.nodes[c].hasParent {
		return &ConfigError{Key: child, Err: ErrChildTaken}
	}
	// child is a chain root here, so walking down from it finds parent
	// only if the link would close a loop.
	for i := c; i != noChild; i = b.nodes[i].child {
		if i == p {
			return &ConfigError{Key: parent, Err: fmt.Errorf("%w via %s", ErrCycle, child)}
		}
	}
	b.nodes[p].child = c
	b.nodes[c].hasParent = true
	return nil
}

func (b *Block) HasChild(key FlowVarIdx) bool {
	i, ok := b.index[key]
	return ok && b.nodes[i].child != noChild
}

func (b *Block) HasParent(key FlowVarIdx) bool {
	i, ok := b.index[key]
	return ok && b.nodes[i].hasParent
}

// Child returns the key of key's child, if any.
func (b *Block) Child(key FlowVarIdx) (FlowVarIdx, bool) {
	i, ok := b.index[key]
	if !ok || b.nodes[i].child == noChild {
		return FlowVarIdx{}, false
	}
	return b.nodes[b.nodes[i].child].key, true
}

// Modifier returns the modifier stored under key.
func (b *Block) Modifier(key FlowVarIdx) (Modifier, bool) {
	i, ok := b.index[key]
	if !ok {
		return nil, false
	}
	return b.nodes[i].mod, true
}

// Len returns the number of modifiers.
func (b *Block) Len() int {
	return len(b.nodes)
}

// Keys returns all keys in (flow, var) order.
func (b *Block) Keys() []FlowVarIdx {
	keys := make([]FlowVarIdx, 0, len(b.nodes))
	for _, n := range b.nodes {
		keys = append(keys, n.key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })
	return keys
}

// Roots returns the keys of chain roots in (flow, var) order.
func (b *Block) Roots() []FlowVarIdx {
	var roots []FlowVarIdx
	for _, key := range b.Keys() {
		if !b.HasParent(key) {
			roots = append(roots, key)
		}
	}
	return roots
}

// Next advances every chain by one position.
func (b *Block) Next() {
	for i := range b.nodes {
		if b.nodes[i].hasParent {
			continue
		}
		for j := i; j != noChild && b.nodes[j].mod.Next(); {
			j = b.nodes[j].child
		}
	}
}

// SetCursor positions every chain at pos.
func (b *Block) SetCursor(pos uint64) {
	for i := range b.nodes {
		if b.nodes[i].hasParent {
			continue
		}
		p := pos
		for j := i; j != noChild; j = b.nodes[j].child {
			p = b.nodes[j].mod.SetCursor(p)
		}
	}
}

// Size returns the current field size of key, 0 if key is unknown.
func (b *Block) Size(key FlowVarIdx) int {
	i, ok := b.index[key]
	if !ok {
		return 0
	}
	return b.nodes[i].mod.Size()
}

// Value writes key's current value into dst. Unknown keys leave dst
// untouched.
func (b *Block) Value(key FlowVarIdx, dst []byte, reverse bool) {
	if i, ok := b.index[key]; ok {
		b.nodes[i].mod.Value(dst, reverse)
	}
}

// Clone returns a deep copy sharing no mutable state with b. Links are
// indices, so the copied topology needs no remapping.
func (b *Block) Clone() *Block {
	c := &Block{
		nodes: make([]node, len(b.nodes)),
		index: make(map[FlowVarIdx]int, len(b.index)),
	}
	for i, n := range b.nodes {
		n.mod = n.mod.Duplicate()
		c.nodes[i] = n
	}
	for k, v := range b.index {
		c.index[k] = v
	}
	return c
}
