package wasmhost

import (
	"github.com/wippyai/geobridge/errors"
)

// BlockKind says which free entry point a core-owned guest block belongs to.
type BlockKind uint8

const (
	KindArray BlockKind = iota + 1
	KindString
)

func (k BlockKind) String() string {
	switch k {
	case KindArray:
		return "point array"
	case KindString:
		return "description"
	default:
		return "unknown"
	}
}

// Block is one allocation the core made in guest memory.
type Block struct {
	Ptr   uint32
	Size  uint32
	Align uint32
	Kind  BlockKind
}

// Ledger records the blocks the core has handed to one guest and not yet
// had back. The C surface cannot tell its blocks apart; a guest can be
// checked, so it is.
type Ledger struct {
	blocks map[uint32]Block
}

func NewLedger() *Ledger {
	return &Ledger{blocks: make(map[uint32]Block)}
}

func (l *Ledger) Add(b Block) {
	l.blocks[b.Ptr] = b
}

// Take removes the block at ptr if it is of the expected kind. A pointer the
// core never handed out, one already freed, or one of the other kind is an
// error and leaves the ledger unchanged.
func (l *Ledger) Take(op string, ptr uint32, kind BlockKind) (Block, error) {
	b, ok := l.blocks[ptr]
	if !ok {
		return Block{}, errors.UnknownAllocation(errors.PhaseGuest, op, ptr)
	}
	if b.Kind != kind {
		return Block{}, errors.New(errors.PhaseGuest, errors.KindUnknownAllocation).
			Op(op).
			Value(ptr).
			Detail("block %d is a %s, not a %s", ptr, b.Kind, kind).
			Build()
	}
	delete(l.blocks, ptr)
	return b, nil
}

// Count returns the number of outstanding blocks.
func (l *Ledger) Count() int {
	return len(l.blocks)
}

// Each calls fn for every outstanding block.
func (l *Ledger) Each(fn func(Block)) {
	for _, b := range l.blocks {
		fn(b)
	}
}
