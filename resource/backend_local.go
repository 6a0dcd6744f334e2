package resource

import (
	"errors"
	"math"
	"sync"
)

var ErrClosed = errors.New("resource backend closed")

// LocalBackend is the in-memory slot store behind a table.
type LocalBackend struct {
	entries  []entry
	freeList []int
	mu       sync.RWMutex
	closed   bool
}

type entry struct {
	value  any
	typeID uint32
	gen    uint32
	valid  bool
}

// NewLocalBackend creates a new in-memory backend.
func NewLocalBackend() *LocalBackend {
	return &LocalBackend{
		entries:  make([]entry, 0, 64),
		freeList: make([]int, 0, 16),
	}
}

// Create stores a value and returns a handle.
func (b *LocalBackend) Create(typeID uint32, value any) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrClosed
	}

	if len(b.freeList) > 0 {
		slot := b.freeList[len(b.freeList)-1]
		b.freeList = b.freeList[:len(b.freeList)-1]
		e := &b.entries[slot]
		e.typeID = typeID
		e.value = value
		e.valid = true
		return makeHandle(slot, e.gen), nil
	}

	if uint64(len(b.entries)) >= math.MaxUint32 {
		return 0, errors.New("resource table full")
	}
	b.entries = append(b.entries, entry{typeID: typeID, value: value, valid: true})
	return makeHandle(len(b.entries)-1, 0), nil
}

// state resolves a handle against its slot. Caller holds the lock.
func (b *LocalBackend) state(handle Handle) (*entry, State) {
	slot := handle.slot()
	if slot < 0 || slot >= len(b.entries) {
		return nil, StateUninitialized
	}
	e := &b.entries[slot]
	gen := handle.generation()
	switch {
	case gen > e.gen:
		return nil, StateUninitialized
	case gen < e.gen || !e.valid:
		return nil, StateClosed
	default:
		return e, StateOpen
	}
}

// Get retrieves a value by handle.
func (b *LocalBackend) Get(handle Handle) (any, State) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e, st := b.state(handle)
	if st != StateOpen {
		return nil, st
	}
	return e.value, StateOpen
}

// TypeID returns the type ID for an open handle.
func (b *LocalBackend) TypeID(handle Handle) (uint32, State) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e, st := b.state(handle)
	if st != StateOpen {
		return 0, st
	}
	return e.typeID, StateOpen
}

// Drop closes a handle. It returns the value and StateOpen when this call
// closed it, otherwise nil and the state that prevented it.
func (b *LocalBackend) Drop(handle Handle) (any, State) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, st := b.state(handle)
	if st != StateOpen {
		return nil, st
	}

	value := e.value
	e.value = nil
	e.valid = false
	if e.gen < math.MaxUint32 {
		e.gen++
		b.freeList = append(b.freeList, handle.slot())
	}
	return value, StateOpen
}

// Close drops every open value and rejects further creates. Slots are kept so
// handles issued before Close still resolve as StateClosed.
func (b *LocalBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for i := range b.entries {
		if b.entries[i].valid {
			if d, ok := b.entries[i].value.(Dropper); ok {
				d.Drop()
			}
			b.entries[i].valid = false
			b.entries[i].value = nil
		}
	}

	b.freeList = nil
	return nil
}

// Len returns the number of open handles.
func (b *LocalBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for _, e := range b.entries {
		if e.valid {
			count++
		}
	}
	return count
}

// Each iterates over all open handles.
func (b *LocalBackend) Each(fn func(Handle, uint32, any) bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for i, e := range b.entries {
		if e.valid {
			if !fn(makeHandle(i, e.gen), e.typeID, e.value) {
				break
			}
		}
	}
}
