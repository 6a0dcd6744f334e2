// Package resource provides the handle table behind geobridge's opaque handles.
//
// A handle is an integer the host can store and pass back; only the table can
// turn it into the Go value it names. Each handle moves through three states:
//
//	Uninitialized  never issued by this table (including handle 0)
//	Open           issued and not yet removed
//	Closed         removed; every later use is rejected
//
// # Generations
//
// A handle packs a slot index and a generation:
//
//	 63            32 31             0
//	┌────────────────┬────────────────┐
//	│   generation   │    slot + 1    │
//	└────────────────┴────────────────┘
//
// Removing a handle bumps its slot's generation before the slot is reused, so
// the removed handle value stays Closed forever and a second Remove is
// reported as Closed rather than silently dropping a newer value. A slot whose
// generation is exhausted is retired instead of reused.
//
// # Handle Table
//
//	table := resource.NewTable()
//
//	h := table.Insert(PolygonType, poly)
//	value, state := table.GetTyped(h, PolygonType) // state == StateOpen
//	value, state = table.Remove(h)                  // state == StateOpen: removed now
//	_, state = table.Remove(h)                      // state == StateClosed
//
// # Observers
//
// Register observers to track lifecycle events:
//
//	table.Subscribe(observer) // OnResourceEvent(Event{Type: EventCreated, ...})
//
// # Memory Management
//
// Values are not garbage collected while they sit in the table. The host must
// remove every handle it creates. Close drops whatever is left and calls
// Drop on values that implement Dropper.
package resource
