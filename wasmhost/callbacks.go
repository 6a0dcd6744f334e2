package wasmhost

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/geobridge/bridge"
	"github.com/wippyai/geobridge/geometry"
)

// guestCallbacks calls back into the guest that invoked the current host
// function. ctx is replaced on every entry from that guest.
type guestCallbacks struct {
	ctx      context.Context
	mem      *Memory
	equal    api.Function
	identify api.Function
	release  api.Function
}

// A trap inside a callback cannot be returned through host.Callbacks, so it
// is re-raised and surfaces as a trap of the host function that called it.
func (g *guestCallbacks) ValuesEqual(a, b geometry.Coordinate) bool {
	results, err := g.equal.Call(g.ctx,
		api.EncodeF64(a.X), api.EncodeF64(a.Y),
		api.EncodeF64(b.X), api.EncodeF64(b.Y))
	if err != nil {
		panic(err)
	}
	return len(results) > 0 && api.DecodeI32(results[0]) != 0
}

func (g *guestCallbacks) GenerateIdentifier() bridge.ForeignString {
	results, err := g.identify.Call(g.ctx)
	if err != nil {
		panic(err)
	}
	if len(results) == 0 {
		return bridge.ForeignString{}
	}
	ptr := api.DecodeU32(results[0])
	if ptr == 0 {
		return bridge.ForeignString{}
	}

	data, err := g.mem.ReadCString(ptr)
	if err != nil {
		data = nil
	}
	return bridge.NewForeignString(data, func() {
		if _, err := g.release.Call(g.ctx, uint64(ptr)); err != nil {
			panic(err)
		}
	})
}
