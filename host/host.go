// Package host defines the capability a host runtime supplies to the core.
//
// The core never resolves host functions by name. A Callbacks value is handed
// to it at initialization and every polygon operation that needs the host
// goes through that value.
package host

import (
	"github.com/wippyai/geobridge/bridge"
	"github.com/wippyai/geobridge/errors"
	"github.com/wippyai/geobridge/geometry"
)

// Callbacks is the pair of functions the host provides.
//
// GenerateIdentifier returns text the host allocated. The core copies it and
// releases it through the ForeignString before the creating call returns.
type Callbacks interface {
	geometry.Equaler
	GenerateIdentifier() bridge.ForeignString
}

// Funcs adapts two plain functions to Callbacks.
type Funcs struct {
	Equal    func(a, b geometry.Coordinate) bool
	Identify func() bridge.ForeignString
}

func (f Funcs) ValuesEqual(a, b geometry.Coordinate) bool {
	return f.Equal(a, b)
}

func (f Funcs) GenerateIdentifier() bridge.ForeignString {
	return f.Identify()
}

// Validate reports whether cb can be called. A nil interface or a Funcs with
// a missing function is not initialized. Other implementations are checked
// through their own Validate method when they have one, which must accept a
// nil receiver.
func Validate(cb Callbacks) error {
	switch v := cb.(type) {
	case nil:
		return errors.NotInitialized(errors.PhaseCallback, "", "callbacks")
	case Funcs:
		if v.Equal == nil {
			return errors.NotInitialized(errors.PhaseCallback, "values_equal", "values_equal callback")
		}
		if v.Identify == nil {
			return errors.NotInitialized(errors.PhaseCallback, "generate_identifier", "generate_identifier callback")
		}
	case *Funcs:
		if v == nil {
			return errors.NotInitialized(errors.PhaseCallback, "", "callbacks")
		}
		return Validate(*v)
	case interface{ Validate() error }:
		return v.Validate()
	}
	return nil
}
