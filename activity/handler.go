package activity

import "reflect"

// MarkHandler is told whenever a mark is set (active=true) or cleared (active=false).
// It is called every time a mark is set, including refreshes of a mark that
// was already active.
type MarkHandler interface {
	Mark(register string, kind EventKind, active bool)
}

// ValueHandler is told whenever the cached value of a register changes
type ValueHandler interface {
	ValueChanged(register string, value int64)
}

// MarkHandlerFunc adapts a function to MarkHandler
type MarkHandlerFunc func(register string, kind EventKind, active bool)

// Mark calls f
func (f MarkHandlerFunc) Mark(register string, kind EventKind, active bool) {
	f(register, kind, active)
}

// ValueHandlerFunc adapts a function to ValueHandler
type ValueHandlerFunc func(register string, value int64)

// ValueChanged calls f
func (f ValueHandlerFunc) ValueChanged(register string, value int64) {
	f(register, value)
}

// MarkFanout delivers each mark to every handler, in order
type MarkFanout []MarkHandler

// Mark implements MarkHandler
func (mf MarkFanout) Mark(register string, kind EventKind, active bool) {
	for _, h := range mf {
		if !isNil(h) {
			h.Mark(register, kind, active)
		}
	}
}

// ValueFanout delivers each value change to every handler, in order
type ValueFanout []ValueHandler

// ValueChanged implements ValueHandler
func (vf ValueFanout) ValueChanged(register string, value int64) {
	for _, h := range vf {
		if !isNil(h) {
			h.ValueChanged(register, value)
		}
	}
}

// isNil is true for an untyped nil and for an interface holding a nil pointer,
// func, map or slice
func isNil(h interface{}) bool {
	if h == nil {
		return true
	}
	switch v := reflect.ValueOf(h); v.Kind() {
	case reflect.Ptr, reflect.Func, reflect.Map, reflect.Slice, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}
