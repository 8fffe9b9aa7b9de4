// Package assert panics on programmer errors in constructors.
package assert

import "reflect"

// NotNil panics on nil, including nil pointers, maps, slices, channels and
// funcs stored in an interface.
func NotNil(value any) {
	if value == nil {
		panic("expected value to be not nil")
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		if v.IsNil() {
			panic("expected value to be not nil, got a nil " + v.Type().String())
		}
	}
}

func NotEmptyStr(str string) {
	if str == "" {
		panic("expected string to be non-empty")
	}
}
