package enum

import (
	"fmt"
	"reflect"
)

var enumManager = map[string]any{}

type enum[T ~string] struct {
	toEnum map[string]T
	values *[]T
}

// New registers value as a member of its enum type and returns it. It must be
// called at package initialization.
func New[T ~string](value T) T {
	name := typeName[T]()
	if _, ok := enumManager[name]; !ok {
		enumManager[name] = enum[T]{toEnum: make(map[string]T), values: &[]T{}}
	}

	e := enumManager[name].(enum[T])
	if _, ok := e.toEnum[string(value)]; !ok {
		*e.values = append(*e.values, value)
	}
	e.toEnum[string(value)] = value

	return value
}

// ToEnum converts s to a registered member of T.
func ToEnum[T ~string](s string) (T, error) {
	var defaultT T
	e, ok := enumManager[typeName[T]()]
	if !ok {
		return defaultT, fmt.Errorf("not found enum type %T", defaultT)
	}

	t, ok := e.(enum[T]).toEnum[s]
	if !ok {
		return defaultT, fmt.Errorf("not found value %s in enum %T", s, defaultT)
	}

	return t, nil
}

// IsValid reports whether value is a registered member of T.
func IsValid[T ~string](value T) bool {
	_, err := ToEnum[T](string(value))
	return err == nil
}

// Values returns all registered members of T in registration order.
func Values[T ~string]() []T {
	e, ok := enumManager[typeName[T]()]
	if !ok {
		return nil
	}

	values := *e.(enum[T]).values
	return append([]T(nil), values...)
}

func typeName[T any]() string {
	var t T
	return reflect.TypeOf(t).String()
}
