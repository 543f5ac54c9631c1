package cache

import (
	"encoding"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// argSerializer renders call arguments into the textual form used inside cache keys.
// The output is deterministic: maps are sorted by rendered key and struct fields
// follow declaration order. Values with no textual form (funcs, channels, unsafe
// pointers) are rejected with ErrUnserializableArgument, and so are values that
// reference themselves.
type argSerializer struct {
	// visiting holds the pointers, maps and slices on the path being rendered.
	visiting map[visit]struct{}
}

// visit identifies a reference value. The slice length is part of the
// identity so a slice and a shorter view of the same array stay distinct.
type visit struct {
	ptr uintptr
	typ reflect.Type
	len int
}

var errCyclicValue = errors.New("value references itself")

var (
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
	stringerType      = reflect.TypeOf((*fmt.Stringer)(nil)).Elem()
)

// Render returns the repr-style text for a single value.
func (s argSerializer) Render(v any) (string, error) {
	s.visiting = make(map[visit]struct{})
	return s.serializeValue(reflect.ValueOf(v))
}

// enter records rv on the current path. The returned func removes it again,
// so a value shared by two siblings still renders twice.
func (s argSerializer) enter(rv reflect.Value) (func(), error) {
	v := visit{ptr: rv.Pointer(), typ: rv.Type()}
	if rv.Kind() == reflect.Slice {
		v.len = rv.Len()
	}
	if _, ok := s.visiting[v]; ok {
		return nil, unserializable(rv.Type(), errCyclicValue)
	}
	s.visiting[v] = struct{}{}
	return func() { delete(s.visiting, v) }, nil
}

func (s argSerializer) serializeValue(rv reflect.Value) (string, error) {
	if !rv.IsValid() {
		return "nil", nil
	}

	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice:
		if rv.IsNil() {
			return s.nilValue(rv.Kind()), nil
		}
	}

	if text, ok, err := s.serializeText(rv); ok || err != nil {
		return text, err
	}

	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			break
		}
		leave, err := s.enter(rv)
		if err != nil {
			return "", err
		}
		defer leave()
	}

	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		return s.serializeValue(rv.Elem())
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 32), nil
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, 64), nil
	case reflect.Complex64, reflect.Complex128:
		return fmt.Sprintf("%v", rv.Complex()), nil
	case reflect.String:
		return strconv.Quote(rv.String()), nil
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return "b" + strconv.Quote(string(rv.Bytes())), nil
		}
		return s.serializeList(rv)
	case reflect.Array:
		return s.serializeList(rv)
	case reflect.Map:
		return s.serializeMap(rv)
	case reflect.Struct:
		return s.serializeStruct(rv)
	default:
		return "", unserializable(rv.Type(), nil)
	}
}

func (s argSerializer) nilValue(kind reflect.Kind) string {
	switch kind {
	case reflect.Slice:
		return "[]"
	case reflect.Map:
		return "{}"
	default:
		return "nil"
	}
}

// serializeText uses TextMarshaler before Stringer: time.Time's String output
// carries the monotonic clock reading and would never repeat.
func (s argSerializer) serializeText(rv reflect.Value) (string, bool, error) {
	if !rv.CanInterface() {
		return "", false, nil
	}

	rt := rv.Type()
	switch {
	case rt.Implements(textMarshalerType):
		text, err := rv.Interface().(encoding.TextMarshaler).MarshalText()
		if err != nil {
			return "", false, unserializable(rt, err)
		}
		return strconv.Quote(string(text)), true, nil
	case rt.Implements(stringerType):
		return strconv.Quote(rv.Interface().(fmt.Stringer).String()), true, nil
	}
	return "", false, nil
}

func (s argSerializer) serializeList(rv reflect.Value) (string, error) {
	parts := make([]string, rv.Len())
	for i := range parts {
		part, err := s.serializeValue(rv.Index(i))
		if err != nil {
			return "", err
		}
		parts[i] = part
	}
	return "[" + strings.Join(parts, ", ") + "]", nil
}

// serializeMap sorts entries by their rendered key for deterministic output.
func (s argSerializer) serializeMap(rv reflect.Value) (string, error) {
	type entry struct{ key, value string }

	entries := make([]entry, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		key, err := s.serializeValue(iter.Key())
		if err != nil {
			return "", err
		}
		value, err := s.serializeValue(iter.Value())
		if err != nil {
			return "", err
		}
		entries = append(entries, entry{key: key, value: value})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].key == entries[j].key {
			return entries[i].value < entries[j].value
		}
		return entries[i].key < entries[j].key
	})

	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = e.key + ": " + e.value
	}
	return "{" + strings.Join(parts, ", ") + "}", nil
}

// serializeStruct renders exported fields as TypeName{Field: value}.
func (s argSerializer) serializeStruct(rv reflect.Value) (string, error) {
	rt := rv.Type()
	parts := make([]string, 0, rv.NumField())

	for i := 0; i < rv.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		value, err := s.serializeValue(rv.Field(i))
		if err != nil {
			return "", err
		}
		parts = append(parts, field.Name+": "+value)
	}

	name := rt.String()
	if rt.Name() == "" {
		name = "struct"
	}
	return name + "{" + strings.Join(parts, ", ") + "}", nil
}

func unserializable(rt reflect.Type, cause error) error {
	return newError(
		ErrUnserializableArgument,
		goerrors.CategoryBadInput,
		CodeUnserializableArgument,
		fmt.Sprintf("cannot render argument of type %s", rt),
		cause,
	)
}
