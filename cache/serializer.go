package cache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/vmihailenco/msgpack/v5"
)

// Serializer names accepted by SerializerByName.
const (
	SerializerBinary = "binary"
	SerializerJSON   = "json"
)

// Serializer converts values to and from the bytes kept in the store.
// Decode writes into dst, which must be a non-nil pointer.
//
// Contract:
// - Round trip: Decode(Encode(v), &out) leaves out observably equal to v for
// every value the serializer supports.
// - Errors: unsupported values fail with ErrUnsupportedType.
type Serializer interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, dst any) error
}

// SerializerFuncs adapts a pair of functions to Serializer.
type SerializerFuncs struct {
	EncodeFunc func(v any) ([]byte, error)
	DecodeFunc func(data []byte, dst any) error
}

// Encode implements Serializer.
func (s SerializerFuncs) Encode(v any) ([]byte, error) {
	return s.EncodeFunc(v)
}

// Decode implements Serializer.
func (s SerializerFuncs) Decode(data []byte, dst any) error {
	return s.DecodeFunc(data, dst)
}

// NewSerializer builds a Serializer from encode and decode functions.
// Both are required.
func NewSerializer(encode func(v any) ([]byte, error), decode func(data []byte, dst any) error) (Serializer, error) {
	s := SerializerFuncs{EncodeFunc: encode, DecodeFunc: decode}
	if err := ValidateSerializer(s); err != nil {
		return nil, err
	}
	return s, nil
}

// ValidateSerializer rejects nil serializers and SerializerFuncs missing an operation.
func ValidateSerializer(s Serializer) error {
	if s == nil {
		return invalidSerializer("serializer is nil")
	}
	if rv := reflect.ValueOf(s); rv.Kind() == reflect.Ptr && rv.IsNil() {
		return invalidSerializer("serializer is a nil pointer")
	}

	var funcs SerializerFuncs
	switch v := s.(type) {
	case SerializerFuncs:
		funcs = v
	case *SerializerFuncs:
		funcs = *v
	default:
		return nil
	}

	if funcs.EncodeFunc == nil {
		return invalidSerializer("serializer is missing encode")
	}
	if funcs.DecodeFunc == nil {
		return invalidSerializer("serializer is missing decode")
	}
	return nil
}

// SerializerByName returns a built-in serializer. An empty name selects binary.
// "msgpack" is accepted as an alias of binary.
func SerializerByName(name string) (Serializer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", SerializerBinary, "msgpack":
		return BinarySerializer(), nil
	case SerializerJSON:
		return JSONSerializer(), nil
	default:
		return nil, newError(
			ErrUnknownSerializer,
			goerrors.CategoryValidation,
			CodeUnknownSerializer,
			fmt.Sprintf("unknown serializer %q, supported: %s, %s", name, SerializerBinary, SerializerJSON),
			nil,
		)
	}
}

// BinarySerializer returns the msgpack object codec. It supports nested
// containers, structs and time values. Map keys are sorted so equal values
// always encode to the same bytes.
func BinarySerializer() Serializer {
	return binarySerializer{}
}

type binarySerializer struct{}

func (binarySerializer) Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return nil, unsupportedType(SerializerBinary, "encode", v, err)
	}
	return buf.Bytes(), nil
}

func (binarySerializer) Decode(data []byte, dst any) error {
	if err := msgpack.Unmarshal(data, dst); err != nil {
		return unsupportedType(SerializerBinary, "decode", dst, err)
	}
	return nil
}

// JSONSerializer returns the text codec. Only JSON-representable values are
// accepted: raw byte slices, time values, channels, functions and complex
// numbers fail with ErrUnsupportedType.
func JSONSerializer() Serializer {
	return jsonSerializer{}
}

type jsonSerializer struct{}

var timeType = reflect.TypeOf(time.Time{})

func (jsonSerializer) Encode(v any) ([]byte, error) {
	if err := checkJSONValue(reflect.ValueOf(v)); err != nil {
		return nil, unsupportedType(SerializerJSON, "encode", v, err)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, unsupportedType(SerializerJSON, "encode", v, err)
	}
	return data, nil
}

func (jsonSerializer) Decode(data []byte, dst any) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return unsupportedType(SerializerJSON, "decode", dst, err)
	}
	return nil
}

// checkJSONValue walks v looking for values encoding/json would either reject
// or silently reshape (byte slices become base64, times become strings).
func checkJSONValue(rv reflect.Value) error {
	if !rv.IsValid() {
		return nil
	}

	rt := rv.Type()
	if rt == timeType {
		return fmt.Errorf("%s is not JSON representable", rt)
	}

	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return checkJSONValue(rv.Elem())
	case reflect.Slice:
		if rt.Elem().Kind() == reflect.Uint8 {
			return fmt.Errorf("raw bytes (%s) are not JSON representable", rt)
		}
		fallthrough
	case reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if err := checkJSONValue(rv.Index(i)); err != nil {
				return err
			}
		}
	case reflect.Map:
		iter := rv.MapRange()
		for iter.Next() {
			if err := checkJSONValue(iter.Value()); err != nil {
				return err
			}
		}
	case reflect.Struct:
		for i := 0; i < rv.NumField(); i++ {
			field := rt.Field(i)
			if !field.IsExported() || field.Tag.Get("json") == "-" {
				continue
			}
			if err := checkJSONValue(rv.Field(i)); err != nil {
				return err
			}
		}
	case reflect.Chan, reflect.Func, reflect.Complex64, reflect.Complex128, reflect.UnsafePointer:
		return fmt.Errorf("%s is not JSON representable", rt)
	}
	return nil
}

func unsupportedType(codec, op string, v any, cause error) error {
	return newError(
		ErrUnsupportedType,
		goerrors.CategoryBadInput,
		CodeUnsupportedType,
		fmt.Sprintf("%s serializer cannot %s %T", codec, op, v),
		cause,
	)
}

func invalidSerializer(message string) error {
	return newError(ErrInvalidSerializer, goerrors.CategoryValidation, CodeInvalidSerializer, message, nil)
}
