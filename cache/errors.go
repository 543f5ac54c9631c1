package cache

import (
	"errors"
	"fmt"
	"reflect"

	goerrors "github.com/goliatone/go-errors"
)

// Sentinel errors for the caching machinery. Errors returned by this package wrap
// one of these so callers can branch with errors.Is.
var (
	// ErrUnserializableArgument is returned when a call argument has no textual form.
	ErrUnserializableArgument = errors.New("cache: argument has no textual representation")

	// ErrInvalidTag is returned for tags that embed a key marker such as ":00=".
	ErrInvalidTag = errors.New("cache: invalid tag")

	// ErrInterfaceResult is returned when a computed result is declared with an
	// interface type.
	ErrInterfaceResult = errors.New("cache: result type must be concrete")

	// ErrUnsupportedType is returned when a serializer cannot encode or decode a value.
	ErrUnsupportedType = errors.New("cache: unsupported type for serializer")

	// ErrInvalidSerializer is returned when a custom serializer lacks encode or decode.
	ErrInvalidSerializer = errors.New("cache: invalid serializer")

	// ErrUnknownSerializer is returned for serializer names that are not registered.
	ErrUnknownSerializer = errors.New("cache: unknown serializer")

	// ErrNilStore is returned when a controller is built without a store.
	ErrNilStore = errors.New("cache: store is nil")

	// ErrInvalidConfig is returned when a Config fails validation.
	ErrInvalidConfig = errors.New("cache: invalid configuration")

	// ErrUnsupportedScheme is returned when a connection URL has an unknown scheme.
	ErrUnsupportedScheme = errors.New("cache: unsupported connection scheme")
)

// Text codes attached to the categorized errors.
const (
	CodeUnserializableArgument = "UNSERIALIZABLE_ARGUMENT"
	CodeInvalidTag             = "INVALID_TAG"
	CodeInterfaceResult        = "INTERFACE_RESULT"
	CodeUnsupportedType        = "UNSUPPORTED_TYPE"
	CodeInvalidSerializer      = "INVALID_SERIALIZER"
	CodeUnknownSerializer      = "UNKNOWN_SERIALIZER"
	CodeInvalidConfig          = "INVALID_CONFIG"
	CodeNilStore               = "NIL_STORE"
	CodeUnsupportedScheme      = "UNSUPPORTED_SCHEME"
)

func invalidTag(tag string) error {
	return newError(
		ErrInvalidTag,
		goerrors.CategoryBadInput,
		CodeInvalidTag,
		fmt.Sprintf("tag %q embeds a key marker", tag),
		nil,
	)
}

func interfaceResult(rt reflect.Type) error {
	return newError(
		ErrInterfaceResult,
		goerrors.CategoryBadInput,
		CodeInterfaceResult,
		fmt.Sprintf("cannot cache results declared as %s", rt),
		nil,
	)
}

// newError categorizes a sentinel kind, keeping an optional cause in the chain.
func newError(kind error, category goerrors.Category, code, message string, cause error) error {
	source := kind
	if cause != nil {
		source = errors.Join(kind, cause)
	}
	return goerrors.Wrap(source, category, message).WithTextCode(code)
}
