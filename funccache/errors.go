package funccache

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

var (
	// ErrNilController is returned by wrapped functions built without a controller.
	ErrNilController = errors.New("funccache: controller is nil")

	// ErrNoResult is returned when an async function closes its channel without
	// delivering a result.
	ErrNoResult = errors.New("funccache: async function produced no result")
)

const (
	CodeNilController = "NIL_CONTROLLER"
	CodeNoResult      = "NO_RESULT"
)

func nilController(name string) error {
	return goerrors.Wrap(ErrNilController, goerrors.CategoryInternal, "cannot cache "+name+" without a controller").
		WithTextCode(CodeNilController)
}

func noResult(name string) error {
	return goerrors.Wrap(ErrNoResult, goerrors.CategoryInternal, name+" closed its result channel without a value").
		WithTextCode(CodeNoResult)
}
