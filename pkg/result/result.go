// Package result defines the tagged three-state envelope returned by every
// adapter operation, and the guarded-call wrapper that converts failures into
// it. Callers branch on the tag; an operation wrapped by Guard never panics
// past the boundary.
package result

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/unifex/exchange-adapter/pkg/logging"
)

// Status is the envelope tag. Exactly one per Result.
type Status int

const (
	// StatusSuccess carries data.
	StatusSuccess Status = 0
	// StatusError carries a message for a genuine failure: network fault,
	// bad response, validation failure, ambiguous data.
	StatusError Status = -1
	// StatusUnsupported means the exchange/market-type genuinely lacks the
	// operation. It is not an error and drives fallback paths.
	StatusUnsupported Status = -2
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusError:
		return "ERROR"
	case StatusUnsupported:
		return "UNSUPPORTED"
	default:
		return "INVALID"
	}
}

// ErrUnsupported marks an operation as not offered by the venue. Errors
// wrapping it become Unsupported results at the Guard boundary; everything
// else becomes an Error result.
var ErrUnsupported = errors.New("operation not supported")

// Unsupportedf builds an error that Guard classifies as Unsupported.
func Unsupportedf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrUnsupported)
}

// Result is the three-state tagged union {Success(data), Error(msg),
// Unsupported(msg)}.
type Result[T any] struct {
	status Status
	data   T
	msg    string
}

// Ok wraps a successful value.
func Ok[T any](v T) Result[T] { return Result[T]{status: StatusSuccess, data: v} }

// Fail wraps an error message.
func Fail[T any](msg string) Result[T] { return Result[T]{status: StatusError, msg: msg} }

// Failf formats an error message.
func Failf[T any](format string, args ...any) Result[T] {
	return Fail[T](fmt.Sprintf(format, args...))
}

// Unsupported wraps a not-offered message.
func Unsupported[T any](msg string) Result[T] {
	return Result[T]{status: StatusUnsupported, msg: msg}
}

// Status returns the envelope tag.
func (r Result[T]) Status() Status { return r.status }

func (r Result[T]) IsSuccess() bool     { return r.status == StatusSuccess }
func (r Result[T]) IsError() bool       { return r.status == StatusError }
func (r Result[T]) IsUnsupported() bool { return r.status == StatusUnsupported }

// Data returns the success value. Reading Data without checking the tag is a
// contract violation on the caller's side; the zero value is returned for
// non-success envelopes.
func (r Result[T]) Data() T { return r.data }

// Msg returns the error or unsupported message, empty on success.
func (r Result[T]) Msg() string { return r.msg }

// Err converts the envelope into an error: nil on success, ErrUnsupported-
// wrapped for unsupported, plain error otherwise.
func (r Result[T]) Err() error {
	switch r.status {
	case StatusSuccess:
		return nil
	case StatusUnsupported:
		return fmt.Errorf("%s: %w", r.msg, ErrUnsupported)
	default:
		return errors.New(r.msg)
	}
}

// Recast carries a non-success envelope across value types, preserving tag
// and message. Recasting a success envelope is a caller bug and degrades to
// an Error result.
func Recast[U, T any](r Result[T]) Result[U] {
	switch r.status {
	case StatusUnsupported:
		return Unsupported[U](r.msg)
	case StatusError:
		return Fail[U](r.msg)
	default:
		return Fail[U]("recast of a success result")
	}
}

// From converts a (value, error) pair into an envelope using the shared
// error taxonomy.
func From[T any](v T, err error) Result[T] {
	if err == nil {
		return Ok(v)
	}
	if errors.Is(err, ErrUnsupported) {
		return Unsupported[T](err.Error())
	}
	return Fail[T](err.Error())
}

// Guard runs fn and converts its outcome into a Result. Errors wrapping
// ErrUnsupported become Unsupported (not logged as errors); any other error
// becomes Error, logged at error severity. A panic inside fn is recovered
// and surfaced as Error with the stack logged under debug. Guard guarantees
// the operation never raises past this boundary.
func Guard[T any](log logging.Logger, op string, fn func() (T, error)) (res Result[T]) {
	if log == nil {
		log = logging.NewNop()
	}
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("panic in wrapped operation",
				logging.String("op", op),
				logging.Any("panic", rec),
			)
			log.Debug("wrapped operation stack",
				logging.String("op", op),
				logging.String("stack", string(debug.Stack())),
			)
			res = Failf[T]("panic in %s: %v", op, rec)
		}
	}()

	v, err := fn()
	if err == nil {
		return Ok(v)
	}
	if errors.Is(err, ErrUnsupported) {
		return Unsupported[T](err.Error())
	}
	log.Error("wrapped operation failed",
		logging.String("op", op),
		logging.Error(err),
	)
	return Fail[T](err.Error())
}
