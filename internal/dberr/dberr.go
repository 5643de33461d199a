// Package dberr defines the system's three error kinds and their HTTP status
// mapping, in the sentinel-plus-wrap idiom the rest of this codebase's
// reference material uses (var errX = errors.New(...); fmt.Errorf("%w: ...")),
// generalized with a Kind tag so the HTTP layer can classify any error
// produced anywhere in the pipeline without a type switch per call site.
package dberr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for the purposes of HTTP status mapping and
// propagation policy.
type Kind int

const (
	// KindInvalidRequest: malformed SQL, unsupported construct, a
	// projection/group-by/order-by rule violation, an unknown column, a
	// limit parse failure, or a CSV row shape mismatch. User-visible 400.
	KindInvalidRequest Kind = iota
	// KindStorage: key/value engine failure, missing table, decoding
	// failure, or an empty table (no header record) during query. 500.
	KindStorage
	// KindConsistency: an internal invariant broke (e.g. the order-by
	// wrapper's ordered index double-inserted an ordinal). Must never be
	// raised during a successful query. 500.
	KindConsistency
)

func (k Kind) String() string {
	switch k {
	case KindInvalidRequest:
		return "invalid_request"
	case KindStorage:
		return "storage"
	case KindConsistency:
		return "consistency"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a Kind, so callers can map it to an
// HTTP status without re-deriving the classification.
type Error struct {
	Kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

func newErr(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Invalid builds a KindInvalidRequest error.
func Invalid(format string, args ...any) error { return newErr(KindInvalidRequest, format, args...) }

// Storagef builds a KindStorage error.
func Storagef(format string, args ...any) error { return newErr(KindStorage, format, args...) }

// Consistencyf builds a KindConsistency error.
func Consistencyf(format string, args ...any) error { return newErr(KindConsistency, format, args...) }

// Wrap reclassifies an existing error under the given kind, preserving it as
// the wrapped cause (errors.Is/As still reach it).
func Wrap(kind Kind, err error, format string, args ...any) error {
	e := newErr(kind, format, args...)
	e.err = err
	return e
}

// KindOf extracts the Kind of err, defaulting to KindStorage for errors this
// package didn't produce (an unclassified failure is treated as an internal
// failure, never exposed as a 400).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

// HTTPStatus maps an error to the status code the web layer should send.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
