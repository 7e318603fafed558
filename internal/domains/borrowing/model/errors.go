package model

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	ErrCodeBookNotFound      = "BRW001"
	ErrCodeBorrowingNotFound = "BRW002"
	ErrCodeInvalidRequest    = "BRW003"
	ErrCodeUnavailable       = "BRW004"
	ErrCodeConflict          = "BRW005"
	ErrCodeInvalidTransition = "BRW006"
	ErrCodeForbidden         = "BRW007"
)

// Errors
var (
	ErrBookNotFound      = errors.New("book not found")
	ErrBorrowingNotFound = errors.New("borrowing not found")
	ErrInvalidRequest    = errors.New("invalid borrowing request")
	ErrUnavailable       = errors.New("book is not available for the requested dates")
	ErrConflict          = errors.New("capacity was consumed by another approval")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrForbidden         = errors.New("not allowed to perform this action")
)

// ErrorKind groups errors the way callers react to them
type ErrorKind string

const (
	KindNotFound          ErrorKind = "NOT_FOUND"
	KindInvalidRequest    ErrorKind = "INVALID_REQUEST"
	KindUnavailable       ErrorKind = "UNAVAILABLE"
	KindConflict          ErrorKind = "CONFLICT"
	KindInvalidTransition ErrorKind = "INVALID_TRANSITION"
	KindForbidden         ErrorKind = "FORBIDDEN"
	KindInternal          ErrorKind = "INTERNAL"
)

// BorrowingError custom error type
type BorrowingError struct {
	Code    string
	Message string
	Err     error
}

func (e *BorrowingError) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *BorrowingError) Unwrap() error {
	return e.Err
}

// Error constructors
func NewBookNotFoundError() *BorrowingError {
	return &BorrowingError{
		Code:    ErrCodeBookNotFound,
		Message: "Book not found",
		Err:     ErrBookNotFound,
	}
}

func NewBorrowingNotFoundError() *BorrowingError {
	return &BorrowingError{
		Code:    ErrCodeBorrowingNotFound,
		Message: "Borrowing not found",
		Err:     ErrBorrowingNotFound,
	}
}

func NewInvalidRequestError(reason string) *BorrowingError {
	return &BorrowingError{
		Code:    ErrCodeInvalidRequest,
		Message: reason,
		Err:     ErrInvalidRequest,
	}
}

func NewUnavailableError(interval Interval) *BorrowingError {
	return &BorrowingError{
		Code:    ErrCodeUnavailable,
		Message: fmt.Sprintf("Book is not available between %s", interval),
		Err:     ErrUnavailable,
	}
}

func NewConflictError() *BorrowingError {
	return &BorrowingError{
		Code:    ErrCodeConflict,
		Message: "No copy left for this interval, reject or reassign the request",
		Err:     ErrConflict,
	}
}

func NewInvalidTransitionError(from, to Status) *BorrowingError {
	return &BorrowingError{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("Cannot move borrowing from %s to %s", from, to),
		Err:     ErrInvalidTransition,
	}
}

func NewForbiddenError(message string) *BorrowingError {
	return &BorrowingError{
		Code:    ErrCodeForbidden,
		Message: message,
		Err:     ErrForbidden,
	}
}

// =====================================================
// CLASSIFICATION
// =====================================================

var kindBySentinel = []struct {
	err  error
	kind ErrorKind
}{
	{ErrBookNotFound, KindNotFound},
	{ErrBorrowingNotFound, KindNotFound},
	{ErrInvalidRequest, KindInvalidRequest},
	{ErrUnavailable, KindUnavailable},
	{ErrConflict, KindConflict},
	{ErrInvalidTransition, KindInvalidTransition},
	{ErrForbidden, KindForbidden},
}

// KindOf classifies err. Anything unknown (store failures included) is KindInternal.
func KindOf(err error) ErrorKind {
	for _, entry := range kindBySentinel {
		if errors.Is(err, entry.err) {
			return entry.kind
		}
	}
	return KindInternal
}

var statusByKind = map[ErrorKind]int{
	KindNotFound:          http.StatusNotFound,
	KindInvalidRequest:    http.StatusBadRequest,
	KindUnavailable:       http.StatusConflict,
	KindConflict:          http.StatusConflict,
	KindInvalidTransition: http.StatusUnprocessableEntity,
	KindForbidden:         http.StatusForbidden,
	KindInternal:          http.StatusInternalServerError,
}

// HTTPStatus maps an engine error to a response status and error code
func HTTPStatus(err error) (int, string) {
	kind := KindOf(err)

	var be *BorrowingError
	if errors.As(err, &be) {
		return statusByKind[kind], be.Code
	}
	return statusByKind[kind], string(kind)
}
