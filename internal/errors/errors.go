package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	goerrors "github.com/go-errors/errors"
)

type ErrorType string

const (
	ErrTypeInvalidFilter ErrorType = "INVALID_FILTER"
	ErrTypeTransport     ErrorType = "TRANSPORT"
	ErrTypeHTTPStatus    ErrorType = "HTTP_STATUS"
	ErrTypeParse         ErrorType = "PARSE"
	ErrTypeSink          ErrorType = "SINK"
)

type DomainError struct {
	Type       ErrorType
	Message    string
	Err        error
	StatusCode int // only for ErrTypeHTTPStatus
	Stack      []byte
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func (e *DomainError) StackTrace() []byte {
	return e.Stack
}

func New(errType ErrorType, message string, err error) *DomainError {
	var stack []byte
	if err != nil {
		if stackErr, ok := err.(*goerrors.Error); ok {
			stack = stackErr.Stack()
		} else {
			stack = goerrors.Wrap(err, 2).Stack()
		}
	} else {
		stack = goerrors.New(message).Stack()
	}

	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Stack:   stack,
	}
}

func InvalidFilter(message string, err error) *DomainError {
	return New(ErrTypeInvalidFilter, message, err)
}

func Transport(message string, err error) *DomainError {
	return New(ErrTypeTransport, message, err)
}

func HTTPStatus(code int, url string) *DomainError {
	e := New(ErrTypeHTTPStatus, fmt.Sprintf("status %d from %s", code, url), nil)
	e.StatusCode = code
	return e
}

func Parse(message string, err error) *DomainError {
	return New(ErrTypeParse, message, err)
}

func Sink(message string, err error) *DomainError {
	return New(ErrTypeSink, message, err)
}

// IsType reports whether any DomainError in err's chain has type t.
func IsType(err error, t ErrorType) bool {
	var de *DomainError
	for err != nil {
		if !stderrors.As(err, &de) {
			return false
		}
		if de.Type == t {
			return true
		}
		err = de.Err
	}
	return false
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var de *DomainError
	for err != nil && stderrors.As(err, &de) {
		if de.Type == ErrTypeHTTPStatus {
			return de.StatusCode
		}
		err = de.Err
	}
	return 0
}

// Retryable reports whether another attempt of the same request may succeed:
// transport failures, throttling/blocking (429, 403) and server errors.
func Retryable(err error) bool {
	if IsType(err, ErrTypeTransport) {
		return true
	}
	switch code := StatusCode(err); {
	case code == http.StatusTooManyRequests, code == http.StatusForbidden:
		return true
	case code >= 500:
		return true
	}
	return false
}
