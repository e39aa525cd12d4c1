package database

import (
	"errors"
	"fmt"
)

// ErrKind categorises a statement failure without exposing driver-specific codes.
type ErrKind int

const (
	ErrKindUnknown          ErrKind = iota
	ErrKindQueryFailed              // SQL syntax or runtime execution error
	ErrKindNotFound                 // missing relation, function or row
	ErrKindPermissionDenied         // insufficient privilege
	ErrKindConnectionFailed         // session lost mid-statement
	ErrKindTimeout                  // statement cancelled or context expired
	ErrKindInvalidInput             // the request cannot be expressed against this backend
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindQueryFailed:
		return "query_failed"
	case ErrKindNotFound:
		return "not_found"
	case ErrKindPermissionDenied:
		return "permission_denied"
	case ErrKindConnectionFailed:
		return "connection_failed"
	case ErrKindTimeout:
		return "timeout"
	case ErrKindInvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// ConnectionError is returned when a session cannot be established.
// It is fatal to the connector being opened.
type ConnectionError struct {
	Cause error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error: %v", e.Cause)
}

func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// DBError is returned by any statement that fails on an open connection.
// By the time a caller sees it, the connection has already been rolled back.
type DBError struct {
	Kind    ErrKind
	Message string // backend diagnostic
	Query   string
	Cause   error
}

func (e *DBError) Error() string {
	return e.Message
}

func (e *DBError) Unwrap() error {
	return e.Cause
}

// IsConnectionError reports whether err came from opening a connection.
func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}

// IsDBError reports whether err is a statement failure.
func IsDBError(err error) bool {
	var de *DBError
	return errors.As(err, &de)
}

// IsNotFound reports whether err refers to a missing object.
func IsNotFound(err error) bool {
	return kindOf(err) == ErrKindNotFound
}

// IsPermissionDenied reports whether err is a privilege failure.
func IsPermissionDenied(err error) bool {
	return kindOf(err) == ErrKindPermissionDenied
}

// IsTimeout reports whether err was caused by cancellation.
func IsTimeout(err error) bool {
	return kindOf(err) == ErrKindTimeout
}

// IsConnectionFailed reports whether a statement failed because the
// connection was lost or closed.
func IsConnectionFailed(err error) bool {
	return kindOf(err) == ErrKindConnectionFailed
}

func kindOf(err error) ErrKind {
	var de *DBError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ErrKindUnknown
}
