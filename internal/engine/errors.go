package engine

import (
	"errors"
	"fmt"
)

// Kind classifies an engine failure so the API layer can translate it
// without string matching. The engine never formats user-facing text.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindConflict     Kind = "conflict"
	KindCapacity     Kind = "capacity"
	KindPrecondition Kind = "precondition"
	KindNotFound     Kind = "not_found"
	KindConcurrency  Kind = "concurrency"
)

// Stable machine-readable codes within a kind.
const (
	CodeTenantAlreadyAssigned = "TenantAlreadyAssigned"
	CodeGenderMismatch        = "GenderMismatch"
	CodeRoomFull              = "RoomFull"
	CodeBedSlotClaimed        = "BedSlotClaimed"
	CodeRoomNumberTaken       = "RoomNumberTaken"
	CodeRoomOccupied          = "RoomOccupied"
	CodePropertyOccupied      = "PropertyOccupied"
)

// Error is the typed outcome surfaced for every business-rule failure.
type Error struct {
	Kind Kind
	Code string
	Msg  string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// NewError builds a typed engine error.
func NewError(kind Kind, code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind of err, or "" when err is not an engine error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// CodeOf returns the machine code of err, or "" when absent.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
