package common

import "fmt"

// FieldErrType classifies validation errors raised by field and node
// mutations.
type FieldErrType uint32

const (
	// UnknownField is returned when writing to a field that does not exist.
	UnknownField FieldErrType = iota
	// TypeMismatch is returned when a value cannot be coerced to the field's
	// type.
	TypeMismatch
	// AliasTarget is returned when an alias field points to a node or field
	// that cannot be found.
	AliasTarget
	// ReadOnly is returned when removing or overwriting a system field.
	ReadOnly
	// OwnerLocked is returned when changing the owner of a node whose owner is
	// fixed by its role.
	OwnerLocked
	// UnknownMethod is returned when calling an introspection method that does
	// not exist.
	UnknownMethod
)

// FieldErr is a validation error. Field mutations never panic; they return
// a FieldErr that callers usually only log.
type FieldErr struct {
	node    string
	field   string
	errType FieldErrType
}

// NewFieldErr creates a FieldErr for the given node address and field name.
func NewFieldErr(node string, errType FieldErrType, field string) FieldErr {
	return FieldErr{
		node:    node,
		field:   field,
		errType: errType,
	}
}

// Error implements the error interface.
func (e FieldErr) Error() string {
	m := ""
	switch e.errType {
	case UnknownField:
		m = "Unknown Field"
	case TypeMismatch:
		m = "Type Mismatch"
	case AliasTarget:
		m = "Alias Target Not Found"
	case ReadOnly:
		m = "Read Only"
	case OwnerLocked:
		m = "Owner Locked"
	case UnknownMethod:
		m = "Unknown Method"
	}

	return fmt.Sprintf("%s, %s, %s", e.node, e.field, m)
}

// IsFieldErr checks that an error is a FieldErr of the given type.
func IsFieldErr(err error, t FieldErrType) bool {
	fieldErr, ok := err.(FieldErr)
	return ok && fieldErr.errType == t
}

// SyncErrType classifies errors of the cross-thread synchronization channel.
type SyncErrType uint32

const (
	// Timeout means the owner did not publish before the rendezvous timeout.
	Timeout SyncErrType = iota
	// Closed means the link or the peer thread is gone.
	Closed
	// Malformed means a payload could not be decoded.
	Malformed
	// Unavailable means the request could not be queued.
	Unavailable
)

// SyncErr is returned by the synchronization channel.
type SyncErr struct {
	peer    int
	op      string
	errType SyncErrType
}

// NewSyncErr creates a SyncErr for an operation against a peer thread.
func NewSyncErr(peer int, op string, errType SyncErrType) SyncErr {
	return SyncErr{
		peer:    peer,
		op:      op,
		errType: errType,
	}
}

// Error implements the error interface.
func (e SyncErr) Error() string {
	m := ""
	switch e.errType {
	case Timeout:
		m = "Timeout"
	case Closed:
		m = "Closed"
	case Malformed:
		m = "Malformed"
	case Unavailable:
		m = "Unavailable"
	}

	return fmt.Sprintf("thread %d, %s, %s", e.peer, e.op, m)
}

// IsSyncErr checks that an error is a SyncErr of the given type.
func IsSyncErr(err error, t SyncErrType) bool {
	syncErr, ok := err.(SyncErr)
	return ok && syncErr.errType == t
}
