package mmdb

import (
	"errors"
	"fmt"
	"reflect"
)

// Sentinel errors for conditions that carry no extra context. Callers
// distinguish them with errors.Is.
var (
	// ErrNotFile is returned when the path given to Open or Mmap does
	// not name a regular file.
	ErrNotFile = errors.New("mmdb: not a regular file")

	// ErrFileTooLarge is returned by Open when the file exceeds the
	// caller-supplied max_size bound.
	ErrFileTooLarge = errors.New("mmdb: file exceeds the requested size bound")

	// ErrFileEmpty is returned when the database file has zero length.
	ErrFileEmpty = errors.New("mmdb: database file is empty")

	// ErrMetadataStartNotFound is returned when the 14-byte metadata
	// marker cannot be located anywhere in the file.
	ErrMetadataStartNotFound = errors.New("mmdb: could not find a MaxMind DB metadata marker in this file")

	// ErrInvalidPrefixLen is returned by Within when the requested
	// prefix length exceeds the address family's bit width.
	ErrInvalidPrefixLen = errors.New("mmdb: invalid prefix length for this address family")

	// ErrExpectedStructType is returned when a structured decode target
	// is pointed at a data section value that is not a Map.
	ErrExpectedStructType = errors.New("mmdb: top-level record is not a map")

	// ErrReaderClosed is returned by any lookup performed after Close.
	ErrReaderClosed = errors.New("mmdb: reader has been closed")
)

// InvalidDatabaseError reports structural corruption in the database
// file itself: a bad record size, a pointer that escapes the data
// section, a tree that doesn't terminate, and so on. It wraps
// CorruptedTree, InvalidTreeNode, and UnknownRecordSize from spec.md §7
// under one type, the way maxminddb-golang's InvalidDatabaseError does.
type InvalidDatabaseError struct {
	Message string
}

func newInvalidDatabaseError(format string, args ...any) *InvalidDatabaseError {
	return &InvalidDatabaseError{Message: fmt.Sprintf(format, args...)}
}

func (e *InvalidDatabaseError) Error() string {
	return "mmdb: " + e.Message
}

// UnsupportedFieldTypeError is returned when a control byte names a type
// tag this decoder does not know, or when an extended type byte is out
// of the 0..8 range.
type UnsupportedFieldTypeError struct {
	ExtByte byte
}

func (e *UnsupportedFieldTypeError) Error() string {
	return fmt.Sprintf("mmdb: unsupported extended field type byte %#x", e.ExtByte)
}

// InvalidSizeError covers InvalidIntegerSize, InvalidBoolSize and
// InvalidDoubleSize/InvalidFloatSize from spec.md §7: a scalar's
// wire-encoded payload size does not match what its type allows.
type InvalidSizeError struct {
	Kind Kind
	Size uint
}

func (e *InvalidSizeError) Error() string {
	return fmt.Sprintf("mmdb: invalid payload size %d for %s", e.Size, e.Kind)
}

// UnmarshalTypeError is returned when a decoded wire-type value cannot
// be assigned to the declared Go field type; it is the Expected<Type>
// family from spec.md §7, grounded directly in the vendored
// maxminddb-golang UnmarshalTypeError.
type UnmarshalTypeError struct {
	// Kind is the wire type actually found in the data section.
	Kind Kind
	// Target is the Go type the materializer tried to decode into.
	Target reflect.Type
	// Field, when non-empty, names the struct field being decoded.
	Field string
}

func (e *UnmarshalTypeError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("mmdb: cannot unmarshal %s into field %q of type %s", e.Kind, e.Field, e.Target)
	}
	return fmt.Sprintf("mmdb: cannot unmarshal %s into type %s", e.Kind, e.Target)
}
