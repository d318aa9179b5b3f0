package pom

import (
	"errors"
	"fmt"
)

// Descriptor failure kinds. Both are fatal for the file being processed.
var (
	ErrDescriptorParse = errors.New("descriptor parse failure")
	ErrDescriptorWrite = errors.New("descriptor write failure")
)

// DescriptorError records the operation and file behind a descriptor
// failure. It matches ErrDescriptorParse or ErrDescriptorWrite with
// errors.Is, as well as the underlying cause.
type DescriptorError struct {
	Op   string
	Path string
	Err  error
	kind error
}

// NewParseError wraps a failure to read or parse the descriptor at path.
func NewParseError(path string, err error) *DescriptorError {
	return &DescriptorError{Op: "parse", Path: path, Err: err, kind: ErrDescriptorParse}
}

// NewWriteError wraps a failure to serialize or write the descriptor at path.
func NewWriteError(path string, err error) *DescriptorError {
	return &DescriptorError{Op: "write", Path: path, Err: err, kind: ErrDescriptorWrite}
}

func (e *DescriptorError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%v: %v", e.kind, e.Err)
	}
	return fmt.Sprintf("%v: %s %s: %v", e.kind, e.Op, e.Path, e.Err)
}

func (e *DescriptorError) Unwrap() []error {
	return []error{e.kind, e.Err}
}
