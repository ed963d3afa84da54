package models

import (
	"errors"
	"fmt"
)

var (
	// ErrRead marks an unreadable slice file or a missing required tag.
	ErrRead = errors.New("read error")
	// ErrEmptyInput marks a directory without any recognised slice files.
	ErrEmptyInput = errors.New("empty input")
	// ErrFormat marks a truncated or structurally invalid binary file.
	ErrFormat = errors.New("format error")
	// ErrGeometryMismatch marks a dose file whose geometry differs from the image.
	ErrGeometryMismatch = errors.New("geometry mismatch")
	// ErrAlreadyExists marks a write target that is already present.
	ErrAlreadyExists = errors.New("already exists")
	// ErrIO marks any other filesystem failure.
	ErrIO = errors.New("io error")
)

// ReadError reports a slice file that could not be read.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("failed to read slice %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() []error { return []error{ErrRead, e.Err} }

// EmptyInputError reports a directory with no files of the slice extension.
type EmptyInputError struct {
	Dir string
	Ext string
}

func (e *EmptyInputError) Error() string {
	return fmt.Sprintf("no %s files found in %s", e.Ext, e.Dir)
}

func (e *EmptyInputError) Unwrap() error { return ErrEmptyInput }

// FormatError reports a binary file that does not match its declared layout.
type FormatError struct {
	Path string
	Err  error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid file %s: %v", e.Path, e.Err)
}

func (e *FormatError) Unwrap() []error { return []error{ErrFormat, e.Err} }

// GeometryMismatchError carries both geometries for display.
type GeometryMismatchError struct {
	Path  string
	Image Geometry
	Dose  Geometry
}

func (e *GeometryMismatchError) Error() string {
	return fmt.Sprintf("the image and dose voxels do not match (%s)\nImage: %s\nDose:  %s",
		e.Path, e.Image, e.Dose)
}

func (e *GeometryMismatchError) Unwrap() error { return ErrGeometryMismatch }

// IOError wraps a filesystem failure.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() []error { return []error{ErrIO, e.Err} }
