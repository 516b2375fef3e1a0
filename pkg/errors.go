package osiris

import (
	"errors"
	"fmt"
)

// ErrNotFound is matched by errors.Is for any failed geometry lookup.
var ErrNotFound = errors.New("not found")

// ErrOpenFile represents an error when opening a file.
type ErrOpenFile struct {
	Filename string
	Err      error
}

func (e *ErrOpenFile) Error() string {
	return fmt.Sprintf("error opening file %q: %v", e.Filename, e.Err)
}

func (e *ErrOpenFile) Unwrap() error {
	return e.Err
}

// ErrInvalidConfiguration is fatal: the run stops before any output is committed.
type ErrInvalidConfiguration struct {
	Field string
	Value string
}

func (e *ErrInvalidConfiguration) Error() string {
	return fmt.Sprintf("invalid configuration: %s = %q", e.Field, e.Value)
}

// ErrMissingColumn is returned when a table row or header lacks a required column.
type ErrMissingColumn struct {
	Column string
	Line   int
}

func (e *ErrMissingColumn) Error() string {
	return fmt.Sprintf("missing column %q at line %d", e.Column, e.Line)
}

// ErrChannelNotFound represents a geometry lookup miss.
type ErrChannelNotFound struct {
	UnitID    int
	ChannelID int
}

func (e *ErrChannelNotFound) Error() string {
	return fmt.Sprintf("channel %d of unit %d not found in geometry map", e.ChannelID, e.UnitID)
}

func (e *ErrChannelNotFound) Is(target error) bool {
	return target == ErrNotFound
}

// ErrNotTimeOrdered is returned by the coincidence search when its input is not
// sorted by trigger time.
type ErrNotTimeOrdered struct {
	Position int
}

func (e *ErrNotTimeOrdered) Error() string {
	return fmt.Sprintf("events not ordered by trigger time at position %d", e.Position)
}
