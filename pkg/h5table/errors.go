package h5table

import "fmt"

// ErrCreateGroup represents an error when creating an HDF5 group.
type ErrCreateGroup struct {
	Name string
	Err  error
}

func (e *ErrCreateGroup) Error() string {
	return fmt.Sprintf("error creating group %q: %v", e.Name, e.Err)
}

func (e *ErrCreateGroup) Unwrap() error {
	return e.Err
}

// ErrCreateTable represents an error when creating an HDF5 table.
type ErrCreateTable struct {
	Name string
	Err  error
}

func (e *ErrCreateTable) Error() string {
	return fmt.Sprintf("error creating table %q: %v", e.Name, e.Err)
}

func (e *ErrCreateTable) Unwrap() error {
	return e.Err
}
