package record

import "fmt"

// RecordNotFoundError is returned by Load when Path does not exist.
type RecordNotFoundError struct {
	Path string
}

func (e *RecordNotFoundError) Error() string {
	return fmt.Sprintf("record not found: %s", e.Path)
}

// IOError wraps a filesystem failure while reading or writing a record.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("record %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
