package entities

import "fmt"

// PersistenceError wraps a durable-store failure. A failed session buffer
// append is reported but must not crash the process.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
