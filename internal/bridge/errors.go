package bridge

import (
	"fmt"
	"time"
)

// TimeoutError reports that the responder did not complete a transaction
// within the await bound.
type TimeoutError struct {
	Waited time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for response after %s", e.Waited)
}

// CorruptSnapshotError reports a status or metadata file that stayed
// unparsable after the bounded retry budget.
type CorruptSnapshotError struct {
	Path string
	Err  error
}

func (e *CorruptSnapshotError) Error() string {
	return fmt.Sprintf("corrupt snapshot %s: %v", e.Path, e.Err)
}

func (e *CorruptSnapshotError) Unwrap() error {
	return e.Err
}
