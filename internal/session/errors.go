package session

import (
	"fmt"
)

// StorageError reports that the session store could not be reached or answered with a
// failure. Authentication is undetermined: callers must not treat it as anonymous.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("session store %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageError(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
