package store

import (
	"errors"
	"fmt"
)

// ErrNotConnected is returned by every data operation issued before Connect
// succeeded or after Disconnect.
var ErrNotConnected = errors.New("store: not connected")

// ErrTxConflict reports that a watched key changed before commit. It is a
// control-flow signal, not a failure.
var ErrTxConflict = errors.New("store: watched key changed, transaction aborted")

// ConnectionError reports a failed connect or handshake.
type ConnectionError struct {
	Host string
	Port int
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("store: failed to connect to %s:%d: %v", e.Host, e.Port, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// OperationError wraps any store-side failure of a read, write or transaction.
type OperationError struct {
	Op  string
	Key string
	Err error
}

func (e *OperationError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store: %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

func opError(op, key string, err error) error {
	if err == nil {
		return nil
	}
	var existing *OperationError
	if errors.As(err, &existing) {
		return err
	}
	if errors.Is(err, ErrNotConnected) || errors.Is(err, ErrTxConflict) {
		return err
	}
	return &OperationError{Op: op, Key: key, Err: err}
}
