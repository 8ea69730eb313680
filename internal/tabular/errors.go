package tabular

import (
	"errors"
	"fmt"
)

// Hard ceilings for import files. Both limits surface as typed errors
// rather than exhausting memory on adversarial input.
const (
	MaxFileBytes = 50 * 1024 * 1024
	MaxRows      = 1_000_000
)

var (
	// ErrFileTooLarge is returned at open time for files over MaxFileBytes.
	ErrFileTooLarge = errors.New("file exceeds maximum import size")
	// ErrTooManyRows is returned during streaming once MaxRows is crossed.
	ErrTooManyRows = errors.New("file exceeds maximum row count")
)

// SizeError wraps ErrFileTooLarge with the observed size.
type SizeError struct {
	Size  int64
	Limit int64
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("file is %d bytes, limit is %d", e.Size, e.Limit)
}

// Unwrap makes errors.Is(err, ErrFileTooLarge) work.
func (e *SizeError) Unwrap() error { return ErrFileTooLarge }
