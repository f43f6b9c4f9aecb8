// SPDX-License-Identifier: MIT

// Package lookup implements editing of CSV lookup files and KV-store
// collections: resolution of lookup paths, size-guarded reads, atomic saves
// with pre-save backups, and tabular rendering of KV collections.
package lookup

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a lookup file or collection does not exist.
	ErrNotFound = errors.New("lookup not found")

	// ErrPermissionDenied is returned when the caller may not touch the lookup.
	ErrPermissionDenied = errors.New("permission denied")
)

// TooBigError is returned when a lookup exceeds the maximum editable size.
type TooBigError struct {
	Size int64
}

func (e *TooBigError) Error() string {
	return fmt.Sprintf("lookup file too big to edit: %d bytes (limit %d)", e.Size, MaxEditableSize)
}

// IsTooBig reports whether err is a TooBigError.
func IsTooBig(err error) bool {
	var tooBig *TooBigError
	return errors.As(err, &tooBig)
}
