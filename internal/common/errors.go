// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
	"strings"
)

// Common application errors.
var (
	// Database errors.
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEntry = errors.New("duplicate entry")

	// Ingestion errors.
	ErrFileMissing = errors.New("source file missing")
	ErrParseFailed = errors.New("csv parse failed")

	// Configuration errors.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UnresolvedNamesError is raised when estimate or invoice rows still reference
// client names missing from the clients table after backfill. It means the
// reconciliation step itself is broken, so it carries the full offending list.
type UnresolvedNamesError struct {
	Entity string
	Names  []string
}

func (e *UnresolvedNamesError) Error() string {
	return fmt.Sprintf("%s batch references %d names missing from clients after backfill: %s",
		e.Entity, len(e.Names), strings.Join(e.Names, ", "))
}
