// Package storage provides the data persistence layer for the ingestion pipeline.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/crivera/joistsync/internal/model"
)

// Validation errors.
var (
	ErrNilContext    = errors.New("context cannot be nil")
	ErrEmptyString   = errors.New("string parameter cannot be empty")
	ErrNilParameter  = errors.New("parameter cannot be nil")
	ErrEmptySlice    = errors.New("slice cannot be empty")
	ErrInvalidClient = errors.New("invalid client")
	ErrInvalidRecord = errors.New("invalid record")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateClients validates a slice of clients.
func validateClients(clients []model.Client) error {
	if clients == nil {
		return fmt.Errorf("%w: clients", ErrNilParameter)
	}
	if len(clients) == 0 {
		return fmt.Errorf("%w: clients", ErrEmptySlice)
	}

	for i, c := range clients {
		if err := validateClient(&c); err != nil {
			return fmt.Errorf("client at index %d: %w", i, err)
		}
	}
	return nil
}

// validateClient validates a single client.
func validateClient(c *model.Client) error {
	if c == nil {
		return fmt.Errorf("%w: client", ErrNilParameter)
	}
	if strings.TrimSpace(c.FullName) == "" {
		return fmt.Errorf("%w: missing full name", ErrInvalidClient)
	}
	if c.IngestedTime.IsZero() {
		return fmt.Errorf("%w: missing ingested time", ErrInvalidClient)
	}
	return nil
}

// validateEstimates validates a slice of estimates.
func validateEstimates(estimates []model.Estimate) error {
	if estimates == nil {
		return fmt.Errorf("%w: estimates", ErrNilParameter)
	}
	if len(estimates) == 0 {
		return fmt.Errorf("%w: estimates", ErrEmptySlice)
	}

	for i, e := range estimates {
		if strings.TrimSpace(e.FullName) == "" {
			return fmt.Errorf("estimate at index %d: %w: missing full name", i, ErrInvalidRecord)
		}
		if e.IngestedTime.IsZero() {
			return fmt.Errorf("estimate at index %d: %w: missing ingested time", i, ErrInvalidRecord)
		}
	}
	return nil
}

// validateInvoices validates a slice of invoices.
func validateInvoices(invoices []model.Invoice) error {
	if invoices == nil {
		return fmt.Errorf("%w: invoices", ErrNilParameter)
	}
	if len(invoices) == 0 {
		return fmt.Errorf("%w: invoices", ErrEmptySlice)
	}

	for i, inv := range invoices {
		if strings.TrimSpace(inv.FullName) == "" {
			return fmt.Errorf("invoice at index %d: %w: missing full name", i, ErrInvalidRecord)
		}
		if inv.IngestedTime.IsZero() {
			return fmt.Errorf("invoice at index %d: %w: missing ingested time", i, ErrInvalidRecord)
		}
	}
	return nil
}
