// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/crivera/joistsync/internal/model"
)

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Client operations
	ListClientNames(ctx context.Context) ([]string, error)
	ClientNamesExisting(ctx context.Context, names []string) (map[string]bool, error)
	SaveClients(ctx context.Context, clients []model.Client) error
	InsertMinimalClients(ctx context.Context, clients []model.Client) error
	SaveDuplicateClients(ctx context.Context, clients []model.Client) error
	GetClient(ctx context.Context, fullName string) (*model.Client, error)
	UpdateJoinDates(ctx context.Context, ingestedDate time.Time) (int64, error)

	// Estimate and invoice operations (append-only)
	SaveEstimates(ctx context.Context, estimates []model.Estimate) error
	SaveInvoices(ctx context.Context, invoices []model.Invoice) error
	CountEstimates(ctx context.Context) (int, error)
	CountInvoices(ctx context.Context) (int, error)

	// Report queries
	CustomerEmails(ctx context.Context) ([]model.ClientEmail, error)
	LeadEmails(ctx context.Context) ([]model.ClientEmail, error)
	AllClientEmails(ctx context.Context) ([]model.ClientEmail, error)
	ClientsWithoutEmail(ctx context.Context) ([]model.Client, error)
	ClientsWithEmailIssues(ctx context.Context) ([]model.Client, error)
	ClientsWithMultipleEmails(ctx context.Context) ([]model.Client, error)
	ClientsJoinedPerMonth(ctx context.Context) ([]model.MonthlyCount, error)
	EstimatesPerMonth(ctx context.Context) ([]model.MonthlyCount, error)
	InvoicesPerMonth(ctx context.Context) ([]model.MonthlyCount, error)
	InvoiceTotalsPerMonth(ctx context.Context) ([]model.MonthlyTotal, error)
	ClientInvoiceValues(ctx context.Context, limit int, ascending bool) ([]model.ClientMonthValue, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}
