// Package model defines the entities persisted by the ingestion pipeline.
package model

import (
	"strings"
	"time"
)

// Field length caps enforced by the cleaner before persistence.
const (
	MaxFullNameLen     = 42
	MaxPrivateNotesLen = 150
)

// Client is a billing client keyed by full name. The upstream export carries
// no usable surrogate key, so full_name is the natural key and the join key
// against estimates and invoices. JoistClientID is the external tool's id and
// is consulted only to break ties between duplicate names.
type Client struct {
	IngestedTime  time.Time
	JoinDate      *time.Time
	ZipPostalCode *int64
	JoistClientID *int64
	FullName      string
	EmailAddress  string
	PhoneMobile   string
	PhoneOther    string
	Address       string
	Address2      string
	City          string
	StateProvince string
	PrivateNotes  string
	Source        string
}

// MinimalClient builds the skeleton record inserted when an estimate or
// invoice references a name with no client row: name, stamp and source only.
func MinimalClient(fullName, source string, ingestedTime time.Time) Client {
	return Client{
		FullName:     fullName,
		Source:       source,
		IngestedTime: ingestedTime,
	}
}

// NormalizedName returns the casefolded lookup key used for collision
// detection. It is a derived key, never an ownership relation: two rows whose
// normalized names match are flagged, not merged.
func NormalizedName(fullName string) string {
	return strings.ToLower(strings.TrimSpace(fullName))
}

// ClientEmail is the projection written by the email extract reports.
type ClientEmail struct {
	FullName     string
	EmailAddress string
}
