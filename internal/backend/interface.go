// Package backend builds the configured row source.
package backend

import (
	"context"

	"courtstats/internal/sheets"
)

// CleanupFunc releases resources held by a source.
type CleanupFunc func() error

// BackendResult contains the source and an optional cleanup function.
type BackendResult struct {
	Source  sheets.Source
	Cleanup CleanupFunc
}

// Factory creates row sources from configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds what any backend may need.
type Config struct {
	Type BackendType

	// Local directory of workbooks
	DataDirectory string

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

// BackendType names a row source implementation.
type BackendType string

const (
	LocalBackend  BackendType = "local"
	SheetsBackend BackendType = "sheets"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case LocalBackend, SheetsBackend:
		return true
	default:
		return false
	}
}
