// Package sheets defines where order tables come from. Adapters live in
// the local and google subpackages.
package sheets

import (
	"context"
	"errors"
	"io"
	"time"

	"courtstats/internal/ingest"
)

var (
	ErrSourceNotFound = errors.New("source not found")
	ErrInvalidRef     = errors.New("invalid source reference")
)

// Ports for inbound row sources.
type (
	// TableReader loads the raw order table behind ref.
	TableReader interface {
		ReadTable(ctx context.Context, ref string) (ingest.Table, error)
	}

	// SourceLister enumerates the refs a TableReader can serve.
	SourceLister interface {
		List(ctx context.Context) ([]SourceInfo, error)
	}

	// Uploader stores a workbook under ref. Only writable sources implement it.
	Uploader interface {
		Save(ctx context.Context, ref string, r io.Reader) error
	}

	// Source pairs both read ports; every adapter implements it.
	Source interface {
		TableReader
		SourceLister
	}

	// SourceInfo describes one readable table.
	SourceInfo struct {
		Ref        string    `json:"ref"`
		Size       int64     `json:"size,omitempty"`
		ModifiedAt time.Time `json:"modified_at,omitzero"`
	}
)
