package account

import (
	"context"
	"errors"
	"time"

	"accountmeta/internal/domain/scope"
)

var (
	ErrSnapshotNotFound = errors.New("registry snapshot not found")
)

// SourceKind is the closed set of metadata sources
type SourceKind int

const (
	SourcePrimary SourceKind = iota
	SourceAlternate
)

func (k SourceKind) String() string {
	switch k {
	case SourcePrimary:
		return "oasis"
	case SourceAlternate:
		return "pontusx"
	default:
		return "unknown"
	}
}

// Metadata describes a named account
type Metadata struct {
	Address     string
	Name        string
	Description string
	Icon        string
	Source      SourceKind
}

// AddressMetadataResult is the snapshot of one address lookup
type AddressMetadataResult struct {
	Metadata  *Metadata
	IsLoading bool
	IsError   bool
}

func (r AddressMetadataResult) HasMetadata() bool {
	return r.Metadata != nil
}

type NameSearchMatch struct {
	Scope    scope.Scope
	Metadata Metadata
}

// NameSearchResult is the snapshot of a name search.
// Results keep source-priority order and are not deduplicated.
type NameSearchResult struct {
	IsLoading bool
	IsError   bool
	Results   []NameSearchMatch
}

type QueryOptions struct {
	Enabled bool
}

// Source is the capability shared by every metadata source.
// Calls return the current snapshot of an asynchronous query and do not
// wait for network I/O. A disabled query yields an empty result.
type Source interface {
	Kind() SourceKind
	LookupByAddress(ctx context.Context, s scope.Scope, address string, opts QueryOptions) AddressMetadataResult
	SearchByName(ctx context.Context, s scope.Scope, fragment string, opts QueryOptions) NameSearchResult
}

// Snapshot is a persisted copy of a downloaded registry
type Snapshot struct {
	Key       string
	Source    SourceKind
	Entries   []Metadata
	FetchedAt time.Time
}

// Store persists registry snapshots so a cold start can serve the last known copy
type Store interface {
	SaveSnapshot(ctx context.Context, snapshot Snapshot) error
	LoadSnapshot(ctx context.Context, source SourceKind, key string) (*Snapshot, error)
}
