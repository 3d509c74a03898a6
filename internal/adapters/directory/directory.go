// Package directory serves a downloadable list of named accounts as an
// account.Source. Lists are fetched per scope, indexed by address and kept
// in a TTL cache; lookups and searches are answered through query clients
// so callers only ever observe snapshots.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"accountmeta/internal/adapters/cache"
	"accountmeta/internal/adapters/logger"
	"accountmeta/internal/adapters/query"
	"accountmeta/internal/domain"
	"accountmeta/internal/domain/account"
	"accountmeta/internal/domain/scope"
)

// Loader downloads the named accounts of one scope
type Loader func(ctx context.Context, s scope.Scope) ([]account.Metadata, error)

type Config struct {
	Query query.Config
	// ListTTL is how long a downloaded list is reused
	ListTTL time.Duration
	// AddressKey maps an address to its index key
	AddressKey func(string) string
}

type index struct {
	entries   []account.Metadata
	byAddress map[string]int
}

// Directory implements account.Source on top of a Loader
type Directory struct {
	kind       account.SourceKind
	load       Loader
	store      account.Store
	addressKey func(string) string
	logger     *logger.Logger

	lists    domain.Cache[scope.Scope, *index]
	group    singleflight.Group
	lookups  *query.Client[*account.Metadata]
	searches *query.Client[[]account.NameSearchMatch]
}

// New creates a directory. store may be nil, in which case nothing is
// persisted and there is no fallback.
func New(kind account.SourceKind, load Loader, store account.Store, cfg Config, log *logger.Logger) *Directory {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if cfg.AddressKey == nil {
		cfg.AddressKey = strings.ToLower
	}
	if cfg.ListTTL <= 0 {
		cfg.ListTTL = cfg.Query.StaleTime
	}
	log = log.Named(kind.String())

	return &Directory{
		kind:       kind,
		load:       load,
		store:      store,
		addressKey: cfg.AddressKey,
		logger:     log,
		lists:      cache.NewCache[scope.Scope, *index](len(scope.Networks)*len(scope.Layers), cfg.ListTTL),
		lookups:    query.NewClient[*account.Metadata](kind.String()+"-lookup", cfg.Query, log),
		searches:   query.NewClient[[]account.NameSearchMatch](kind.String()+"-search", cfg.Query, log),
	}
}

func (d *Directory) Kind() account.SourceKind {
	return d.kind
}

func (d *Directory) LookupByAddress(ctx context.Context, s scope.Scope, address string, opts account.QueryOptions) account.AddressMetadataResult {
	key := d.addressKey(address)
	snap := d.lookups.Query(ctx, d.lookupKey(s, address), query.Options{Enabled: opts.Enabled},
		func(ctx context.Context) (*account.Metadata, error) {
			idx, err := d.list(ctx, s)
			if err != nil {
				return nil, err
			}
			i, ok := idx.byAddress[key]
			if !ok {
				return nil, nil
			}
			m := idx.entries[i]
			return &m, nil
		})

	return account.AddressMetadataResult{
		Metadata:  snap.Data,
		IsLoading: snap.IsLoading(),
		IsError:   snap.IsError(),
	}
}

func (d *Directory) SearchByName(ctx context.Context, s scope.Scope, fragment string, opts account.QueryOptions) account.NameSearchResult {
	needle := strings.ToLower(fragment)
	snap := d.searches.Query(ctx, searchKey(s, fragment), query.Options{Enabled: opts.Enabled},
		func(ctx context.Context) ([]account.NameSearchMatch, error) {
			idx, err := d.list(ctx, s)
			if err != nil {
				return nil, err
			}
			matches := make([]account.NameSearchMatch, 0)
			for _, m := range idx.entries {
				if strings.Contains(strings.ToLower(m.Name), needle) {
					matches = append(matches, account.NameSearchMatch{Scope: s, Metadata: m})
				}
			}
			return matches, nil
		})

	results := snap.Data
	if results == nil {
		results = []account.NameSearchMatch{}
	}
	return account.NameSearchResult{
		IsLoading: snap.IsLoading(),
		IsError:   snap.IsError(),
		Results:   results,
	}
}

// Sync downloads the list of s, persists it and marks cached answers for s
// as stale. It returns the number of entries downloaded.
func (d *Directory) Sync(ctx context.Context, s scope.Scope) (int, error) {
	entries, err := d.load(ctx, s)
	if err != nil {
		return 0, fmt.Errorf("%s: sync %s: %w", d.kind, s, err)
	}
	d.lists.Set(ctx, s, d.buildIndex(entries))
	if err := d.persist(ctx, s, entries); err != nil {
		return 0, err
	}

	prefix := query.Key(s.Network, s.Layer) + ":"
	d.lookups.Invalidate(prefix)
	d.searches.Invalidate(prefix)
	return len(entries), nil
}

// WaitLookup blocks until the lookup of address on s has settled or ctx is done
func (d *Directory) WaitLookup(ctx context.Context, s scope.Scope, address string) error {
	return d.lookups.WaitKey(ctx, d.lookupKey(s, address))
}

// WaitSearch blocks until the search for fragment on s has settled or ctx is done
func (d *Directory) WaitSearch(ctx context.Context, s scope.Scope, fragment string) error {
	return d.searches.WaitKey(ctx, searchKey(s, fragment))
}

func (d *Directory) lookupKey(s scope.Scope, address string) string {
	return query.Key(s.Network, s.Layer, d.addressKey(address))
}

func searchKey(s scope.Scope, fragment string) string {
	return query.Key(s.Network, s.Layer, strings.ToLower(fragment))
}

// Close waits for background fetches to return
func (d *Directory) Close() {
	d.lookups.Close()
	d.searches.Close()
}

// list returns the index of s, downloading it at most once at a time.
// When the download fails the last persisted snapshot is served.
func (d *Directory) list(ctx context.Context, s scope.Scope) (*index, error) {
	if idx, ok := d.lists.Get(ctx, s); ok {
		return idx, nil
	}

	v, err, _ := d.group.Do(s.String(), func() (interface{}, error) {
		entries, err := d.load(ctx, s)
		if err != nil {
			return d.fallback(ctx, s, err)
		}

		idx := d.buildIndex(entries)
		d.lists.Set(ctx, s, idx)
		if err := d.persist(ctx, s, entries); err != nil {
			d.logger.Warn("Failed to persist registry snapshot", zap.String("scope", s.String()), zap.Error(err))
		}
		return idx, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*index), nil
}

func (d *Directory) fallback(ctx context.Context, s scope.Scope, cause error) (*index, error) {
	if d.store == nil {
		return nil, fmt.Errorf("%s: load %s: %w", d.kind, s, cause)
	}

	snap, err := d.store.LoadSnapshot(ctx, d.kind, s.String())
	if err != nil {
		if errors.Is(err, account.ErrSnapshotNotFound) {
			return nil, fmt.Errorf("%s: load %s: %w", d.kind, s, cause)
		}
		return nil, fmt.Errorf("%s: load %s: %w", d.kind, s, errors.Join(cause, err))
	}

	d.logger.Warn("Serving persisted registry snapshot",
		zap.String("scope", s.String()),
		zap.Time("fetched_at", snap.FetchedAt),
		zap.Error(cause),
	)
	return d.buildIndex(snap.Entries), nil
}

func (d *Directory) persist(ctx context.Context, s scope.Scope, entries []account.Metadata) error {
	if d.store == nil {
		return nil
	}
	err := d.store.SaveSnapshot(ctx, account.Snapshot{
		Key:       s.String(),
		Source:    d.kind,
		Entries:   entries,
		FetchedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("%s: save snapshot %s: %w", d.kind, s, err)
	}
	return nil
}

func (d *Directory) buildIndex(entries []account.Metadata) *index {
	idx := &index{
		entries:   make([]account.Metadata, 0, len(entries)),
		byAddress: make(map[string]int, len(entries)),
	}
	for _, m := range entries {
		m.Source = d.kind
		key := d.addressKey(m.Address)
		if _, dup := idx.byAddress[key]; dup {
			continue
		}
		idx.byAddress[key] = len(idx.entries)
		idx.entries = append(idx.entries, m)
	}
	return idx
}
