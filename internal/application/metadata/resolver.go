package metadata

import (
	"context"

	"accountmeta/internal/domain/account"
	"accountmeta/internal/domain/scope"
)

// Resolver picks between the primary and alternate metadata sources for a
// scope and merges their name searches. It only observes source snapshots
// and never blocks.
type Resolver struct {
	table     *scope.Table
	primary   account.Source
	alternate account.Source
	normalize func(string) string
}

// NewResolver creates a resolver. normalize converts an address into the
// form the primary source is keyed by; nil leaves addresses unchanged.
func NewResolver(table *scope.Table, primary, alternate account.Source, normalize func(string) string) *Resolver {
	if normalize == nil {
		normalize = func(s string) string { return s }
	}
	return &Resolver{
		table:     table,
		primary:   primary,
		alternate: alternate,
		normalize: normalize,
	}
}

// AccountMetadata returns the metadata of address on s.
// Alternate layers prefer the alternate source and fall back to the primary
// result; other layers use the primary source unless the network is local,
// in which case nothing is queried.
func (r *Resolver) AccountMetadata(ctx context.Context, s scope.Scope, address string) account.AddressMetadataResult {
	isAlternate := r.table.IsAlternate(s.Layer)
	primaryEnabled := !isAlternate && !r.table.IsLocal(s.Network)

	alt := r.alternate.LookupByAddress(ctx, s, address, account.QueryOptions{Enabled: isAlternate})

	prim := r.primary.LookupByAddress(ctx, s, r.normalize(address), account.QueryOptions{Enabled: primaryEnabled})

	if isAlternate && alt.HasMetadata() {
		return alt
	}
	return prim
}

// SearchByName searches both sources for fragment on s.
// Results keep alternate matches first and are not deduplicated.
func (r *Resolver) SearchByName(ctx context.Context, s scope.Scope, fragment string) account.NameSearchResult {
	isAlternate := r.table.IsAlternate(s.Layer)
	altValid := isAlternate && fragment != ""
	primaryValid := r.table.SearchesPrimary(s.Layer) && fragment != ""

	alt := r.alternate.SearchByName(ctx, s, fragment, account.QueryOptions{Enabled: altValid})
	prim := r.primary.SearchByName(ctx, s, fragment, account.QueryOptions{Enabled: primaryValid})

	res := account.NameSearchResult{
		IsLoading: (altValid && alt.IsLoading) || (primaryValid && prim.IsLoading),
		IsError:   (altValid && alt.IsError) || (primaryValid && prim.IsError),
		Results:   make([]account.NameSearchMatch, 0, len(alt.Results)+len(prim.Results)),
	}
	if altValid {
		res.Results = append(res.Results, alt.Results...)
	}
	if primaryValid {
		res.Results = append(res.Results, prim.Results...)
	}
	return res
}
