package metadata

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"accountmeta/internal/domain/account"
	"accountmeta/internal/domain/scope"
)

type lookupCall struct {
	Scope   scope.Scope
	Address string
	Enabled bool
}

type searchCall struct {
	Scope    scope.Scope
	Fragment string
	Enabled  bool
}

// fakeSource returns canned snapshots for enabled queries and empty results
// for disabled ones, recording every call
type fakeSource struct {
	kind   account.SourceKind
	lookup account.AddressMetadataResult
	search account.NameSearchResult

	mu       sync.Mutex
	lookups  []lookupCall
	searches []searchCall
}

func (f *fakeSource) Kind() account.SourceKind {
	return f.kind
}

func (f *fakeSource) LookupByAddress(_ context.Context, s scope.Scope, address string, opts account.QueryOptions) account.AddressMetadataResult {
	f.mu.Lock()
	f.lookups = append(f.lookups, lookupCall{Scope: s, Address: address, Enabled: opts.Enabled})
	f.mu.Unlock()
	if !opts.Enabled {
		return account.AddressMetadataResult{}
	}
	return f.lookup
}

func (f *fakeSource) SearchByName(_ context.Context, s scope.Scope, fragment string, opts account.QueryOptions) account.NameSearchResult {
	f.mu.Lock()
	f.searches = append(f.searches, searchCall{Scope: s, Fragment: fragment, Enabled: opts.Enabled})
	f.mu.Unlock()
	if !opts.Enabled {
		return account.NameSearchResult{Results: []account.NameSearchMatch{}}
	}
	return f.search
}

func newFakes() (*fakeSource, *fakeSource) {
	return &fakeSource{kind: account.SourcePrimary}, &fakeSource{kind: account.SourceAlternate}
}

func upper(s string) string {
	return strings.ToUpper(s)
}

var (
	mainnetEmerald   = scope.New(scope.NetworkMainnet, scope.LayerEmerald)
	testnetPontusx   = scope.New(scope.NetworkTestnet, scope.LayerPontusxTest)
	testnetPontusdev = scope.New(scope.NetworkTestnet, scope.LayerPontusxDev)
	localnetSapphire = scope.New(scope.NetworkLocalnet, scope.LayerSapphire)
)

func match(s scope.Scope, name string, kind account.SourceKind) account.NameSearchMatch {
	return account.NameSearchMatch{Scope: s, Metadata: account.Metadata{Name: name, Source: kind}}
}

func TestResolver_AccountMetadata_Enablement(t *testing.T) {
	tests := []struct {
		name          string
		scope         scope.Scope
		wantPrimary   lookupCall
		wantAlternate lookupCall
	}{
		{
			name:          "primary layer normalizes the address",
			scope:         mainnetEmerald,
			wantPrimary:   lookupCall{Scope: mainnetEmerald, Address: "0XABC", Enabled: true},
			wantAlternate: lookupCall{Scope: mainnetEmerald, Address: "0xabc", Enabled: false},
		},
		{
			name:          "alternate layer passes the raw address",
			scope:         testnetPontusx,
			wantPrimary:   lookupCall{Scope: testnetPontusx, Address: "0XABC", Enabled: false},
			wantAlternate: lookupCall{Scope: testnetPontusx, Address: "0xabc", Enabled: true},
		},
		{
			name:          "local network queries nothing",
			scope:         localnetSapphire,
			wantPrimary:   lookupCall{Scope: localnetSapphire, Address: "0XABC", Enabled: false},
			wantAlternate: lookupCall{Scope: localnetSapphire, Address: "0xabc", Enabled: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primary, alternate := newFakes()
			r := NewResolver(scope.DefaultTable(), primary, alternate, upper)

			r.AccountMetadata(context.Background(), tt.scope, "0xabc")

			if diff := cmp.Diff([]lookupCall{tt.wantPrimary}, primary.lookups); diff != "" {
				t.Errorf("primary lookups mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff([]lookupCall{tt.wantAlternate}, alternate.lookups); diff != "" {
				t.Errorf("alternate lookups mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolver_AccountMetadata_AtMostOneEnabled(t *testing.T) {
	table := scope.DefaultTable()
	for _, n := range scope.Networks {
		for _, l := range scope.Layers {
			s := scope.New(n, l)
			primary, alternate := newFakes()
			NewResolver(table, primary, alternate, nil).AccountMetadata(context.Background(), s, "oasis1qx")

			enabled := 0
			if primary.lookups[0].Enabled {
				enabled++
			}
			if alternate.lookups[0].Enabled {
				enabled++
			}
			if enabled > 1 {
				t.Errorf("AccountMetadata(%s) enabled %d lookups, want at most 1", s, enabled)
			}
			if table.IsAlternate(l) && primary.lookups[0].Enabled {
				t.Errorf("AccountMetadata(%s) enabled primary on alternate layer", s)
			}
			if !table.IsAlternate(l) && alternate.lookups[0].Enabled {
				t.Errorf("AccountMetadata(%s) enabled alternate on primary layer", s)
			}
		}
	}
}

func TestResolver_AccountMetadata_Selection(t *testing.T) {
	alice := &account.Metadata{Name: "Alice", Source: account.SourceAlternate}
	x := &account.Metadata{Name: "X", Source: account.SourcePrimary}

	tests := []struct {
		name      string
		scope     scope.Scope
		primary   account.AddressMetadataResult
		alternate account.AddressMetadataResult
		want      account.AddressMetadataResult
	}{
		{
			name:      "alternate with metadata wins",
			scope:     testnetPontusx,
			alternate: account.AddressMetadataResult{Metadata: alice},
			primary:   account.AddressMetadataResult{Metadata: x},
			want:      account.AddressMetadataResult{Metadata: alice},
		},
		{
			// The primary fake is disabled on alternate layers and answers empty.
			name:      "alternate without metadata falls back to primary",
			scope:     testnetPontusdev,
			alternate: account.AddressMetadataResult{IsLoading: true},
			primary:   account.AddressMetadataResult{Metadata: x},
			want:      account.AddressMetadataResult{},
		},
		{
			name:      "primary layer returns the primary result",
			scope:     mainnetEmerald,
			alternate: account.AddressMetadataResult{Metadata: alice},
			primary:   account.AddressMetadataResult{Metadata: x, IsError: true},
			want:      account.AddressMetadataResult{Metadata: x, IsError: true},
		},
		{
			name:    "primary loading is passed through",
			scope:   mainnetEmerald,
			primary: account.AddressMetadataResult{IsLoading: true},
			want:    account.AddressMetadataResult{IsLoading: true},
		},
		{
			name:    "local network returns the empty primary result",
			scope:   localnetSapphire,
			primary: account.AddressMetadataResult{Metadata: x},
			want:    account.AddressMetadataResult{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primary, alternate := newFakes()
			primary.lookup = tt.primary
			alternate.lookup = tt.alternate
			r := NewResolver(scope.DefaultTable(), primary, alternate, nil)

			got := r.AccountMetadata(context.Background(), tt.scope, "0xabc")
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("AccountMetadata() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// staticSource ignores enablement and always returns its canned result
type staticSource struct {
	fakeSource
}

func (s *staticSource) LookupByAddress(_ context.Context, _ scope.Scope, _ string, _ account.QueryOptions) account.AddressMetadataResult {
	return s.lookup
}

func TestResolver_AccountMetadata_PrefersNonEmptyAlternate(t *testing.T) {
	primary := &staticSource{fakeSource{
		kind:   account.SourcePrimary,
		lookup: account.AddressMetadataResult{Metadata: &account.Metadata{Name: "X"}},
	}}
	alternate := &staticSource{fakeSource{kind: account.SourceAlternate}}
	r := NewResolver(scope.DefaultTable(), primary, alternate, nil)

	got := r.AccountMetadata(context.Background(), testnetPontusx, "0xabc")
	if !got.HasMetadata() || got.Metadata.Name != "X" {
		t.Errorf("AccountMetadata() = %+v, want primary result with name X", got)
	}
}

func TestResolver_AccountMetadata_Idempotent(t *testing.T) {
	primary, alternate := newFakes()
	primary.lookup = account.AddressMetadataResult{Metadata: &account.Metadata{Name: "X"}, IsError: true}
	r := NewResolver(scope.DefaultTable(), primary, alternate, nil)

	first := r.AccountMetadata(context.Background(), mainnetEmerald, "0xabc")
	second := r.AccountMetadata(context.Background(), mainnetEmerald, "0xabc")
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("AccountMetadata() not idempotent (-first +second):\n%s", diff)
	}
}

func TestResolver_SearchByName_EmptyFragment(t *testing.T) {
	want := account.NameSearchResult{Results: []account.NameSearchMatch{}}

	for _, n := range scope.Networks {
		for _, l := range scope.Layers {
			s := scope.New(n, l)
			primary, alternate := newFakes()
			primary.search = account.NameSearchResult{IsLoading: true, IsError: true, Results: []account.NameSearchMatch{match(s, "P", account.SourcePrimary)}}
			alternate.search = account.NameSearchResult{IsLoading: true, IsError: true, Results: []account.NameSearchMatch{match(s, "A", account.SourceAlternate)}}
			r := NewResolver(scope.DefaultTable(), primary, alternate, nil)

			got := r.SearchByName(context.Background(), s, "")
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("SearchByName(%s, \"\") mismatch (-want +got):\n%s", s, diff)
			}
			if primary.searches[0].Enabled || alternate.searches[0].Enabled {
				t.Errorf("SearchByName(%s, \"\") enabled a search", s)
			}
		}
	}
}

func TestResolver_SearchByName_Validity(t *testing.T) {
	tests := []struct {
		name          string
		scope         scope.Scope
		wantPrimary   bool
		wantAlternate bool
	}{
		{name: "primary layer", scope: mainnetEmerald, wantPrimary: true},
		{name: "pontusx test layer", scope: testnetPontusx, wantAlternate: true},
		{name: "pontusx dev layer", scope: testnetPontusdev, wantAlternate: true},
		{name: "local network", scope: localnetSapphire, wantPrimary: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primary, alternate := newFakes()
			r := NewResolver(scope.DefaultTable(), primary, alternate, nil)
			r.SearchByName(context.Background(), tt.scope, "bob")

			want := []searchCall{{Scope: tt.scope, Fragment: "bob", Enabled: tt.wantPrimary}}
			if diff := cmp.Diff(want, primary.searches); diff != "" {
				t.Errorf("primary searches mismatch (-want +got):\n%s", diff)
			}
			want = []searchCall{{Scope: tt.scope, Fragment: "bob", Enabled: tt.wantAlternate}}
			if diff := cmp.Diff(want, alternate.searches); diff != "" {
				t.Errorf("alternate searches mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func sharedTable(t *testing.T) *scope.Table {
	t.Helper()
	spec := scope.DefaultTableSpec()
	spec.SharedSearchLayers = []scope.Layer{scope.LayerPontusxTest}
	table, err := scope.NewTable(spec)
	if err != nil {
		t.Fatalf("NewTable() error = %v", err)
	}
	return table
}

func TestResolver_SearchByName_Merge(t *testing.T) {
	a1 := match(testnetPontusx, "A1", account.SourceAlternate)
	a2 := match(testnetPontusx, "A2", account.SourceAlternate)
	p1 := match(testnetPontusx, "P1", account.SourcePrimary)

	tests := []struct {
		name      string
		primary   account.NameSearchResult
		alternate account.NameSearchResult
		want      account.NameSearchResult
	}{
		{
			name:      "alternate results come first",
			alternate: account.NameSearchResult{Results: []account.NameSearchMatch{a1, a2}},
			primary:   account.NameSearchResult{Results: []account.NameSearchMatch{p1}},
			want:      account.NameSearchResult{Results: []account.NameSearchMatch{a1, a2, p1}},
		},
		{
			name:      "no deduplication",
			alternate: account.NameSearchResult{Results: []account.NameSearchMatch{a1}},
			primary:   account.NameSearchResult{Results: []account.NameSearchMatch{a1}},
			want:      account.NameSearchResult{Results: []account.NameSearchMatch{a1, a1}},
		},
		{
			name:      "one error marks the merge as errored",
			alternate: account.NameSearchResult{IsError: true, Results: []account.NameSearchMatch{}},
			primary:   account.NameSearchResult{Results: []account.NameSearchMatch{p1}},
			want:      account.NameSearchResult{IsError: true, Results: []account.NameSearchMatch{p1}},
		},
		{
			name:      "one loading marks the merge as loading",
			alternate: account.NameSearchResult{Results: []account.NameSearchMatch{a1}},
			primary:   account.NameSearchResult{IsLoading: true, Results: []account.NameSearchMatch{}},
			want:      account.NameSearchResult{IsLoading: true, Results: []account.NameSearchMatch{a1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primary, alternate := newFakes()
			primary.search = tt.primary
			alternate.search = tt.alternate
			r := NewResolver(sharedTable(t), primary, alternate, nil)

			got := r.SearchByName(context.Background(), testnetPontusx, "a")
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("SearchByName() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolver_SearchByName_IgnoresInvalidSources(t *testing.T) {
	// A search that is not valid for the scope cannot contribute flags or results.
	primary := &staticSearch{result: account.NameSearchResult{IsLoading: true, IsError: true, Results: []account.NameSearchMatch{match(testnetPontusx, "P", account.SourcePrimary)}}}
	alternate := &fakeSource{
		kind:   account.SourceAlternate,
		search: account.NameSearchResult{Results: []account.NameSearchMatch{}},
	}

	r := NewResolver(scope.DefaultTable(), primary, alternate, nil)
	got := r.SearchByName(context.Background(), testnetPontusx, "p")

	want := account.NameSearchResult{Results: []account.NameSearchMatch{}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SearchByName() mismatch (-want +got):\n%s", diff)
	}
}

type staticSearch struct {
	fakeSource
	result account.NameSearchResult
}

func (s *staticSearch) SearchByName(_ context.Context, _ scope.Scope, _ string, _ account.QueryOptions) account.NameSearchResult {
	return s.result
}
