package metadata

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"accountmeta/internal/adapters/logger"
	"accountmeta/internal/domain/account"
	"accountmeta/internal/domain/scope"
)

var (
	// ErrScopeDisabled is returned for a scope that is not served
	ErrScopeDisabled = errors.New("scope is not enabled")
)

// DefaultAttempts bounds how often a blocking call re-evaluates the resolver
const DefaultAttempts = 3

// settler is implemented by sources that can report when a pending lookup
// or search has finished
type settler interface {
	WaitLookup(ctx context.Context, s scope.Scope, address string) error
	WaitSearch(ctx context.Context, s scope.Scope, fragment string) error
}

// Service exposes the resolver to request/response callers. Blocking calls
// wait for the sources to settle and evaluate the resolver again.
type Service struct {
	resolver  *Resolver
	table     *scope.Table
	primary   settler
	alternate settler
	attempts  int
	logger    *logger.Logger
}

func NewService(
	table *scope.Table,
	primary, alternate account.Source,
	normalize func(string) string,
	log *logger.Logger,
) *Service {
	if log == nil {
		log = logger.NewNopLogger()
	}

	svc := &Service{
		resolver: NewResolver(table, primary, alternate, normalize),
		table:    table,
		attempts: DefaultAttempts,
		logger:   log.Named("metadata"),
	}
	if st, ok := primary.(settler); ok {
		svc.primary = st
	}
	if st, ok := alternate.(settler); ok {
		svc.alternate = st
	}
	return svc
}

// AccountMetadata resolves address on s. With wait set it returns once the
// result is no longer loading, the attempts are used up or ctx is done.
func (s *Service) AccountMetadata(ctx context.Context, sc scope.Scope, address string, wait bool) (account.AddressMetadataResult, error) {
	if !s.table.IsEnabled(sc) {
		return account.AddressMetadataResult{}, fmt.Errorf("%w: %s", ErrScopeDisabled, sc)
	}

	res := s.resolver.AccountMetadata(ctx, sc, address)
	// an alternate lookup in flight is masked by the disabled primary result
	pending := res.IsLoading || (s.table.IsAlternate(sc.Layer) && !res.HasMetadata())
	for i := 1; wait && pending && i < s.attempts; i++ {
		if !s.settleLookup(ctx, sc, address) {
			break
		}
		res = s.resolver.AccountMetadata(ctx, sc, address)
		pending = res.IsLoading
	}

	if res.IsLoading && wait {
		s.logger.Debug("Account metadata still loading",
			zap.String("scope", sc.String()),
			zap.String("address", address),
		)
	}
	return res, nil
}

// SearchByName searches both sources for fragment on s, waiting like
// AccountMetadata when wait is set.
func (s *Service) SearchByName(ctx context.Context, sc scope.Scope, fragment string, wait bool) (account.NameSearchResult, error) {
	if !s.table.IsEnabled(sc) {
		return account.NameSearchResult{Results: []account.NameSearchMatch{}}, fmt.Errorf("%w: %s", ErrScopeDisabled, sc)
	}

	res := s.resolver.SearchByName(ctx, sc, fragment)
	for i := 1; wait && res.IsLoading && i < s.attempts; i++ {
		if !s.settleSearch(ctx, sc, fragment) {
			break
		}
		res = s.resolver.SearchByName(ctx, sc, fragment)
	}

	if res.IsLoading && wait {
		s.logger.Debug("Name search still loading",
			zap.String("scope", sc.String()),
			zap.String("fragment", fragment),
		)
	}
	return res, nil
}

// Scopes lists every served scope
func (s *Service) Scopes() []scope.Info {
	scopes := s.table.Scopes()
	out := make([]scope.Info, 0, len(scopes))
	for _, sc := range scopes {
		out = append(out, s.table.Describe(sc))
	}
	return out
}

// settleLookup waits for the lookups the resolver enables for address on sc
func (s *Service) settleLookup(ctx context.Context, sc scope.Scope, address string) bool {
	var waits []func() error
	if s.alternate != nil && s.table.IsAlternate(sc.Layer) {
		waits = append(waits, func() error { return s.alternate.WaitLookup(ctx, sc, address) })
	}
	if s.primary != nil && !s.table.IsAlternate(sc.Layer) && !s.table.IsLocal(sc.Network) {
		normalized := s.resolver.normalize(address)
		waits = append(waits, func() error { return s.primary.WaitLookup(ctx, sc, normalized) })
	}
	return s.settle(waits)
}

// settleSearch waits for the searches the resolver enables for fragment on sc
func (s *Service) settleSearch(ctx context.Context, sc scope.Scope, fragment string) bool {
	if fragment == "" {
		return false
	}
	var waits []func() error
	if s.alternate != nil && s.table.IsAlternate(sc.Layer) {
		waits = append(waits, func() error { return s.alternate.WaitSearch(ctx, sc, fragment) })
	}
	if s.primary != nil && s.table.SearchesPrimary(sc.Layer) {
		waits = append(waits, func() error { return s.primary.WaitSearch(ctx, sc, fragment) })
	}
	return s.settle(waits)
}

// settle runs waits in order and reports whether the caller should evaluate
// again
func (s *Service) settle(waits []func() error) bool {
	if len(waits) == 0 {
		return false
	}
	for _, wait := range waits {
		if err := wait(); err != nil {
			s.logger.Debug("Stopped waiting for sources", zap.Error(err))
			return false
		}
	}
	return true
}
