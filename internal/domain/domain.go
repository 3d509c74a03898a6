package domain

import (
	"context"

	"accountmeta/internal/domain/account"
	"accountmeta/internal/domain/scope"
)

type RateLimiterService interface {
	Wait(ctx context.Context) error
}

type Cache[K comparable, V any] interface {
	Get(ctx context.Context, key K) (V, bool)
	Set(ctx context.Context, key K, value V)
}

// MetadataService defines the account metadata operations served to callers.
// With wait set the calls block until the sources settle.
type MetadataService interface {
	AccountMetadata(ctx context.Context, s scope.Scope, address string, wait bool) (account.AddressMetadataResult, error)
	SearchByName(ctx context.Context, s scope.Scope, fragment string, wait bool) (account.NameSearchResult, error)
	Scopes() []scope.Info
}
