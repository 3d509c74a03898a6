package oasisregistry

import (
	"strings"

	"accountmeta/internal/adapters/directory"
	"accountmeta/internal/adapters/logger"
	"accountmeta/internal/adapters/query"
	"accountmeta/internal/domain/account"
	"accountmeta/internal/domain/address"
)

// NewSource serves the Oasis named-accounts registry as the primary source.
// Entries are indexed by their Oasis native address, so 0x and oasis1 forms
// of the same account resolve to one entry.
func NewSource(client *Client, store account.Store, cfg query.Config, log *logger.Logger) *directory.Directory {
	return directory.New(account.SourcePrimary, client.FetchNamedAccounts, store, directory.Config{
		Query:      cfg,
		AddressKey: AddressKey,
	}, log)
}

func AddressKey(addr string) string {
	return strings.ToLower(address.Normalize(strings.TrimSpace(addr)))
}
