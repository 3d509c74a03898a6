package http

import (
	"accountmeta/internal/domain/account"
	"accountmeta/internal/domain/scope"
)

func ToHTTPMetadata(m *account.Metadata) *Metadata {
	if m == nil {
		return nil
	}
	return &Metadata{
		Address:     m.Address,
		Name:        m.Name,
		Description: m.Description,
		Icon:        m.Icon,
		Source:      m.Source.String(),
	}
}

func ToHTTPAddressMetadata(s scope.Scope, address string, r account.AddressMetadataResult) *AddressMetadataResponse {
	return &AddressMetadataResponse{
		Network:   string(s.Network),
		Layer:     string(s.Layer),
		Address:   address,
		Metadata:  ToHTTPMetadata(r.Metadata),
		IsLoading: r.IsLoading,
		IsError:   r.IsError,
	}
}

// ToHTTPNameSearch keeps result order and always returns a non-nil result list
func ToHTTPNameSearch(s scope.Scope, name string, r account.NameSearchResult) *NameSearchResponse {
	results := make([]NameSearchMatch, len(r.Results))
	for i, m := range r.Results {
		results[i] = NameSearchMatch{
			Network:  string(m.Scope.Network),
			Layer:    string(m.Scope.Layer),
			Metadata: *ToHTTPMetadata(&m.Metadata),
		}
	}
	return &NameSearchResponse{
		Network:   string(s.Network),
		Layer:     string(s.Layer),
		Name:      name,
		IsLoading: r.IsLoading,
		IsError:   r.IsError,
		Results:   results,
	}
}

func ToHTTPScopes(infos []scope.Info) *ScopesResponse {
	scopes := make([]Scope, len(infos))
	for i, info := range infos {
		scopes[i] = Scope{
			Network:     string(info.Scope.Network),
			Layer:       string(info.Scope.Layer),
			IsAlternate: info.IsAlternate,
			IsLocal:     info.IsLocal,
		}
	}
	return &ScopesResponse{Scopes: scopes}
}
