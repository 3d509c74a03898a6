package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accountmeta/internal/adapters/logger"
	"accountmeta/internal/application/metadata"
	"accountmeta/internal/domain/account"
	"accountmeta/internal/domain/scope"
	httpports "accountmeta/internal/ports/http"
)

type call struct {
	Scope scope.Scope
	Arg   string
	Wait  bool
}

type fakeMetadataService struct {
	lookup  account.AddressMetadataResult
	search  account.NameSearchResult
	err     error
	lookups []call
	queries []call
}

func (f *fakeMetadataService) AccountMetadata(_ context.Context, s scope.Scope, address string, wait bool) (account.AddressMetadataResult, error) {
	f.lookups = append(f.lookups, call{Scope: s, Arg: address, Wait: wait})
	return f.lookup, f.err
}

func (f *fakeMetadataService) SearchByName(_ context.Context, s scope.Scope, fragment string, wait bool) (account.NameSearchResult, error) {
	f.queries = append(f.queries, call{Scope: s, Arg: fragment, Wait: wait})
	return f.search, f.err
}

func (f *fakeMetadataService) Scopes() []scope.Info {
	return []scope.Info{
		{Scope: scope.New(scope.NetworkMainnet, scope.LayerEmerald)},
		{Scope: scope.New(scope.NetworkTestnet, scope.LayerPontusxTest), IsAlternate: true},
	}
}

func newTestServer(svc *fakeMetadataService) *echo.Echo {
	s := NewServer(Config{}, NewHandlerAdapter(svc, logger.NewNopLogger()), logger.NewNopLogger())
	return s.echo
}

func do(t *testing.T, e *echo.Echo, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	rec := do(t, newTestServer(&fakeMetadataService{}), "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestGetScopes(t *testing.T) {
	rec := do(t, newTestServer(&fakeMetadataService{}), "/api/v1/scopes")
	require.Equal(t, http.StatusOK, rec.Code)

	var body httpports.ScopesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Scopes, 2)
	assert.Equal(t, httpports.Scope{Network: "testnet", Layer: "pontusxtest", IsAlternate: true}, body.Scopes[1])
}

func TestGetAccountMetadata(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		svc        *fakeMetadataService
		wantStatus int
		wantCall   *call
	}{
		{
			name:   "resolves with wait by default",
			target: "/api/v1/mainnet/emerald/accounts/0xabc/metadata",
			svc: &fakeMetadataService{lookup: account.AddressMetadataResult{
				Metadata: &account.Metadata{Address: "oasis1qabc", Name: "Bridge"},
			}},
			wantStatus: http.StatusOK,
			wantCall:   &call{Scope: scope.New(scope.NetworkMainnet, scope.LayerEmerald), Arg: "0xabc", Wait: true},
		},
		{
			name:       "wait=false is passed through",
			target:     "/api/v1/testnet/pontusxdev/accounts/0xabc/metadata?wait=false",
			svc:        &fakeMetadataService{lookup: account.AddressMetadataResult{IsLoading: true}},
			wantStatus: http.StatusOK,
			wantCall:   &call{Scope: scope.New(scope.NetworkTestnet, scope.LayerPontusxDev), Arg: "0xabc", Wait: false},
		},
		{
			name:       "scope names are case-insensitive",
			target:     "/api/v1/MainNet/Sapphire/accounts/oasis1qx/metadata",
			svc:        &fakeMetadataService{},
			wantStatus: http.StatusOK,
			wantCall:   &call{Scope: scope.New(scope.NetworkMainnet, scope.LayerSapphire), Arg: "oasis1qx", Wait: true},
		},
		{
			name:       "unknown network",
			target:     "/api/v1/devnet/emerald/accounts/0xabc/metadata",
			svc:        &fakeMetadataService{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown layer",
			target:     "/api/v1/mainnet/granite/accounts/0xabc/metadata",
			svc:        &fakeMetadataService{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid wait",
			target:     "/api/v1/mainnet/emerald/accounts/0xabc/metadata?wait=maybe",
			svc:        &fakeMetadataService{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "disabled scope",
			target:     "/api/v1/mainnet/pontusxdev/accounts/0xabc/metadata",
			svc:        &fakeMetadataService{err: fmt.Errorf("%w: mainnet/pontusxdev", metadata.ErrScopeDisabled)},
			wantStatus: http.StatusNotFound,
			wantCall:   &call{Scope: scope.New(scope.NetworkMainnet, scope.LayerPontusxDev), Arg: "0xabc", Wait: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newTestServer(tt.svc), tt.target)
			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantCall == nil {
				assert.Empty(t, tt.svc.lookups)
				var body httpports.ErrorResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, "Bad Request", body.Error)
				return
			}
			require.Len(t, tt.svc.lookups, 1)
			assert.Equal(t, *tt.wantCall, tt.svc.lookups[0])
		})
	}
}

func TestGetAccountMetadata_Body(t *testing.T) {
	svc := &fakeMetadataService{lookup: account.AddressMetadataResult{
		Metadata: &account.Metadata{Address: "0xabc", Name: "Ocean", Source: account.SourceAlternate},
		IsError:  true,
	}}
	rec := do(t, newTestServer(svc), "/api/v1/testnet/pontusxtest/accounts/0xabc/metadata")
	require.Equal(t, http.StatusOK, rec.Code)

	var body httpports.AddressMetadataResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "pontusxtest", body.Layer)
	assert.True(t, body.IsError)
	require.NotNil(t, body.Metadata)
	assert.Equal(t, "Ocean", body.Metadata.Name)
	assert.Equal(t, "pontusx", body.Metadata.Source)
}

func TestSearchAccounts(t *testing.T) {
	pontusx := scope.New(scope.NetworkTestnet, scope.LayerPontusxTest)
	svc := &fakeMetadataService{search: account.NameSearchResult{
		IsLoading: true,
		Results: []account.NameSearchMatch{
			{Scope: pontusx, Metadata: account.Metadata{Name: "Ocean A", Source: account.SourceAlternate}},
			{Scope: pontusx, Metadata: account.Metadata{Name: "Ocean B", Source: account.SourceAlternate}},
		},
	}}

	rec := do(t, newTestServer(svc), "/api/v1/testnet/pontusxtest/accounts/search?name=ocean&wait=0")
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, svc.queries, 1)
	assert.Equal(t, call{Scope: pontusx, Arg: "ocean", Wait: false}, svc.queries[0])

	var body httpports.NameSearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.IsLoading)
	require.Len(t, body.Results, 2)
	assert.Equal(t, "Ocean A", body.Results[0].Metadata.Name)
}

func TestSearchAccounts_Errors(t *testing.T) {
	rec := do(t, newTestServer(&fakeMetadataService{}), "/api/v1/testnet/nope/accounts/search?name=x")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc := &fakeMetadataService{err: fmt.Errorf("%w: x", metadata.ErrScopeDisabled)}
	rec = do(t, newTestServer(svc), "/api/v1/mainnet/pontusxtest/accounts/search?name=x")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
