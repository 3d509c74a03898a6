package pontusx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"accountmeta/internal/adapters/directory"
	"accountmeta/internal/adapters/logger"
	"accountmeta/internal/adapters/query"
	"accountmeta/internal/domain"
	"accountmeta/internal/domain/account"
	"accountmeta/internal/domain/scope"
)

// DefaultURL is the deltaDAO address book shared by the Pontus-X layers
const DefaultURL = "https://raw.githubusercontent.com/deltaDAO/mvg-portal/main/pontusxAddresses.json"

// AddressBook maps 0x addresses to display names
type AddressBook map[string]string

type Client struct {
	httpClient *http.Client
	url        string
	limiter    domain.RateLimiterService
}

func NewClient(httpClient *http.Client, url string, limiter domain.RateLimiterService) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if url == "" {
		url = DefaultURL
	}
	return &Client{
		httpClient: httpClient,
		url:        url,
		limiter:    limiter,
	}
}

// URL returns the address book location. {network} and {layer} are
// substituted when the configured URL carries them.
func (c *Client) URL(s scope.Scope) string {
	return strings.NewReplacer(
		"{network}", string(s.Network),
		"{layer}", string(s.Layer),
	).Replace(c.url)
}

// FetchAddressBook downloads the address book and returns it ordered by name
func (c *Client) FetchAddressBook(ctx context.Context, s scope.Scope) ([]account.Metadata, error) {
	var book AddressBook
	if err := c.get(ctx, c.URL(s), &book); err != nil {
		return nil, err
	}

	out := make([]account.Metadata, 0, len(book))
	for addr, name := range book {
		if addr == "" || name == "" {
			continue
		}
		out = append(out, account.Metadata{
			Address: addr,
			Name:    name,
			Source:  account.SourceAlternate,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Address < out[j].Address
	})
	return out, nil
}

func (c *Client) get(ctx context.Context, u string, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("pontusx: rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("pontusx: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pontusx: do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("pontusx: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pontusx: status %d, body: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("pontusx: decode body: %w", err)
	}

	return nil
}

// NewSource serves the address book as the alternate source.
// Addresses match case-insensitively and are not converted.
func NewSource(client *Client, store account.Store, cfg query.Config, log *logger.Logger) *directory.Directory {
	return directory.New(account.SourceAlternate, client.FetchAddressBook, store, directory.Config{
		Query:      cfg,
		AddressKey: AddressKey,
	}, log)
}

func AddressKey(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
