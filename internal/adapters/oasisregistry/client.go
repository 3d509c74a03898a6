package oasisregistry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"accountmeta/internal/domain"
	"accountmeta/internal/domain/account"
	"accountmeta/internal/domain/scope"
)

// DefaultURLTemplate points at the published named-accounts lists.
// {network} and {layer} are substituted per scope.
const DefaultURLTemplate = "https://raw.githubusercontent.com/oasisprotocol/explorer/main/named-accounts/{network}_{layer}.json"

// Entry is one item of a named-accounts list
type Entry struct {
	Address     string `json:"Address"`
	Name        string `json:"Name"`
	Description string `json:"Description,omitempty"`
	Icon        string `json:"Icon,omitempty"`
}

type Client struct {
	httpClient  *http.Client
	urlTemplate string
	limiter     domain.RateLimiterService
}

// NewClient creates a registry client. limiter may be nil.
func NewClient(httpClient *http.Client, urlTemplate string, limiter domain.RateLimiterService) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if urlTemplate == "" {
		urlTemplate = DefaultURLTemplate
	}
	return &Client{
		httpClient:  httpClient,
		urlTemplate: urlTemplate,
		limiter:     limiter,
	}
}

// URL returns the list location of s
func (c *Client) URL(s scope.Scope) string {
	return strings.NewReplacer(
		"{network}", string(s.Network),
		"{layer}", string(s.Layer),
	).Replace(c.urlTemplate)
}

// FetchNamedAccounts downloads the named-accounts list of s
func (c *Client) FetchNamedAccounts(ctx context.Context, s scope.Scope) ([]account.Metadata, error) {
	var entries []Entry
	if err := c.get(ctx, c.URL(s), &entries); err != nil {
		return nil, err
	}

	out := make([]account.Metadata, 0, len(entries))
	for _, e := range entries {
		if e.Address == "" || e.Name == "" {
			continue
		}
		out = append(out, account.Metadata{
			Address:     e.Address,
			Name:        e.Name,
			Description: e.Description,
			Icon:        e.Icon,
			Source:      account.SourcePrimary,
		})
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, u string, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("oasisregistry: rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("oasisregistry: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("oasisregistry: do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("oasisregistry: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("oasisregistry: status %d, body: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("oasisregistry: decode body: %w", err)
	}

	return nil
}
