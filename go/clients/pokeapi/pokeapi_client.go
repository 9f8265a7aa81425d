// Package pokeapi looks up species data used to enrich draft pool imports.
package pokeapi

import (
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/clients"
)

type Client struct {
	*clients.BaseClient
}

// NewClient creates a client for baseURL, or the public API when empty.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = BaseURL
	}
	return &Client{
		BaseClient: clients.NewBaseClient(baseURL),
	}
}
