// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package state

import (
	"context"
	"strings"
	"sync"

	"github.com/allma-studio/allma-go/internal/api"
	"github.com/allma-studio/allma-go/internal/client"
)

// SearchController holds the latest search result set. A new search
// replaces the previous results; an empty query clears them.
type SearchController struct {
	client *client.Client

	mu      sync.Mutex
	query   string
	results []api.SourceHit
}

func NewSearchController(c *client.Client) *SearchController {
	return &SearchController{client: c}
}

// Search runs a query and replaces the held results. An empty or
// whitespace-only query is a no-op that clears the results and returns nil.
func (sc *SearchController) Search(ctx context.Context, query string, topK int) error {
	if strings.TrimSpace(query) == "" {
		sc.mu.Lock()
		sc.query = ""
		sc.results = nil
		sc.mu.Unlock()
		return nil
	}

	hits, err := sc.client.SearchDocuments(ctx, query, topK)
	if err != nil {
		return err
	}

	sc.mu.Lock()
	sc.query = query
	sc.results = hits
	sc.mu.Unlock()
	return nil
}

// Results returns the latest result set and the query that produced it.
func (sc *SearchController) Results() (string, []api.SourceHit) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	out := make([]api.SourceHit, len(sc.results))
	copy(out, sc.results)
	return sc.query, out
}
