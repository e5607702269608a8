package capabilities

import (
	"context"
	"log/slog"
	"strings"
)

// SearchPolicy decides whether a catalog result answered the question.
// The length threshold plus phrase list is a blunt proxy for relevance;
// it is kept configurable rather than strengthened silently because the
// fallback behavior is part of the external contract.
type SearchPolicy struct {
	MinUsefulChars int
	NoHitPhrases   []string
}

func DefaultSearchPolicy() SearchPolicy {
	return SearchPolicy{
		MinUsefulChars: 50,
		NoHitPhrases: []string{
			"no results",
			"no matches found",
			"nothing found",
			"couldn't find",
			"could not find",
		},
	}
}

// Useful reports whether a catalog result is worth returning as-is.
func (p SearchPolicy) Useful(result string) bool {
	trimmed := strings.TrimSpace(result)
	if len(trimmed) <= p.MinUsefulChars {
		return false
	}
	lower := strings.ToLower(trimmed)
	for _, phrase := range p.NoHitPhrases {
		if strings.Contains(lower, strings.ToLower(phrase)) {
			return false
		}
	}
	return true
}

var tradeInMarkers = []string{"trade-in", "trade in", "tradein", "trade value", "buyback"}

// IsTradeInQuery classifies a free-text query as a trade-in-value
// lookup. Trade-in pricing must never be answered from retail sources.
func IsTradeInQuery(query string) bool {
	lower := strings.ToLower(query)
	for _, marker := range tradeInMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

const noMatchEscalateText = "No trade-in match was found for that item. " +
	"Please let the customer know a staff member will confirm the value in person."

// CatalogSearch queries the primary catalog/vector store.
func (c *Client) CatalogSearch(ctx context.Context, query string) (string, error) {
	body, err := c.postJSON(ctx, "/catalog/search", map[string]any{"query": query})
	if err != nil {
		return "", err
	}
	return reduce(body), nil
}

// WebSearch queries the general web-search capability.
func (c *Client) WebSearch(ctx context.Context, query string) (string, error) {
	body, err := c.postJSON(ctx, "/web/search", map[string]any{"query": query})
	if err != nil {
		return "", err
	}
	return reduce(body), nil
}

// TradeInValue looks a device up in the trade-in value store.
func (c *Client) TradeInValue(ctx context.Context, item, condition string) (string, error) {
	payload := map[string]any{"item": item}
	if condition != "" {
		payload["condition"] = condition
	}
	body, err := c.postJSON(ctx, "/trade-in/value", payload)
	if err != nil {
		return "", err
	}
	return reduce(body), nil
}

// SearchProducts runs the catalog lookup with the fallback policy: a
// thin catalog result falls back to web search, unless the query is a
// trade-in-value lookup, which must never mix in retail web sources.
func (c *Client) SearchProducts(ctx context.Context, query string, policy SearchPolicy) (string, error) {
	result, err := c.CatalogSearch(ctx, query)
	if err != nil {
		return "", err
	}
	if policy.Useful(result) {
		return result, nil
	}
	if IsTradeInQuery(query) {
		c.logger.Debug("catalog miss on trade-in query, web fallback suppressed",
			slog.String("query", query))
		return noMatchEscalateText, nil
	}
	c.logger.Debug("catalog result below threshold, falling back to web search",
		slog.String("query", query),
		slog.Int("catalog_chars", len(strings.TrimSpace(result))))
	return c.WebSearch(ctx, query)
}

// GetTradeInValue answers a trade-in-value lookup. A store miss returns
// the escalation text; the general web fallback is never consulted.
func (c *Client) GetTradeInValue(ctx context.Context, item, condition string, policy SearchPolicy) (string, error) {
	result, err := c.TradeInValue(ctx, item, condition)
	if err != nil {
		return "", err
	}
	if policy.Useful(result) {
		return result, nil
	}
	return noMatchEscalateText, nil
}
