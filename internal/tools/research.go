package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ai-atl/hoopcast/internal/models"
)

// newsTTL bounds how long a fetched news snippet set is reused before a
// fresh search is required.
const newsTTL = 30 * time.Minute

// ResearchHandlers binds the Research/Media agent's tool contract for one
// game: game/team/player news and a general web search, all TTL-cached
// through NewsCacheStore and all honoring force_refresh.
func (r *Registry) ResearchHandlers(gameID string) map[string]func(ctx context.Context, args map[string]any) (any, error) {
	return map[string]func(ctx context.Context, args map[string]any) (any, error){
		"get_game_news": r.newsTool(func(args map[string]any) (string, string) {
			return "game:" + gameID, "news about game " + gameID
		}),
		"get_team_news": r.newsTool(func(args map[string]any) (string, string) {
			team := optStringArg(args, "team_id")
			return "team:" + team, team + " team news"
		}),
		"get_player_news": r.newsTool(func(args map[string]any) (string, string) {
			player := optStringArg(args, "player_id")
			return "player:" + player, player + " player news"
		}),
		"web_search": r.newsTool(func(args map[string]any) (string, string) {
			query := optStringArg(args, "query")
			return "search:" + query, query
		}),
	}
}

// newsTool builds a handler that resolves (cacheKey, query) from args, then
// serves from NewsCacheStore unless expired or force_refresh, falling back
// to fetchNews on a miss.
func (r *Registry) newsTool(keyAndQuery func(args map[string]any) (string, string)) func(ctx context.Context, args map[string]any) (any, error) {
	return func(ctx context.Context, args map[string]any) (any, error) {
		cacheKey, query := keyAndQuery(args)
		forceRefresh := boolArg(args, "force_refresh")

		if !forceRefresh {
			if entry, err := r.News.Get(ctx, cacheKey); err == nil && entry != nil {
				return entry, nil
			}
		}

		snippets, source, err := r.fetchNews(ctx, query)
		if err != nil {
			return nil, err
		}
		now := time.Now()
		entry := &models.NewsCacheEntry{
			CacheKey: cacheKey,
			Query: query,
			Snippets: snippets,
			Source: source,
			FetchedAt: now,
			ExpiresAt: now.Add(newsTTL),
		}
		if err := r.News.Upsert(ctx, entry); err != nil {
			return nil, fmt.Errorf("tools: persist news cache entry: %w", err)
		}
		return entry, nil
	}
}

// fetchNews queries the league's configured news-search endpoint. With no
// endpoint configured (the common case in a self-hosted deployment without
// a media API key) it returns a single placeholder snippet with source
// "none" rather than failing the agent turn.
func (r *Registry) fetchNews(ctx context.Context, query string) ([]string, string, error) {
	if r.Cfg.NewsSearchURLTemplate == "" {
		return []string{"no news source configured for this deployment"}, "none", nil
	}

	searchURL := fmt.Sprintf(r.Cfg.NewsSearchURLTemplate, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("tools: build news search request: %w", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("tools: news search request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("tools: read news search response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("tools: news search returned %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Snippets []string `json:"snippets"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		// The endpoint returned a non-JSON payload; treat the raw body as
		// a single snippet rather than discarding the result.
		return []string{string(bytes.TrimSpace(body))}, searchURL, nil
	}
	return parsed.Snippets, searchURL, nil
}
