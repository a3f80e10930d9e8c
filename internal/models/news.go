package models

import "time"

// NewsCacheEntry is a TTL'd snapshot of an external news/media lookup, keyed
// by a caller-derived cache key (typically team+query), backing the
// Research/Media agent's tool cache.
type NewsCacheEntry struct {
	CacheKey string `json:"cache_key" bson:"cache_key"`
	Query string `json:"query" bson:"query"`
	Snippets []string `json:"snippets" bson:"snippets"`
	Source string `json:"source,omitempty" bson:"source,omitempty"`
	FetchedAt time.Time `json:"fetched_at" bson:"fetched_at"`
	ExpiresAt time.Time `json:"expires_at" bson:"expires_at"`
}

// Expired reports whether the cached entry is stale as of now.
func (e NewsCacheEntry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}
