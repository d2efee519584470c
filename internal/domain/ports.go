package domain

import (
	"context"
	"time"
)

// PriceSession drives one browser through the fixed per-item search protocol:
// submit location, submit product term, read the results view. The same
// session is reused for every item of a batch; Close releases the underlying
// browser and must be called exactly once.
type PriceSession interface {
	SubmitLocation(ctx context.Context, location string) error
	SubmitProduct(ctx context.Context, term string) error
	// ResultsHTML waits for the results view and returns its markup. A page
	// that never shows results yields an empty string, not an error.
	ResultsHTML(ctx context.Context) (string, error)
	Close() error
}

// SessionFactory creates price search sessions. Implementations bound the
// number of concurrently live sessions.
type SessionFactory interface {
	NewSession(ctx context.Context) (PriceSession, error)
}

// OfferExtractor parses a results view into normalized offers, skipping
// malformed rows rather than failing.
type OfferExtractor interface {
	Extract(html string) []Offer
}

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
