package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/smartcart/backend/internal/domain"
)

// Package-level compiled regex patterns for performance
var (
	// Locations may be Hebrew, so keep any letter or digit
	nonAlphanumericRegex = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
	multipleSpacesRegex  = regexp.MustCompile(`\s+`)
)

var titleCaser = cases.Title(language.English)

// SearchServiceConfig holds configuration for the price search service
type SearchServiceConfig struct {
	TopOffers    int
	BatchTimeout time.Duration
	CacheTTL     time.Duration
}

// SearchService runs batch price searches: one browser session per batch,
// items processed sequentially in request order, per-item failures isolated,
// cart aggregation after every item has completed.
type SearchService struct {
	sessions     domain.SessionFactory
	extractor    domain.OfferExtractor
	cache        domain.CacheRepository
	translator   *Translator
	ranker       *Ranker
	aggregator   *CartAggregator
	batchTimeout time.Duration
	cacheTTL     time.Duration
}

// NewSearchService creates a search service with dependencies.
func NewSearchService(
	sessions domain.SessionFactory,
	extractor domain.OfferExtractor,
	cache domain.CacheRepository,
	translator *Translator,
	config SearchServiceConfig,
) *SearchService {
	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 15 * time.Minute
	}

	return &SearchService{
		sessions:     sessions,
		extractor:    extractor,
		cache:        cache,
		translator:   translator,
		ranker:       NewRanker(config.TopOffers),
		aggregator:   NewCartAggregator(),
		batchTimeout: config.BatchTimeout,
		cacheTTL:     cacheTTL,
	}
}

// SearchBatch searches every item of a shopping list at the given location.
// Exactly one ItemSearchResult is returned per requested item, in request
// order. Only session creation (browser launch / initial site load) fails the
// whole request; every other failure is reported inside its item's result.
func (s *SearchService) SearchBatch(
	ctx context.Context,
	location string,
	items []string,
) ([]*domain.ItemSearchResult, domain.CartSummary, error) {
	if strings.TrimSpace(location) == "" || len(items) == 0 {
		return nil, domain.CartSummary{}, domain.ErrInvalidRequest
	}

	if s.batchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.batchTimeout)
		defer cancel()
	}

	results := make([]*domain.ItemSearchResult, len(items))
	queries := make([]domain.ProductQuery, len(items))
	needSession := false

	// Resolve cache hits first so a fully cached batch never launches a browser
	for i, item := range items {
		queries[i] = domain.ProductQuery{
			CanonicalName: NormalizeItemName(item),
			Location:      strings.TrimSpace(location),
		}
		if cached := s.getCached(ctx, queries[i]); cached != nil {
			log.Printf("[SEARCH] cache hit for %q in %q", queries[i].CanonicalName, queries[i].Location)
			results[i] = cached
			continue
		}
		needSession = true
	}

	var session domain.PriceSession
	if needSession {
		var err error
		session, err = s.sessions.NewSession(ctx)
		if err != nil {
			return nil, domain.CartSummary{}, fmt.Errorf("%w: %v", domain.ErrSessionUnavailable, err)
		}
		defer func() {
			if cerr := session.Close(); cerr != nil {
				log.Printf("[SEARCH] session close: %v", cerr)
			}
		}()
	}

	for i, query := range queries {
		if results[i] != nil {
			continue // cache hit
		}

		if err := ctx.Err(); err != nil {
			results[i] = errorResult(query, "", fmt.Sprintf("batch deadline exceeded: %v", err))
			continue
		}

		results[i] = s.searchOne(ctx, session, query)
		if results[i].Succeeded() {
			s.putCached(ctx, query, results[i])
		}
	}

	return results, s.aggregator.Aggregate(results), nil
}

// SearchItem is the single-item variant; it returns one result and no cart
// summary. Session creation failure is still a request-level error.
func (s *SearchService) SearchItem(ctx context.Context, location, item string) (*domain.ItemSearchResult, error) {
	if strings.TrimSpace(location) == "" || strings.TrimSpace(item) == "" {
		return nil, domain.ErrInvalidRequest
	}

	results, _, err := s.SearchBatch(ctx, location, []string{item})
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// searchOne drives the shared session through the per-item protocol:
// translate, submit location, submit product, extract, rank.
func (s *SearchService) searchOne(
	ctx context.Context,
	session domain.PriceSession,
	query domain.ProductQuery,
) *domain.ItemSearchResult {
	term, err := s.translator.Translate(query.CanonicalName)
	if err != nil {
		log.Printf("[SEARCH] %v", err)
		return errorResult(query, "", err.Error())
	}

	if err := session.SubmitLocation(ctx, query.Location); err != nil {
		log.Printf("[SEARCH] location input failed for %q: %v", query.CanonicalName, err)
		return errorResult(query, term, fmt.Sprintf("location input failed: %v", err))
	}

	if err := session.SubmitProduct(ctx, term); err != nil {
		log.Printf("[SEARCH] product input failed for %q: %v", query.CanonicalName, err)
		return errorResult(query, term, fmt.Sprintf("product input failed: %v", err))
	}

	html, err := session.ResultsHTML(ctx)
	if err != nil {
		log.Printf("[SEARCH] results read failed for %q: %v", query.CanonicalName, err)
		return errorResult(query, term, fmt.Sprintf("results read failed: %v", err))
	}

	offers := s.extractor.Extract(html)
	byPrice, byDistance := s.ranker.Rank(offers)

	log.Printf("[SEARCH] %q in %q: %d offers (%d ranked by price, %d by distance)",
		query.CanonicalName, query.Location, len(offers), len(byPrice), len(byDistance))

	return &domain.ItemSearchResult{
		Status:           domain.StatusSuccess,
		Query:            query,
		LocalizedTerm:    term,
		OffersByPrice:    byPrice,
		OffersByDistance: byDistance,
	}
}

func errorResult(query domain.ProductQuery, term, message string) *domain.ItemSearchResult {
	return &domain.ItemSearchResult{
		Status:           domain.StatusError,
		Query:            query,
		LocalizedTerm:    term,
		OffersByPrice:    []domain.Offer{},
		OffersByDistance: []domain.Offer{},
		ErrorMessage:     message,
	}
}

// NormalizeItemName applies the boundary contract for free-text item names:
// trim whitespace, strip the trailing plural "s", capitalize. "apples" and
// "Apples" both become "Apple" before translation lookup.
func NormalizeItemName(item string) string {
	name := strings.TrimSpace(item)
	name = strings.TrimRight(name, "sS")
	return titleCaser.String(strings.ToLower(name))
}

func (s *SearchService) getCached(ctx context.Context, query domain.ProductQuery) *domain.ItemSearchResult {
	if s.cache == nil {
		return nil
	}

	value, err := s.cache.Get(ctx, cacheKey(query))
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			log.Printf("[SEARCH] cache get: %v", err)
		}
		return nil
	}

	result, ok := value.(*domain.ItemSearchResult)
	if !ok {
		return nil
	}
	return result
}

func (s *SearchService) putCached(ctx context.Context, query domain.ProductQuery, result *domain.ItemSearchResult) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey(query), result, s.cacheTTL); err != nil {
		// Log but don't fail the item if caching fails
		log.Printf("[SEARCH] cache set: %v", err)
	}
}

// cacheKey builds a normalized cache key from a product query.
// Format: "prices:{normalized_location}:{normalized_product}"
func cacheKey(query domain.ProductQuery) string {
	return fmt.Sprintf("prices:%s:%s",
		normalizeForCacheKey(query.Location),
		normalizeForCacheKey(query.CanonicalName))
}

// normalizeForCacheKey normalizes a string for use as cache key component.
// Converts to lowercase, removes special characters, and trims whitespace.
func normalizeForCacheKey(s string) string {
	if s == "" {
		return ""
	}
	result := strings.ToLower(s)
	result = nonAlphanumericRegex.ReplaceAllString(result, "")
	result = multipleSpacesRegex.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}
