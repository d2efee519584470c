package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/smartcart/backend/internal/domain"
)

// fakeSession records the protocol steps it was driven through and serves a
// canned results page per product term.
type fakeSession struct {
	locations []string
	products  []string
	htmlFor   map[string]string
	failOn    string
	closed    int
}

func (s *fakeSession) SubmitLocation(ctx context.Context, location string) error {
	s.locations = append(s.locations, location)
	return nil
}

func (s *fakeSession) SubmitProduct(ctx context.Context, term string) error {
	if s.failOn != "" && term == s.failOn {
		return fmt.Errorf("%w: product input", domain.ErrControlUnavailable)
	}
	s.products = append(s.products, term)
	return nil
}

func (s *fakeSession) ResultsHTML(ctx context.Context) (string, error) {
	if len(s.products) == 0 {
		return "", nil
	}
	return s.htmlFor[s.products[len(s.products)-1]], nil
}

func (s *fakeSession) Close() error {
	s.closed++
	return nil
}

type fakeFactory struct {
	session  *fakeSession
	err      error
	launches int
}

func (f *fakeFactory) NewSession(ctx context.Context) (domain.PriceSession, error) {
	f.launches++
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

// fakeExtractor turns "chain|price;chain|price" strings into offers so tests
// control extraction output without real markup.
type fakeExtractor struct{}

func (fakeExtractor) Extract(html string) []domain.Offer {
	if html == "" {
		return []domain.Offer{}
	}
	var offers []domain.Offer
	for _, part := range strings.Split(html, ";") {
		fields := strings.Split(part, "|")
		var price float64
		fmt.Sscanf(fields[1], "%f", &price)
		offers = append(offers, domain.Offer{
			StoreChain: fields[0],
			StoreName:  fields[0] + " branch",
			PriceValue: price,
		})
	}
	return offers
}

type fakeCache struct {
	data map[string]interface{}
	gets int
	sets int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string]interface{})}
}

func (c *fakeCache) Get(ctx context.Context, key string) (interface{}, error) {
	c.gets++
	if v, ok := c.data[key]; ok {
		return v, nil
	}
	return nil, domain.ErrCacheMiss
}

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.sets++
	c.data[key] = value
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, key string) error {
	delete(c.data, key)
	return nil
}

func (c *fakeCache) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := c.data[key]
	return ok, nil
}

func newTestService(factory *fakeFactory, cache domain.CacheRepository) *SearchService {
	return NewSearchService(factory, fakeExtractor{}, cache, NewTranslator(nil), SearchServiceConfig{
		TopOffers: 5,
	})
}

func TestSearchService_SearchBatch(t *testing.T) {
	t.Run("one result per item in request order", func(t *testing.T) {
		session := &fakeSession{htmlFor: map[string]string{
			"תפוח": "ChainA|4.00;ChainB|3.50",
			"בננה": "ChainA|6.00",
		}}
		factory := &fakeFactory{session: session}
		service := newTestService(factory, newFakeCache())

		results, summary, err := service.SearchBatch(context.Background(), "תל אביב", []string{"apples", "Banana"})
		if err != nil {
			t.Fatalf("SearchBatch returned error: %v", err)
		}
		if len(results) != 2 {
			t.Fatalf("got %d results, want 2", len(results))
		}
		if results[0].Query.CanonicalName != "Apple" || results[1].Query.CanonicalName != "Banana" {
			t.Errorf("result order wrong: %q, %q",
				results[0].Query.CanonicalName, results[1].Query.CanonicalName)
		}
		if !results[0].Succeeded() || !results[1].Succeeded() {
			t.Errorf("expected both items to succeed: %+v %+v", results[0], results[1])
		}
		if results[0].LocalizedTerm != "תפוח" {
			t.Errorf("LocalizedTerm = %q, want תפוח", results[0].LocalizedTerm)
		}
		if !summary.Available {
			t.Errorf("expected cart summary, got message %q", summary.Message)
		}
		if session.closed != 1 {
			t.Errorf("session closed %d times, want 1", session.closed)
		}
	})

	t.Run("location resubmitted before every item", func(t *testing.T) {
		session := &fakeSession{htmlFor: map[string]string{}}
		factory := &fakeFactory{session: session}
		service := newTestService(factory, newFakeCache())

		_, _, err := service.SearchBatch(context.Background(), "חיפה", []string{"Apple", "Banana", "Carrot"})
		if err != nil {
			t.Fatalf("SearchBatch returned error: %v", err)
		}
		if len(session.locations) != 3 {
			t.Errorf("location submitted %d times, want 3", len(session.locations))
		}
	})

	t.Run("untranslatable item fails alone", func(t *testing.T) {
		session := &fakeSession{htmlFor: map[string]string{
			"תפוח": "ChainA|4.00",
		}}
		factory := &fakeFactory{session: session}
		service := newTestService(factory, newFakeCache())

		results, _, err := service.SearchBatch(context.Background(), "תל אביב", []string{"Apple", "Kumquat"})
		if err != nil {
			t.Fatalf("SearchBatch returned error: %v", err)
		}
		if !results[0].Succeeded() {
			t.Errorf("Apple should succeed, got %q", results[0].ErrorMessage)
		}
		if results[1].Succeeded() {
			t.Error("Kumquat should fail without a translation")
		}
		if results[1].ErrorMessage == "" {
			t.Error("failed item needs an error message")
		}
		if results[1].OffersByPrice == nil || results[1].OffersByDistance == nil {
			t.Error("failed item should carry empty, not nil, offer lists")
		}
	})

	t.Run("browser step failure fails only that item", func(t *testing.T) {
		session := &fakeSession{
			htmlFor: map[string]string{"בננה": "ChainA|6.00"},
			failOn:  "תפוח",
		}
		factory := &fakeFactory{session: session}
		service := newTestService(factory, newFakeCache())

		results, _, err := service.SearchBatch(context.Background(), "תל אביב", []string{"Apple", "Banana"})
		if err != nil {
			t.Fatalf("SearchBatch returned error: %v", err)
		}
		if results[0].Succeeded() {
			t.Error("Apple should fail when the product input fails")
		}
		if !results[1].Succeeded() {
			t.Errorf("Banana should still succeed, got %q", results[1].ErrorMessage)
		}
	})

	t.Run("no offers is success with empty lists", func(t *testing.T) {
		session := &fakeSession{htmlFor: map[string]string{}}
		factory := &fakeFactory{session: session}
		service := newTestService(factory, newFakeCache())

		results, summary, err := service.SearchBatch(context.Background(), "תל אביב", []string{"Apple"})
		if err != nil {
			t.Fatalf("SearchBatch returned error: %v", err)
		}
		if !results[0].Succeeded() {
			t.Errorf("no offers should not be an error: %q", results[0].ErrorMessage)
		}
		if len(results[0].OffersByPrice) != 0 {
			t.Errorf("expected empty offers, got %d", len(results[0].OffersByPrice))
		}
		if summary.Available {
			t.Error("no store carried any item, summary should be unavailable")
		}
	})

	t.Run("session creation failure fails the request", func(t *testing.T) {
		factory := &fakeFactory{err: errors.New("browser launch failed")}
		service := newTestService(factory, newFakeCache())

		_, _, err := service.SearchBatch(context.Background(), "תל אביב", []string{"Apple"})
		if !errors.Is(err, domain.ErrSessionUnavailable) {
			t.Errorf("expected ErrSessionUnavailable, got %v", err)
		}
	})

	t.Run("empty location or items rejected", func(t *testing.T) {
		service := newTestService(&fakeFactory{session: &fakeSession{}}, newFakeCache())

		if _, _, err := service.SearchBatch(context.Background(), "  ", []string{"Apple"}); !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("blank location: expected ErrInvalidRequest, got %v", err)
		}
		if _, _, err := service.SearchBatch(context.Background(), "תל אביב", nil); !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("no items: expected ErrInvalidRequest, got %v", err)
		}
	})

	t.Run("fully cached batch never launches a browser", func(t *testing.T) {
		cache := newFakeCache()
		session := &fakeSession{htmlFor: map[string]string{"תפוח": "ChainA|4.00"}}
		factory := &fakeFactory{session: session}
		service := newTestService(factory, cache)

		if _, _, err := service.SearchBatch(context.Background(), "תל אביב", []string{"Apple"}); err != nil {
			t.Fatalf("first batch: %v", err)
		}
		if factory.launches != 1 {
			t.Fatalf("first batch launches = %d, want 1", factory.launches)
		}
		if cache.sets != 1 {
			t.Fatalf("cache sets = %d, want 1", cache.sets)
		}

		results, _, err := service.SearchBatch(context.Background(), "תל אביב", []string{"Apple"})
		if err != nil {
			t.Fatalf("second batch: %v", err)
		}
		if factory.launches != 1 {
			t.Errorf("cached batch launched a browser: launches = %d", factory.launches)
		}
		if !results[0].Succeeded() {
			t.Errorf("cached result should succeed: %q", results[0].ErrorMessage)
		}
	})

	t.Run("failed items are not cached", func(t *testing.T) {
		cache := newFakeCache()
		service := newTestService(&fakeFactory{session: &fakeSession{htmlFor: map[string]string{}}}, cache)

		if _, _, err := service.SearchBatch(context.Background(), "תל אביב", []string{"Kumquat"}); err != nil {
			t.Fatalf("SearchBatch returned error: %v", err)
		}
		if cache.sets != 0 {
			t.Errorf("error result was cached: sets = %d", cache.sets)
		}
	})

	t.Run("expired deadline marks remaining items", func(t *testing.T) {
		session := &fakeSession{htmlFor: map[string]string{}}
		service := newTestService(&fakeFactory{session: session}, newFakeCache())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		results, _, err := service.SearchBatch(ctx, "תל אביב", []string{"Apple", "Banana"})
		if err != nil {
			t.Fatalf("SearchBatch returned error: %v", err)
		}
		for i, res := range results {
			if res.Succeeded() {
				t.Errorf("item %d succeeded under a dead context", i)
			}
			if !strings.Contains(res.ErrorMessage, "deadline") {
				t.Errorf("item %d message = %q, want deadline mention", i, res.ErrorMessage)
			}
		}
	})
}

func TestSearchService_SearchItem(t *testing.T) {
	t.Run("returns the single item result", func(t *testing.T) {
		session := &fakeSession{htmlFor: map[string]string{"בננה": "ChainA|6.00"}}
		service := newTestService(&fakeFactory{session: session}, newFakeCache())

		result, err := service.SearchItem(context.Background(), "תל אביב", "bananas")
		if err != nil {
			t.Fatalf("SearchItem returned error: %v", err)
		}
		if result.Query.CanonicalName != "Banana" {
			t.Errorf("CanonicalName = %q, want Banana", result.Query.CanonicalName)
		}
		if !result.Succeeded() {
			t.Errorf("expected success, got %q", result.ErrorMessage)
		}
	})

	t.Run("blank item rejected", func(t *testing.T) {
		service := newTestService(&fakeFactory{session: &fakeSession{}}, newFakeCache())
		if _, err := service.SearchItem(context.Background(), "תל אביב", "  "); !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("expected ErrInvalidRequest, got %v", err)
		}
	})
}

func TestNormalizeItemName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"apples", "Apple"},
		{"Apples", "Apple"},
		{"APPLES", "Apple"},
		{"  banana  ", "Banana"},
		{"tomatoes", "Tomatoe"},
		{"Kiwi", "Kiwi"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeItemName(tt.input); got != tt.want {
			t.Errorf("NormalizeItemName(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
