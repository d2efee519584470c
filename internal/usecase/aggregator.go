package usecase

import (
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/smartcart/backend/internal/domain"
)

// CartAggregator folds per-item ranked results into a single cross-store
// recommendation. Coverage dominates raw price and distance: a store missing
// fewer items always outranks a cheaper or closer but less complete store.
//
// Only offers that survived per-item top-K price ranking are visible here; a
// store absent from every item's top-K list is invisible to the aggregator
// even if it might be globally competitive. Accepted approximation.
type CartAggregator struct{}

// NewCartAggregator creates a cart aggregator.
func NewCartAggregator() *CartAggregator {
	return &CartAggregator{}
}

// Aggregate produces the cart summary for one batch. It only reads the item
// results, so re-running it over the same inputs yields an identical summary.
// An unexpected failure while folding is reported as available=false with a
// message; the per-item results remain valid and are served regardless.
func (a *CartAggregator) Aggregate(itemResults []*domain.ItemSearchResult) (summary domain.CartSummary) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[CART] aggregation failed: %v", r)
			summary = domain.CartSummary{
				Available: false,
				Message:   fmt.Sprintf("cart aggregation failed: %v", r),
			}
		}
	}()

	var successes []*domain.ItemSearchResult
	for _, res := range itemResults {
		if res != nil && res.Succeeded() {
			successes = append(successes, res)
		}
	}

	if len(successes) == 0 {
		return domain.CartSummary{
			Available: false,
			Message:   "no items produced successful results",
		}
	}

	totalItems := len(successes)
	stores := make(map[domain.StoreKey]*domain.StoreAggregate)

	for _, res := range successes {
		for _, offer := range res.OffersByPrice {
			key := domain.StoreKey{Chain: offer.StoreChain, Name: offer.StoreName}
			agg, ok := stores[key]
			if !ok {
				agg = &domain.StoreAggregate{
					StoreChain:      offer.StoreChain,
					StoreName:       offer.StoreName,
					Address:         offer.Address,
					DistanceDisplay: offer.DistanceRaw,
					DistanceValue:   offer.DistanceValue,
					Items:           make(map[string]float64),
				}
				stores[key] = agg
			}

			// One price per product per store; first offer wins since the
			// per-item list is already price-sorted
			if _, seen := agg.Items[res.Query.CanonicalName]; seen {
				continue
			}
			agg.Items[res.Query.CanonicalName] = offer.PriceValue
			agg.TotalPrice += offer.PriceValue
			agg.ItemsFound++
		}
	}

	ranked := make([]*domain.StoreAggregate, 0, len(stores))
	for _, agg := range stores {
		agg.ItemsMissing = totalItems - agg.ItemsFound
		agg.CoveragePct = float64(agg.ItemsFound) / float64(totalItems) * 100
		ranked = append(ranked, agg)
	}

	byPrice := make([]*domain.StoreAggregate, len(ranked))
	copy(byPrice, ranked)
	sort.SliceStable(byPrice, func(i, j int) bool {
		if byPrice[i].ItemsMissing != byPrice[j].ItemsMissing {
			return byPrice[i].ItemsMissing < byPrice[j].ItemsMissing
		}
		return byPrice[i].TotalPrice < byPrice[j].TotalPrice
	})

	byDistance := make([]*domain.StoreAggregate, len(ranked))
	copy(byDistance, ranked)
	sort.SliceStable(byDistance, func(i, j int) bool {
		if byDistance[i].ItemsMissing != byDistance[j].ItemsMissing {
			return byDistance[i].ItemsMissing < byDistance[j].ItemsMissing
		}
		return byDistance[i].DistanceValue < byDistance[j].DistanceValue
	})

	return domain.CartSummary{
		Available:         true,
		TotalItems:        totalItems,
		BestPriceStore:    byPrice[0],
		BestDistanceStore: byDistance[0],
		PotentialSavings:  potentialSavings(byPrice),
	}
}

// potentialSavings is the spread between the most and least expensive store
// among the candidates tied at the best (minimum) items-missing count in the
// price ranking. Comparing totals across stores with different coverage would
// reward missing items, so less complete stores are excluded. A store whose
// total contains an unparsable price (+Inf) cannot anchor a meaningful
// spread and would make the summary unserializable, so it is skipped too.
func potentialSavings(byPrice []*domain.StoreAggregate) float64 {
	if len(byPrice) < 2 {
		return 0
	}

	bestMissing := byPrice[0].ItemsMissing
	var minTotal, maxTotal float64
	candidates := 0

	for _, agg := range byPrice {
		if agg.ItemsMissing != bestMissing {
			break // ranked list, remaining stores miss more items
		}
		if math.IsInf(agg.TotalPrice, 1) {
			continue
		}
		if candidates == 0 || agg.TotalPrice < minTotal {
			minTotal = agg.TotalPrice
		}
		if candidates == 0 || agg.TotalPrice > maxTotal {
			maxTotal = agg.TotalPrice
		}
		candidates++
	}

	if candidates < 2 {
		return 0
	}
	return maxTotal - minTotal
}
