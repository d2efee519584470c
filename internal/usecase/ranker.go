package usecase

import (
	"sort"

	"github.com/smartcart/backend/internal/domain"
)

// Ranker sorts extracted offers per criterion and truncates to the top K.
type Ranker struct {
	topOffers int
}

// DefaultTopOffers is the per-criterion truncation size used when the
// configuration does not provide one.
const DefaultTopOffers = 5

// NewRanker creates a ranker with the given truncation size K.
func NewRanker(topOffers int) *Ranker {
	if topOffers <= 0 {
		topOffers = DefaultTopOffers
	}
	return &Ranker{topOffers: topOffers}
}

// Rank returns the offers sorted ascending by price and by distance, each
// truncated to the top K. Sorts are stable, so original row order is
// preserved among equal keys; unparsable values were mapped to +Inf during
// extraction and therefore rank last.
func (r *Ranker) Rank(offers []domain.Offer) (byPrice, byDistance []domain.Offer) {
	byPrice = make([]domain.Offer, len(offers))
	copy(byPrice, offers)
	sort.SliceStable(byPrice, func(i, j int) bool {
		return byPrice[i].PriceValue < byPrice[j].PriceValue
	})

	byDistance = make([]domain.Offer, len(offers))
	copy(byDistance, offers)
	sort.SliceStable(byDistance, func(i, j int) bool {
		return byDistance[i].DistanceValue < byDistance[j].DistanceValue
	})

	if len(byPrice) > r.topOffers {
		byPrice = byPrice[:r.topOffers]
	}
	if len(byDistance) > r.topOffers {
		byDistance = byDistance[:r.topOffers]
	}
	return byPrice, byDistance
}
