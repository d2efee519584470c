package domain

import (
	"encoding/json"
	"math"
)

// ProductQuery identifies one item of a batch price search.
type ProductQuery struct {
	CanonicalName string `json:"canonical_name"`
	Location      string `json:"location"`
}

// Offer is one store's priced result for one product query.
//
// When the numeric price or distance cannot be parsed from the results page,
// the corresponding *Value field is set to +Inf so the offer sorts last under
// that criterion instead of aborting extraction.
type Offer struct {
	StoreChain    string  `json:"store_chain"`
	StoreName     string  `json:"store_name"`
	Address       string  `json:"address"`
	DistanceRaw   string  `json:"distance"`
	DistanceValue float64 `json:"distance_num"`
	PriceValue    float64 `json:"price"`
	PriceDisplay  string  `json:"price_display"`
}

// MarshalJSON emits +Inf numeric fields as null, since JSON has no
// representation for infinity and the encoder would otherwise fail.
func (o Offer) MarshalJSON() ([]byte, error) {
	type alias Offer
	out := struct {
		alias
		DistanceValue *float64 `json:"distance_num"`
		PriceValue    *float64 `json:"price"`
	}{alias: alias(o)}

	if !math.IsInf(o.DistanceValue, 1) {
		out.DistanceValue = &o.DistanceValue
	}
	if !math.IsInf(o.PriceValue, 1) {
		out.PriceValue = &o.PriceValue
	}
	return json.Marshal(out)
}

// Result statuses used across item results and batch responses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ItemSearchResult is the outcome of searching a single product. Exactly one
// is produced per requested item, success or error.
type ItemSearchResult struct {
	Status           string       `json:"status"`
	Query            ProductQuery `json:"query"`
	LocalizedTerm    string       `json:"localized_term,omitempty"`
	OffersByPrice    []Offer      `json:"offers_by_price"`
	OffersByDistance []Offer      `json:"offers_by_distance"`
	ErrorMessage     string       `json:"error_message,omitempty"`
}

// Succeeded reports whether the item produced usable offer lists.
func (r *ItemSearchResult) Succeeded() bool {
	return r.Status == StatusSuccess
}
