package domain

import (
	"encoding/json"
	"math"
)

// StoreKey identifies a physical store across item results.
type StoreKey struct {
	Chain string
	Name  string
}

// StoreAggregate accumulates one store's offers across every item of a batch.
// It exists only while a batch is being aggregated and is never persisted.
type StoreAggregate struct {
	StoreChain      string             `json:"store_chain"`
	StoreName       string             `json:"store_name"`
	Address         string             `json:"address"`
	DistanceDisplay string             `json:"distance"`
	DistanceValue   float64            `json:"distance_num"`
	Items           map[string]float64 `json:"items"`
	TotalPrice      float64            `json:"total_price"`
	ItemsFound      int                `json:"items_found"`
	ItemsMissing    int                `json:"items_missing"`
	CoveragePct     float64            `json:"coverage_pct"`
}

// MarshalJSON emits +Inf values as null, mirroring Offer. Distance, the
// running total and individual item prices can all be +Inf when the source
// cells were unparsable.
func (s StoreAggregate) MarshalJSON() ([]byte, error) {
	type alias StoreAggregate
	out := struct {
		alias
		DistanceValue *float64            `json:"distance_num"`
		TotalPrice    *float64            `json:"total_price"`
		Items         map[string]*float64 `json:"items"`
	}{alias: alias(s)}

	if !math.IsInf(s.DistanceValue, 1) {
		out.DistanceValue = &s.DistanceValue
	}
	if !math.IsInf(s.TotalPrice, 1) {
		out.TotalPrice = &s.TotalPrice
	}

	out.Items = make(map[string]*float64, len(s.Items))
	for name, price := range s.Items {
		if math.IsInf(price, 1) {
			out.Items[name] = nil
			continue
		}
		p := price
		out.Items[name] = &p
	}
	return json.Marshal(out)
}

// CartSummary is the cross-store recommendation derived from all item results
// of one batch. Coverage dominates raw price: a store missing fewer items
// always outranks a cheaper but less complete one.
type CartSummary struct {
	Available         bool            `json:"available"`
	Message           string          `json:"message,omitempty"`
	TotalItems        int             `json:"total_items"`
	BestPriceStore    *StoreAggregate `json:"best_price_store,omitempty"`
	BestDistanceStore *StoreAggregate `json:"best_distance_store,omitempty"`
	PotentialSavings  float64         `json:"potential_savings"`
}
