package chp

import (
	"fmt"
	"log"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/smartcart/backend/internal/domain"
)

// Results-table layout on chp.co.il. Chain, branch, address and price sit at
// fixed positions; the distance column has moved between site revisions, so
// its index is resolved from the header with a fixed fallback.
const (
	chainCell   = 0
	branchCell  = 1
	addressCell = 2
	priceCell   = 5

	// fallbackDistanceCell is used when no header matches distanceHeader.
	// The site does not guarantee column order, keep this fallback.
	fallbackDistanceCell = 3

	// minRowCells is the minimum number of cells a usable result row carries
	minRowCells = 6
)

// distanceHeader is the Hebrew column label for distance
const distanceHeader = "מרחק"

// addressPlaceholder substitutes a blank address cell
const addressPlaceholder = "address unavailable"

// distanceUnavailable marks a distance cell with no parsable number
const distanceUnavailable = "distance unavailable"

var leadingNumberRegex = regexp.MustCompile(`\d+(?:\.\d+)?`)

// Extractor parses a chp.co.il results view into normalized offers. Rows
// that cannot be parsed are skipped; extraction itself never fails.
type Extractor struct{}

// NewExtractor creates an offer extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns one Offer per parsable result row, in page order. A view
// without a results table yields an empty slice, not an error.
func (e *Extractor) Extract(html string) []domain.Offer {
	offers := []domain.Offer{}
	if strings.TrimSpace(html) == "" {
		return offers
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		log.Printf("[CHP] results view unparsable: %v", err)
		return offers
	}

	table := doc.Find(".results-table").First()
	if table.Length() == 0 {
		return offers
	}

	distanceCell, matched := ResolveDistanceColumn(table)
	if !matched {
		log.Printf("[CHP] no %q header found, using fallback distance column %d", distanceHeader, distanceCell)
	}

	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return // header row
		}
		offer, err := extractRow(row, distanceCell)
		if err != nil {
			log.Printf("[CHP] skipping row %d: %v", i, err)
			return
		}
		offers = append(offers, offer)
	})

	return offers
}

// ResolveDistanceColumn resolves the distance column index from the table's
// header row. The second return value reports whether a header actually
// matched; false means the fixed fallback index is in use.
func ResolveDistanceColumn(table *goquery.Selection) (int, bool) {
	index := fallbackDistanceCell
	matched := false

	table.Find("tr").First().Find("th, td").EachWithBreak(func(i int, cell *goquery.Selection) bool {
		if strings.Contains(cell.Text(), distanceHeader) {
			index = i
			matched = true
			return false
		}
		return true
	})

	return index, matched
}

// extractRow converts one data row into an Offer. An error means the row is
// unusable and should be skipped; it never aborts the whole extraction.
func extractRow(row *goquery.Selection, distanceCell int) (domain.Offer, error) {
	cells := row.Find("td")
	if cells.Length() < minRowCells {
		return domain.Offer{}, fmt.Errorf("row has %d cells, want at least %d", cells.Length(), minRowCells)
	}

	text := func(i int) string {
		return strings.TrimSpace(cells.Eq(i).Text())
	}

	address := text(addressCell)
	if address == "" {
		address = addressPlaceholder
	}

	distanceRaw := ""
	if distanceCell < cells.Length() {
		distanceRaw = text(distanceCell)
	}
	distanceValue, distanceDisplay := parseDistance(distanceRaw)

	priceRaw := text(priceCell)
	priceValue, priceDisplay := parsePrice(priceRaw)

	return domain.Offer{
		StoreChain:    text(chainCell),
		StoreName:     text(branchCell),
		Address:       address,
		DistanceRaw:   distanceDisplay,
		DistanceValue: distanceValue,
		PriceValue:    priceValue,
		PriceDisplay:  priceDisplay,
	}, nil
}

// parseDistance pulls the first contiguous decimal number out of a distance
// cell like `1.2 ק"מ`. Without one the value is +Inf so the offer sorts last,
// and the display text is marked unavailable.
func parseDistance(raw string) (float64, string) {
	token := leadingNumberRegex.FindString(raw)
	if token == "" {
		if raw == "" {
			return math.Inf(1), distanceUnavailable
		}
		return math.Inf(1), raw + " (" + distanceUnavailable + ")"
	}

	value, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return math.Inf(1), raw + " (" + distanceUnavailable + ")"
	}
	return value, raw
}

// parsePrice strips the shekel sign and whitespace from a price cell. A cell
// that still does not parse yields +Inf with the raw text kept for display.
func parsePrice(raw string) (float64, string) {
	cleaned := strings.TrimSpace(strings.ReplaceAll(raw, "₪", ""))
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return math.Inf(1), raw
	}
	return value, fmt.Sprintf("₪%.2f", value)
}
