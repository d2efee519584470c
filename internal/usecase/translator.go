package usecase

import (
	"fmt"

	"github.com/smartcart/backend/internal/domain"
)

// builtinTerms maps canonical English product names to the Hebrew search
// terms chp.co.il expects. Lookup is exact-match and case-sensitive.
var builtinTerms = map[string]string{
	"Apple":       "תפוח",
	"Banana":      "בננה",
	"Carrot":      "גזר",
	"Tomato":      "עגבנייה",
	"Potato":      "תפוח אדמה",
	"Lettuce":     "חסה",
	"Orange":      "תפוז",
	"Grape":       "ענב",
	"Spinach":     "תרד",
	"Onion":       "בצל",
	"Cucumber":    "מלפפון",
	"Pepper":      "פלפל",
	"Avocado":     "אבוקדו",
	"Parsley":     "פטרוזיליה",
	"Celery":      "סלרי",
	"Cabbage":     "כרוב",
	"Cauliflower": "כרובית",
	"Broccoli":    "ברוקולי",
	"Mushroom":    "פטריות",
	"Strawberry":  "תות שדה",
	"Pineapple":   "אננס",
	"Peach":       "אפרסק",
	"Plum":        "שזיף",
	"Pear":        "אגס",
	"Mango":       "מנגו",
	"Kiwi":        "קיווי",
	"Cherry":      "דובדבן",
	"Pomegranate": "רימון",
	"Lemon":       "לימון",
	"Watermelon":  "אבטיח",
	"Melon":       "מלון",
	"Garlic":      "שום",
	"Olive":       "זית",
}

// Translator maps canonical product names to localized search terms. The
// table is built once at construction and never mutated afterwards.
type Translator struct {
	terms map[string]string
}

// NewTranslator builds a translator from the built-in table, layering any
// extra entries (typically from configuration) on top.
func NewTranslator(extra map[string]string) *Translator {
	terms := make(map[string]string, len(builtinTerms)+len(extra))
	for name, term := range builtinTerms {
		terms[name] = term
	}
	for name, term := range extra {
		terms[name] = term
	}
	return &Translator{terms: terms}
}

// Translate returns the localized search term for a canonical product name.
// A miss returns domain.ErrTranslationNotFound naming the product; the caller
// reports it as a per-item error and continues the batch.
func (t *Translator) Translate(canonicalName string) (string, error) {
	term, ok := t.terms[canonicalName]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrTranslationNotFound, canonicalName)
	}
	return term, nil
}

// Known reports whether a canonical name has a localized term.
func (t *Translator) Known(canonicalName string) bool {
	_, ok := t.terms[canonicalName]
	return ok
}
