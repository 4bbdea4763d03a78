// Package classify maps detected object labels to an image category
package classify

// Category is one of the fixed image content categories
type Category string

const (
	Promotional    Category = "promotional"
	ProductDisplay Category = "product_display"
	Lifestyle      Category = "lifestyle"
	Other          Category = "other"
)

// Categories lists every category in decision order
var Categories = []Category{Promotional, ProductDisplay, Lifestyle, Other}

const personLabel = "person"

// containerLabels are the labels that count as a product shot
var containerLabels = map[string]struct{}{
	"bottle":     {},
	"cup":        {},
	"bowl":       {},
	"vase":       {},
	"toothbrush": {},
}

// Classify returns the category for a set of labels
// duplicates and order do not matter; nil and empty give Other
func Classify(labels []string) Category {
	var person, product bool
	for _, l := range labels {
		if l == personLabel {
			person = true
			continue
		}
		if _, ok := containerLabels[l]; ok {
			product = true
		}
	}
	switch {
	case person && product:
		return Promotional
	case product:
		return ProductDisplay
	case person:
		return Lifestyle
	default:
		return Other
	}
}

// Valid reports whether c is a known category
func (c Category) Valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

func (c Category) String() string { return string(c) }
