package domain

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// LineKey identifies a cart line: product id and variant descriptor.
type LineKey string

func NewLineKey(productID, variant string) LineKey {
	return LineKey(productID + ":" + variant)
}

// VariantKey builds a canonical variant descriptor from selected attributes,
// e.g. {"size": "md", "colour": "black"} -> "colour=black;size=md".
func VariantKey(attrs map[string]string) string {
	if len(attrs) == 0 {
		return ""
	}
	raw := make([]string, 0, len(attrs))
	for name, value := range attrs {
		if value == "" {
			continue
		}
		raw = append(raw, name)
	}
	// names differing only in case collapse onto the lexically first spelling
	sort.Strings(raw)
	values := make(map[string]string, len(raw))
	names := make([]string, 0, len(raw))
	for _, name := range raw {
		lower := strings.ToLower(name)
		if _, ok := values[lower]; ok {
			continue
		}
		values[lower] = attrs[name]
		names = append(names, lower)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + "=" + values[name]
	}
	return strings.Join(parts, ";")
}

type CartLine struct {
	Key      LineKey `json:"key" bson:"key"`
	Variant  string  `json:"variantKey" bson:"variant_key"`
	Quantity int     `json:"qty" bson:"qty"`
	Product  Product `json:"product" bson:"product"`
}

// Total is price x quantity taken from the embedded product snapshot.
func (l CartLine) Total() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
