package domain

import (
	"sort"
	"strconv"
	"strings"
)

// Apply filters, sorts and paginates items. Pages is at least 1 and a page past
// the end yields no items.
func (q ProductQuery) Apply(items []Product) ProductPage {
	q = q.Normalized()
	needle := strings.ToLower(strings.TrimSpace(q.Q))

	matched := make([]Product, 0, len(items))
	for _, p := range items {
		if needle != "" && !strings.Contains(strings.ToLower(p.Name), needle) {
			continue
		}
		if q.Tag != "" && !p.HasTag(q.Tag) {
			continue
		}
		if q.MinPrice != nil && p.Price.LessThan(*q.MinPrice) {
			continue
		}
		if q.MaxPrice != nil && p.Price.GreaterThan(*q.MaxPrice) {
			continue
		}
		matched = append(matched, p)
	}
	SortProducts(matched, q.Sort)

	total := len(matched)
	pages := total / q.Limit
	if total%q.Limit != 0 {
		pages++
	}
	start := total
	if q.Page <= pages {
		start = (q.Page - 1) * q.Limit
	}
	end := start + min(q.Limit, total-start)

	return ProductPage{
		Items: matched[start:end],
		Total: total,
		Page:  q.Page,
		Pages: max(1, pages),
	}
}

func (p Product) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// SortProducts orders items in place. Ties fall back to product id.
func SortProducts(items []Product, order SortOrder) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		switch order {
		case SortNewest:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		case SortPriceAsc:
			if !a.Price.Equal(b.Price) {
				return a.Price.LessThan(b.Price)
			}
		case SortPriceDesc:
			if !a.Price.Equal(b.Price) {
				return a.Price.GreaterThan(b.Price)
			}
		case SortName:
			an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
			if an != bn {
				return an < bn
			}
		default:
			if a.SoldCount != b.SoldCount {
				return a.SoldCount > b.SoldCount
			}
		}
		return idLess(a.ID, b.ID)
	})
}

// idLess orders numeric ids numerically and everything else lexically.
func idLess(a, b string) bool {
	ai, errA := strconv.ParseInt(a, 10, 64)
	bi, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		return ai < bi
	}
	return a < b
}
