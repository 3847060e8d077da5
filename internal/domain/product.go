package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string          `json:"id" bson:"id"`
	Slug        string          `json:"slug" bson:"slug"`
	Name        string          `json:"name" bson:"name"`
	Price       decimal.Decimal `json:"price" bson:"price"`
	Tags        []string        `json:"tags,omitempty" bson:"tags,omitempty"`
	Images      []string        `json:"images,omitempty" bson:"images,omitempty"`
	Description string          `json:"description,omitempty" bson:"description,omitempty"`
	Colour      string          `json:"colour,omitempty" bson:"colour,omitempty"`
	Size        string          `json:"size,omitempty" bson:"size,omitempty"`
	InStock     bool            `json:"inStock" bson:"in_stock"`
	TotalStock  int             `json:"totalStock" bson:"total_stock"`
	SoldCount   int             `json:"soldCount" bson:"sold_count"`
	CreatedAt   time.Time       `json:"createdAt,omitempty" bson:"created_at,omitempty"`
}

// Clone returns a deep copy so cart lines never share slices with the catalog.
func (p Product) Clone() Product {
	c := p
	if p.Tags != nil {
		c.Tags = append([]string(nil), p.Tags...)
	}
	if p.Images != nil {
		c.Images = append([]string(nil), p.Images...)
	}
	return c
}

// ProductPatch holds the fields an admin may change. Nil fields are left untouched.
type ProductPatch struct {
	Name        *string          `json:"name,omitempty"`
	Slug        *string          `json:"slug,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Tags        []string         `json:"tags,omitempty"`
	Description *string          `json:"description,omitempty"`
	InStock     *bool            `json:"inStock,omitempty"`
	TotalStock  *int             `json:"totalStock,omitempty"`
}

func (p Product) Apply(patch ProductPatch) Product {
	out := p.Clone()
	if patch.Name != nil {
		out.Name = *patch.Name
	}
	if patch.Slug != nil {
		out.Slug = *patch.Slug
	}
	if patch.Price != nil {
		out.Price = *patch.Price
	}
	if patch.Tags != nil {
		out.Tags = append([]string(nil), patch.Tags...)
	}
	if patch.Description != nil {
		out.Description = *patch.Description
	}
	if patch.InStock != nil {
		out.InStock = *patch.InStock
	}
	if patch.TotalStock != nil {
		out.TotalStock = *patch.TotalStock
	}
	return out
}

type SortOrder string

const (
	SortPopular   SortOrder = "popular"
	SortNewest    SortOrder = "newest"
	SortPriceAsc  SortOrder = "price-asc"
	SortPriceDesc SortOrder = "price-desc"
	SortName      SortOrder = "name"
)

const (
	DefaultPage  = 1
	DefaultLimit = 12
)

// ProductQuery is shared by the remote listing call and the local cache projection.
type ProductQuery struct {
	Page     int
	Limit    int
	Sort     SortOrder
	Q        string
	Tag      string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
}

// Normalized fills defaults for paging and sort.
func (q ProductQuery) Normalized() ProductQuery {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Sort == "" {
		q.Sort = SortPopular
	}
	return q
}

type ProductPage struct {
	Items []Product `json:"items"`
	Total int       `json:"total"`
	Page  int       `json:"page"`
	Pages int       `json:"pages"`
}
