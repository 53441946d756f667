package types

import (
	"strings"
	"time"
)

// Product is one listing card after extraction and enrichment.
// A nil pointer means the value was absent on the page.
type Product struct {
	// Title joins the card's title parts with single spaces.
	Title *string

	// Price is the normalized numeric price.
	Price *float64

	// RawPrice keeps the price text when it could not be parsed.
	RawPrice string

	// RatingCount is the raw rating token, e.g. "(123)".
	RatingCount *string

	// Attributes holds detail-page values by attribute key.
	Attributes map[string]*string

	// Link is the absolute detail page URL. It is not indexed.
	Link string

	// Position is the card's zero-based index on its listing page.
	Position int

	// ScrapedAt is when the card was read.
	ScrapedAt time.Time
}

// NewProduct creates an empty Product for the card at position.
func NewProduct(position int) *Product {
	return &Product{
		Attributes: make(map[string]*string),
		Position:   position,
		ScrapedAt:  time.Now(),
	}
}

// Prices returns the indexed price list: one element, or none when absent.
func (p *Product) Prices() []float64 {
	if p.Price == nil {
		return []float64{}
	}
	return []float64{*p.Price}
}

// TitleOr returns the title, or fallback when absent.
func (p *Product) TitleOr(fallback string) string {
	if p.Title == nil {
		return fallback
	}
	return *p.Title
}

// Attr returns the trimmed attribute value and whether it was present.
func (p *Product) Attr(key string) (string, bool) {
	v, ok := p.Attributes[key]
	if !ok || v == nil {
		return "", false
	}
	return strings.TrimSpace(*v), true
}

// Document is the index representation of a Product.
type Document struct {
	ProductName *string            `json:"product_name"`
	Prices      []float64          `json:"prices"`
	RatingCount *string            `json:"rating_count"`
	Attributes  map[string]*string `json:"attributes"`
}

// Document converts the product into its index shape.
func (p *Product) Document() Document {
	attrs := p.Attributes
	if attrs == nil {
		attrs = map[string]*string{}
	}
	return Document{
		ProductName: p.Title,
		Prices:      p.Prices(),
		RatingCount: p.RatingCount,
		Attributes:  attrs,
	}
}

// Product converts an index document back into a Product.
func (d Document) Product() *Product {
	p := &Product{
		Title:       d.ProductName,
		RatingCount: d.RatingCount,
		Attributes:  d.Attributes,
	}
	if p.Attributes == nil {
		p.Attributes = make(map[string]*string)
	}
	if len(d.Prices) > 0 {
		price := d.Prices[0]
		p.Price = &price
	}
	return p
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// FloatPtr returns a pointer to f.
func FloatPtr(f float64) *float64 { return &f }
