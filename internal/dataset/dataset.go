// Package dataset flattens products into numeric rows for offline modelling.
package dataset

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/IshaanNene/PriceHound/internal/search"
	"github.com/IshaanNene/PriceHound/internal/types"
)

// Attribute keys read from detail pages.
const (
	AttrDPI         = "dpi"
	AttrRGBLighting = "rgb_lighting"
	AttrMouseType   = "mouse_type"
	AttrButtonCount = "button_count"
)

// Row is one product as a flat record. Absent numbers are 0.
type Row struct {
	Title       string  `json:"title"        bson:"title"`
	Price       float64 `json:"price"        bson:"price"`
	RatingCount int     `json:"rating_count" bson:"rating_count"`
	DPI         int     `json:"dpi"          bson:"dpi"`
	RGBLighting int     `json:"rgb_lighting" bson:"rgb_lighting"`
	MouseType   string  `json:"mouse_type"   bson:"mouse_type"`
	ButtonCount int     `json:"button_count" bson:"button_count"`
}

// Columns lists the row fields in output order.
var Columns = []string{"title", "price", "rating_count", "dpi", "rgb_lighting", "mouse_type", "button_count"}

// Values returns the row as strings in Columns order.
func (r Row) Values() []string {
	return []string{
		r.Title,
		strconv.FormatFloat(r.Price, 'f', -1, 64),
		strconv.Itoa(r.RatingCount),
		strconv.Itoa(r.DPI),
		strconv.Itoa(r.RGBLighting),
		r.MouseType,
		strconv.Itoa(r.ButtonCount),
	}
}

// Cells returns the row as typed values in Columns order.
func (r Row) Cells() []any {
	return []any{r.Title, r.Price, r.RatingCount, r.DPI, r.RGBLighting, r.MouseType, r.ButtonCount}
}

var intRe = regexp.MustCompile(`\d+`)

var affirmative = map[string]bool{
	"var": true, "evet": true, "yes": true, "true": true, "1": true, "mevcut": true,
}

// FromProduct flattens one product.
func FromProduct(p *types.Product) Row {
	row := Row{Title: p.TitleOr("")}
	if p.Price != nil {
		row.Price = *p.Price
	}
	if n, ok := search.ParseRatingCount(p.RatingCount); ok {
		row.RatingCount = n
	}
	if v, ok := p.Attr(AttrDPI); ok {
		row.DPI = maxInt(v)
	}
	if v, ok := p.Attr(AttrRGBLighting); ok && affirmative[cases.Fold().String(v)] {
		row.RGBLighting = 1
	}
	if v, ok := p.Attr(AttrMouseType); ok {
		row.MouseType = v
	}
	if v, ok := p.Attr(AttrButtonCount); ok {
		row.ButtonCount = firstInt(v)
	}
	return row
}

// FromProducts flattens products in order.
func FromProducts(products []*types.Product) []Row {
	rows := make([]Row, len(products))
	for i, p := range products {
		rows[i] = FromProduct(p)
	}
	return rows
}

// maxInt returns the largest integer in s, ignoring digit grouping dots such
// as "16.000".
func maxInt(s string) int {
	best := 0
	for _, m := range intRe.FindAllString(strings.ReplaceAll(s, ".", ""), -1) {
		if n, err := strconv.Atoi(m); err == nil && n > best {
			best = n
		}
	}
	return best
}

func firstInt(s string) int {
	m := intRe.FindString(s)
	if m == "" {
		return 0
	}
	n, _ := strconv.Atoi(m)
	return n
}
