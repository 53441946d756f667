package search

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/IshaanNene/PriceHound/internal/index"
)

const notAvailable = "N/A"

// Render prints the hits table and the price bucket table.
func Render(w io.Writer, res *Result) {
	fmt.Fprintf(w, "%d match(es) for %q, showing %d\n", res.Total, res.Query, len(res.Hits))

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"#", "Product", "Price", "Rating Count", "Note"})
	for i, h := range res.Hits {
		t.AppendRow(table.Row{i + 1, valueOr(h.Title), formatPrices(h.Prices), valueOr(h.RatingCount), note(h, res.MinRatings)})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()

	RenderBuckets(w, res.Buckets)
}

// RenderBuckets prints the price aggregation.
func RenderBuckets(w io.Writer, buckets []index.Bucket) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Price range", "From", "To", "Doc count"})
	for _, b := range buckets {
		t.AppendRow(table.Row{b.Key, formatBound(b.From), formatBound(b.To), b.Count})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func note(h Hit, minRatings int) string {
	if h.LowConfidence {
		return fmt.Sprintf("warning! number of rate is below %d", minRatings)
	}
	return ""
}

func valueOr(s *string) string {
	if s == nil {
		return notAvailable
	}
	return *s
}

func formatPrices(prices []float64) string {
	if len(prices) == 0 {
		return notAvailable
	}
	parts := make([]string, len(prices))
	for i, p := range prices {
		parts[i] = strconv.FormatFloat(p, 'f', -1, 64)
	}
	return strings.Join(parts, ", ")
}

func formatBound(v *float64) string {
	if v == nil {
		return "*"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
