package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/IshaanNene/PriceHound/internal/types"
)

func TestFromProduct(t *testing.T) {
	p := types.NewProduct(0)
	p.Title = types.StringPtr("SteelSeries Rival 3")
	p.Price = types.FloatPtr(1299.9)
	p.RatingCount = types.StringPtr("(1.234)")
	p.Attributes = map[string]*string{
		AttrDPI:         types.StringPtr("200 - 8500"),
		AttrRGBLighting: types.StringPtr("VAR"),
		AttrMouseType:   types.StringPtr("Kablolu"),
		AttrButtonCount: types.StringPtr("6 Tuş, 2 programlanabilir"),
	}

	assert.Equal(t, Row{
		Title:       "SteelSeries Rival 3",
		Price:       1299.9,
		RatingCount: 1234,
		DPI:         8500,
		RGBLighting: 1,
		MouseType:   "Kablolu",
		ButtonCount: 6,
	}, FromProduct(p))
}

func TestFromProductAbsentValues(t *testing.T) {
	p := types.NewProduct(3)
	p.RatingCount = types.StringPtr("(yeni)")
	p.Attributes = map[string]*string{
		AttrDPI:         nil,
		AttrRGBLighting: types.StringPtr("Yok"),
	}

	assert.Equal(t, Row{}, FromProduct(p))
}

func TestDPIGrouping(t *testing.T) {
	assert.Equal(t, 16000, maxInt("16.000 DPI"))
	assert.Equal(t, 26000, maxInt("100-26000"))
	assert.Equal(t, 0, maxInt("bilinmiyor"))
}

func TestRowValuesFollowColumns(t *testing.T) {
	r := Row{Title: "x", Price: 45, RatingCount: 12, DPI: 800, RGBLighting: 0, MouseType: "Kablosuz", ButtonCount: 5}
	assert.Len(t, r.Values(), len(Columns))
	assert.Len(t, r.Cells(), len(Columns))
	assert.Equal(t, []string{"x", "45", "12", "800", "0", "Kablosuz", "5"}, r.Values())
}

func TestFromProductsKeepsOrder(t *testing.T) {
	a := types.NewProduct(0)
	a.Title = types.StringPtr("a")
	b := types.NewProduct(1)
	b.Title = types.StringPtr("b")

	rows := FromProducts([]*types.Product{a, b})
	assert.Equal(t, "a", rows[0].Title)
	assert.Equal(t, "b", rows[1].Title)
}
