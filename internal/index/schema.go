package index

import (
	"github.com/IshaanNene/PriceHound/internal/types"
)

// Field is one declared field of the product mapping.
type Field struct {
	Name     string
	Type     string
	Disabled bool
}

// Schema is the product mapping. Attributes are stored but not indexed.
var Schema = []Field{
	{Name: "product_name", Type: "text"},
	{Name: "prices", Type: "float"},
	{Name: "rating_count", Type: "keyword"},
	{Name: "attributes", Type: "object", Disabled: true},
}

// MappingBody returns the index creation body for Schema.
func MappingBody() map[string]any {
	props := make(map[string]any, len(Schema))
	for _, f := range Schema {
		def := map[string]any{"type": f.Type}
		if f.Disabled {
			def["enabled"] = false
		}
		props[f.Name] = def
	}
	return map[string]any{
		"mappings": map[string]any{"properties": props},
	}
}

func (f Field) describe() string {
	if f.Disabled {
		return f.Type + " (enabled=false)"
	}
	return f.Type
}

// describeMapping renders a field mapping as returned by the engine. Object
// fields may come back without an explicit type.
func describeMapping(m map[string]any) string {
	t, _ := m["type"].(string)
	if t == "" {
		_, hasProps := m["properties"]
		_, hasEnabled := m["enabled"]
		if hasProps || hasEnabled {
			t = "object"
		}
	}
	if enabled, ok := m["enabled"].(bool); ok && !enabled {
		return t + " (enabled=false)"
	}
	return t
}

// checkMapping compares existing field mappings with Schema.
func checkMapping(index string, props map[string]map[string]any) error {
	for _, f := range Schema {
		got := "<missing>"
		if m, ok := props[f.Name]; ok {
			got = describeMapping(m)
		}
		if want := f.describe(); got != want {
			return &types.SchemaConflictError{Index: index, Field: f.Name, Want: want, Got: got}
		}
	}
	return nil
}
