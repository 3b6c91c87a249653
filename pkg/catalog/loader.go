package catalog

import (
	"fmt"
	"os"
	"reflect"
	"time"

	"github.com/aretw0/orderdesk/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

type document struct {
	Orders []map[string]any `yaml:"orders"`
}

// LoadFile reads a catalog from a YAML file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog document of the form:
//
//	orders:
//	  - id: A
//	    product: Product X
//	    status: in_transit
//	    estimated_delivery: 2024-07-25
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if len(doc.Orders) == 0 {
		return nil, fmt.Errorf("catalog: no orders defined")
	}

	orders := make([]domain.Order, 0, len(doc.Orders))
	for i, raw := range doc.Orders {
		var o domain.Order
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			DecodeHook:  dateToString,
			ErrorUnused: true,
			Result:      &o,
		})
		if err != nil {
			return nil, err
		}
		if err := decoder.Decode(raw); err != nil {
			return nil, fmt.Errorf("catalog: order #%d: %w", i+1, err)
		}
		orders = append(orders, o)
	}
	return New(orders...)
}

// dateToString keeps unquoted YAML dates in their ISO form.
func dateToString(from, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.String {
		return data, nil
	}
	if t, ok := data.(time.Time); ok {
		return t.Format(time.DateOnly), nil
	}
	return data, nil
}
