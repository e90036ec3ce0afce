package core

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrInvalidDescriptor is returned when a table entry lacks a required field.
var ErrInvalidDescriptor = errors.New("invalid table descriptor")

// DescriptorFromMap builds a TableDescriptor from one decoded configuration entry.
//
// Required string fields: name, url, category, indicator, frequency.
// Optional fields: source, data_filter, meta_filter (strings) and enabled (bool).
// Optional fields of the wrong type are ignored rather than rejected.
func DescriptorFromMap(data map[string]any) (TableDescriptor, error) {
	name, ok := data["name"].(string)
	if !ok {
		return TableDescriptor{}, fmt.Errorf("%w: table does not have a name", ErrInvalidDescriptor)
	}

	required := []string{"url", "category", "indicator", "frequency"}
	values := make(map[string]string, len(required))
	for _, key := range required {
		v, ok := data[key].(string)
		if !ok {
			return TableDescriptor{}, fmt.Errorf("%w: table %s does not have a %s", ErrInvalidDescriptor, name, key)
		}
		values[key] = v
	}

	desc := TableDescriptor{
		Name:      name,
		URL:       values["url"],
		Category:  values["category"],
		Indicator: values["indicator"],
		Frequency: ParseFrequency(values["frequency"]),
		Source:    SourceStatsCan,
	}

	if v, ok := data["data_filter"].(string); ok {
		desc.DataFilter = v
	}
	if v, ok := data["meta_filter"].(string); ok {
		desc.MetaFilter = v
	}
	if v, ok := data["source"].(string); ok {
		desc.Source = ParseSourceType(v, SourceStatsCan)
		if desc.Source == SourceUnknown {
			slog.Debug("unknown data source", "table", name, "source", v)
		}
	}
	if v, ok := data["enabled"].(bool); ok {
		desc.Enabled = v
	}

	return desc, nil
}
