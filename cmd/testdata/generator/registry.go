package generator

import (
	"fmt"
	"maps"
	"slices"
)

// Registry maps generator names to factories so each call gets fresh state.
var Registry = map[string]func() Generator{
	"measurements": func() Generator {
		return &MeasurementGenerator{StationCount: len(Stations)}
	},
	"malformed": func() Generator {
		return &MalformedGenerator{
			MeasurementGenerator: MeasurementGenerator{StationCount: len(Stations)},
			Ratio:                0.01,
		}
	},
}

// Get returns a generator by name.
func Get(name string) (Generator, error) {
	factory, exists := Registry[name]
	if !exists {
		return nil, fmt.Errorf("unknown generator: %s", name)
	}
	return factory(), nil
}

// List returns the generator names, sorted.
func List() []string {
	return slices.Sorted(maps.Keys(Registry))
}

// Configure applies station count and delimiter to generators that use
// them.
func Configure(g Generator, stations int, delimiter byte) {
	switch gen := g.(type) {
	case *MeasurementGenerator:
		gen.StationCount = stations
		gen.Delimiter = delimiter
	case *MalformedGenerator:
		gen.StationCount = stations
		gen.Delimiter = delimiter
	}
}
