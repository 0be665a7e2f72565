package generator

import (
	"io"
	"math/rand/v2"
)

// Generator produces input lines for rowreduce.
type Generator interface {
	// Init gives the generator its own random source so output is
	// reproducible for a seed.
	Init(r *rand.Rand)

	// WriteLine writes one newline-terminated line.
	WriteLine(w io.Writer) error

	Description() string

	// DefaultCount is the suggested number of lines.
	DefaultCount() int64
}
