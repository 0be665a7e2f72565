package generator

import "io"

var junkLines = []string{
	"no delimiter here\n",
	"Oslo;\n",
	"Oslo;12.34\n",
	"Oslo;1e3\n",
	"Oslo;+4.0\n",
	";\n",
}

// MalformedGenerator mixes invalid lines into measurement data, for
// exercising --skip-malformed.
type MalformedGenerator struct {
	MeasurementGenerator
	// Ratio is the fraction of lines that are malformed.
	Ratio float64
}

func (g *MalformedGenerator) WriteLine(w io.Writer) error {
	if g.rand.Float64() < g.Ratio {
		_, err := io.WriteString(w, junkLines[g.rand.IntN(len(junkLines))])
		return err
	}
	return g.MeasurementGenerator.WriteLine(w)
}

func (g *MalformedGenerator) Description() string {
	return "Weather measurements with a share of malformed lines"
}
