package generator

import (
	"io"
	"math/rand/v2"
	"strconv"
)

// Station is a weather station and its mean temperature in degrees.
type Station struct {
	Name string
	Mean float64
}

// Stations is a subset of the 1BRC station list.
var Stations = []Station{
	{"Abha", 18.0}, {"Abidjan", 26.0}, {"Accra", 26.4}, {"Addis Ababa", 16.0},
	{"Adelaide", 17.3}, {"Alexandria", 20.0}, {"Almaty", 10.0}, {"Amsterdam", 10.2},
	{"Anchorage", 2.8}, {"Athens", 19.2}, {"Auckland", 15.2}, {"Baghdad", 22.77},
	{"Bangkok", 28.6}, {"Barcelona", 18.2}, {"Beijing", 12.9}, {"Belgrade", 12.5},
	{"Berlin", 10.3}, {"Bogotá", 13.5}, {"Boston", 10.9}, {"Bulawayo", 18.9},
	{"Cairo", 21.4}, {"Cape Town", 16.2}, {"Chicago", 9.8}, {"Copenhagen", 9.1},
	{"Dakar", 24.0}, {"Dhaka", 25.9}, {"Dubai", 26.9}, {"Dublin", 9.8},
	{"Edmonton", 4.2}, {"Fairbanks", -2.3}, {"Hamburg", 9.7}, {"Hanoi", 23.6},
	{"Helsinki", 5.9}, {"Hong Kong", 23.3}, {"Istanbul", 13.9}, {"Jakarta", 26.7},
	{"Kinshasa", 25.3}, {"Lagos", 26.8}, {"Lima", 19.2}, {"London", 11.3},
	{"Madrid", 15.0}, {"Melbourne", 15.1}, {"Mexico City", 17.5}, {"Montreal", 6.8},
	{"Moscow", 5.8}, {"Mumbai", 27.1}, {"Nairobi", 17.8}, {"New York City", 12.9},
	{"Oslo", 5.7}, {"Palembang", 27.3}, {"Paris", 12.3}, {"Reykjavík", 4.3},
	{"Rome", 15.2}, {"San Francisco", 14.6}, {"Santiago", 14.7}, {"Seoul", 12.5},
	{"Singapore", 27.0}, {"St. Petersburg", 5.8}, {"Stockholm", 6.6}, {"Sydney", 17.7},
	{"Tokyo", 15.4}, {"Toronto", 9.4}, {"Vancouver", 10.4}, {"Vladivostok", 4.9},
	{"Warsaw", 8.5}, {"Wellington", 12.9}, {"Yakutsk", -8.8}, {"Zürich", 9.3},
}

// MeasurementGenerator writes station<delim>temperature lines with one
// fractional digit, drawn around each station's mean.
type MeasurementGenerator struct {
	StationCount int
	Delimiter    byte
	rand         *rand.Rand
	buf          []byte
}

func (g *MeasurementGenerator) Init(r *rand.Rand) {
	g.rand = r
}

func (g *MeasurementGenerator) WriteLine(w io.Writer) error {
	n := min(max(g.StationCount, 1), len(Stations))
	s := Stations[g.rand.IntN(n)]

	tenths := int64(g.rand.NormFloat64()*100 + s.Mean*10)
	tenths = min(max(tenths, -999), 999)

	g.buf = append(g.buf[:0], s.Name...)
	g.buf = append(g.buf, g.delimiter())
	g.buf = appendTenths(g.buf, tenths)
	g.buf = append(g.buf, '\n')

	_, err := w.Write(g.buf)
	return err
}

func (g *MeasurementGenerator) delimiter() byte {
	if g.Delimiter == 0 {
		return ';'
	}
	return g.Delimiter
}

func (g *MeasurementGenerator) Description() string {
	return "Weather measurements: station;temperature with one decimal"
}

func (g *MeasurementGenerator) DefaultCount() int64 {
	return 1e6
}

func appendTenths(b []byte, v int64) []byte {
	if v < 0 {
		b = append(b, '-')
		v = -v
	}
	b = strconv.AppendInt(b, v/10, 10)
	b = append(b, '.')
	return strconv.AppendInt(b, v%10, 10)
}
