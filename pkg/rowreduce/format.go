package rowreduce

import (
	"bufio"
	"io"
	"math"
	"math/big"
	"strconv"
)

// Result is the final, read-only summary of one key. Min, Mean and Max are
// in tenths; Mean is rounded half-up.
type Result struct {
	Key   string `json:"key"`
	Count uint64 `json:"count"`
	Min   int64  `json:"min"`
	Mean  int64  `json:"mean"`
	Max   int64  `json:"max"`
}

// NewResult derives the summary of agg. agg must not be empty.
func NewResult(key string, agg Aggregate) Result {
	return Result{
		Key:   key,
		Count: agg.Count,
		Min:   agg.Min,
		Mean:  MeanTenths(agg.Sum, agg.Count),
		Max:   agg.Max,
	}
}

func (r Result) MinValue() float64  { return float64(r.Min) / 10 }
func (r Result) MeanValue() float64 { return float64(r.Mean) / 10 }
func (r Result) MaxValue() float64  { return float64(r.Max) / 10 }

// String renders "min/mean/max" with one decimal digit each.
func (r Result) String() string {
	return string(r.appendTo(nil))
}

func (r Result) appendTo(b []byte) []byte {
	b = AppendTenths(b, r.Min)
	b = append(b, '/')
	b = AppendTenths(b, r.Mean)
	b = append(b, '/')
	return AppendTenths(b, r.Max)
}

// MeanTenths returns sum/count rounded to the nearest integer, with ties
// rounded toward positive infinity. Integer arithmetic keeps the result
// identical on every platform.
func MeanTenths(sum int64, count uint64) int64 {
	if count == 0 {
		return 0
	}
	if count > math.MaxInt64 {
		return meanTenthsBig(sum, count)
	}

	c := int64(count)
	q, r := sum/c, sum%c
	if r < 0 {
		q--
		r += c
	}
	if r >= c-r {
		q++
	}
	return q
}

func meanTenthsBig(sum int64, count uint64) int64 {
	c := new(big.Int).SetUint64(count)
	q, r := new(big.Int).DivMod(big.NewInt(sum), c, new(big.Int))
	if r.Lsh(r, 1).Cmp(c) >= 0 {
		q.Add(q, big.NewInt(1))
	}
	return q.Int64()
}

// AppendTenths appends v/10 with exactly one decimal digit.
func AppendTenths(b []byte, v int64) []byte {
	u := uint64(v)
	if v < 0 {
		b = append(b, '-')
		u = ^u + 1
	}
	b = strconv.AppendUint(b, u/10, 10)
	b = append(b, '.')
	return append(b, byte('0'+u%10))
}

// Format derives results for every key of t, sorted bytewise by key.
func Format(t *Table) []Result {
	keys := t.Keys()
	results := make([]Result, 0, len(keys))
	for _, key := range keys {
		agg, _ := t.Get(key)
		results = append(results, NewResult(key, agg))
	}
	return results
}

// WriteBrace writes results as {k1=min/mean/max, k2=...} followed by a
// newline.
func WriteBrace(w io.Writer, results []Result) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 128)

	bw.WriteByte('{')
	for i, r := range results {
		buf = buf[:0]
		if i > 0 {
			buf = append(buf, ", "...)
		}
		buf = append(buf, r.Key...)
		buf = append(buf, '=')
		buf = r.appendTo(buf)
		bw.Write(buf)
	}
	bw.WriteString("}\n")

	return bw.Flush()
}

// WriteLines writes one key=min/mean/max line per result.
func WriteLines(w io.Writer, results []Result) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 128)

	for _, r := range results {
		buf = append(buf[:0], r.Key...)
		buf = append(buf, '=')
		buf = r.appendTo(buf)
		buf = append(buf, '\n')
		bw.Write(buf)
	}

	return bw.Flush()
}
