// Package split provides randomized split tests over dense float64 feature
// vectors. Both tests keep the feature ranges seen in the training data so
// new candidates can be sampled from them, and both send x right when Eval
// returns true.
package split

import (
	"math/rand"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// Ranges returns the per-feature minimum and maximum of X. Every row must
// have the same length.
func Ranges(X [][]float64) (lo, hi []float64) {
	if len(X) == 0 {
		return nil, nil
	}

	nFeatures := len(X[0])
	lo = make([]float64, nFeatures)
	hi = make([]float64, nFeatures)
	col := make([]float64, len(X))

	for f := 0; f < nFeatures; f++ {
		for i, x := range X {
			col[i] = x[f]
		}
		lo[f] = floats.Min(col)
		hi[f] = floats.Max(col)
	}

	return lo, hi
}

func uniform(r *rand.Rand, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}

// Threshold compares one feature against a cut point.
type Threshold struct {
	Feature int
	Value   float64
	Min     []float64
	Max     []float64
}

// NewThreshold returns a prototype threshold test for the features in X.
func NewThreshold(X [][]float64) Threshold {
	lo, hi := Ranges(X)
	return Threshold{Min: lo, Max: hi}
}

// Eval reports whether x[Feature] > Value.
func (t Threshold) Eval(x []float64) bool {
	return x[t.Feature] > t.Value
}

// Features returns the feature the test reads.
func (t Threshold) Features() []int { return []int{t.Feature} }

// Sample draws a feature uniformly and a cut point uniformly in the range
// of that feature.
func (t Threshold) Sample(r *rand.Rand) Threshold {
	if len(t.Min) == 0 {
		return t
	}
	f := r.Intn(len(t.Min))
	return Threshold{
		Feature: f,
		Value:   uniform(r, t.Min[f], t.Max[f]),
		Min:     t.Min,
		Max:     t.Max,
	}
}

// String encodes the test as "<feature>:<value>".
func (t Threshold) String() string {
	return strconv.Itoa(t.Feature) + ":" + strconv.FormatFloat(t.Value, 'g', -1, 64)
}

// Parse decodes a test written by String. The feature ranges are taken
// from the receiver.
func (t Threshold) Parse(s string) (Threshold, error) {
	fs, vs, ok := strings.Cut(s, ":")
	if !ok {
		return Threshold{}, errors.Errorf("threshold: missing value in %q", s)
	}

	f, err := parseFeature(fs, len(t.Min))
	if err != nil {
		return Threshold{}, errors.Wrap(err, "threshold")
	}
	v, err := strconv.ParseFloat(vs, 64)
	if err != nil {
		return Threshold{}, errors.Wrap(err, "threshold")
	}

	return Threshold{Feature: f, Value: v, Min: t.Min, Max: t.Max}, nil
}

// Pair compares the difference of two features against a cut point.
type Pair struct {
	A, B  int
	Value float64
	Min   []float64
	Max   []float64
}

// NewPair returns a prototype pair test for the features in X.
func NewPair(X [][]float64) Pair {
	lo, hi := Ranges(X)
	return Pair{Min: lo, Max: hi}
}

// Eval reports whether x[A] - x[B] > Value.
func (p Pair) Eval(x []float64) bool {
	return x[p.A]-x[p.B] > p.Value
}

// Features returns the two features the test reads.
func (p Pair) Features() []int { return []int{p.A, p.B} }

// Sample draws two distinct features, when there are at least two, and a
// cut point uniformly in the range their difference can take.
func (p Pair) Sample(r *rand.Rand) Pair {
	n := len(p.Min)
	if n == 0 {
		return p
	}

	a, b := r.Intn(n), 0
	if n > 1 {
		if b = r.Intn(n - 1); b >= a {
			b++
		}
	}

	return Pair{
		A:     a,
		B:     b,
		Value: uniform(r, p.Min[a]-p.Max[b], p.Max[a]-p.Min[b]),
		Min:   p.Min,
		Max:   p.Max,
	}
}

// String encodes the test as "<a>,<b>:<value>".
func (p Pair) String() string {
	return strconv.Itoa(p.A) + "," + strconv.Itoa(p.B) + ":" + strconv.FormatFloat(p.Value, 'g', -1, 64)
}

// Parse decodes a test written by String. The feature ranges are taken
// from the receiver.
func (p Pair) Parse(s string) (Pair, error) {
	fs, vs, ok := strings.Cut(s, ":")
	if !ok {
		return Pair{}, errors.Errorf("pair: missing value in %q", s)
	}
	as, bs, ok := strings.Cut(fs, ",")
	if !ok {
		return Pair{}, errors.Errorf("pair: missing second feature in %q", s)
	}

	a, err := parseFeature(as, len(p.Min))
	if err != nil {
		return Pair{}, errors.Wrap(err, "pair")
	}
	b, err := parseFeature(bs, len(p.Min))
	if err != nil {
		return Pair{}, errors.Wrap(err, "pair")
	}
	v, err := strconv.ParseFloat(vs, 64)
	if err != nil {
		return Pair{}, errors.Wrap(err, "pair")
	}

	return Pair{A: a, B: b, Value: v, Min: p.Min, Max: p.Max}, nil
}

// parseFeature parses a feature index. dim bounds the index when it is
// known, a prototype without ranges accepts any non-negative index.
func parseFeature(s string, dim int) (int, error) {
	f, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if f < 0 || (dim > 0 && f >= dim) {
		return 0, errors.Errorf("feature %d out of range", f)
	}
	return f, nil
}
