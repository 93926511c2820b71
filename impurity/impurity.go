// Package impurity provides objective functions for growing trees. Each
// function scores a set of labels, lower values are purer, and returns 0 for
// an empty set.
package impurity

import (
	mapset "github.com/deckarep/golang-set"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Measure names an objective function.
type Measure int

const (
	Gini Measure = iota
	Entropy
	Distinct
)

// Parse returns the Measure for name: "gini", "entropy" or "distinct".
func Parse(name string) (Measure, bool) {
	m, ok := measureNames[name]
	return m, ok
}

var measureNames = map[string]Measure{
	"gini":     Gini,
	"entropy":  Entropy,
	"distinct": Distinct,
}

// For returns the objective function for m over labels of type Y.
func For[Y comparable](m Measure) func([]Y) float64 {
	switch m {
	case Entropy:
		return EntropyOf[Y]
	case Distinct:
		return DistinctOf[Y]
	default:
		return GiniOf[Y]
	}
}

// class frequencies, in first-seen order
func proportions[Y comparable](labels []Y) []float64 {
	ids := make(map[Y]int)
	var ct []float64
	for _, y := range labels {
		id, ok := ids[y]
		if !ok {
			id = len(ct)
			ids[y] = id
			ct = append(ct, 0)
		}
		ct[id]++
	}
	if len(ct) > 0 {
		floats.Scale(1/float64(len(labels)), ct)
	}
	return ct
}

// GiniOf returns the gini impurity of labels.
// i_t = sum over k p(c_k|t) (1 - p(c_k|t))
func GiniOf[Y comparable](labels []Y) float64 {
	if len(labels) == 0 {
		return 0
	}
	p := proportions(labels)
	return 1.0 - floats.Dot(p, p)
}

// EntropyOf returns the Shannon entropy of labels, in nats.
// e_t = - sum over k p(c_k|t) log p(c_k|t)
func EntropyOf[Y comparable](labels []Y) float64 {
	if len(labels) == 0 {
		return 0
	}
	return stat.Entropy(proportions(labels))
}

// DistinctOf returns the number of distinct labels minus one: 0 for a set
// with a single label value and positive otherwise.
func DistinctOf[Y comparable](labels []Y) float64 {
	if len(labels) == 0 {
		return 0
	}
	s := mapset.NewThreadUnsafeSet()
	for _, y := range labels {
		s.Add(y)
	}
	return float64(s.Cardinality() - 1)
}

// Variance returns the population variance of labels, for regression.
func Variance(labels []float64) float64 {
	if len(labels) == 0 {
		return 0
	}
	mean := stat.Mean(labels, nil)
	d := make([]float64, len(labels))
	copy(d, labels)
	floats.AddConst(-mean, d)
	return floats.Dot(d, d) / float64(len(d))
}
