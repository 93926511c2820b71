// Package leaf provides leaf values for trees and the rules that combine
// the values of several trees into one prediction.
package leaf

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/stat"
)

// Histogram counts the class labels that reached a leaf.
type Histogram struct {
	Counts map[string]int
	N      int
}

// Fit returns the histogram of labels.
func (Histogram) Fit(labels []string) Histogram {
	h := Histogram{Counts: make(map[string]int), N: len(labels)}
	for _, y := range labels {
		h.Counts[y]++
	}
	return h
}

// Classes returns the labels with a non-zero count, sorted.
func (h Histogram) Classes() []string {
	classes := maps.Keys(h.Counts)
	slices.Sort(classes)
	return classes
}

// Mode returns the most frequent label, the smallest one on ties. ok is
// false for an empty histogram.
func (h Histogram) Mode() (class string, ok bool) {
	maxCt := 0
	for _, c := range h.Classes() {
		if ct := h.Counts[c]; ct > maxCt {
			maxCt = ct
			class = c
		}
	}
	return class, maxCt > 0
}

// Prob returns the fraction of examples labeled class.
func (h Histogram) Prob(class string) float64 {
	if h.N == 0 {
		return 0
	}
	return float64(h.Counts[class]) / float64(h.N)
}

// String encodes the counts as a URL query, e.g. "setosa=3&virginica=1".
func (h Histogram) String() string {
	v := make(url.Values, len(h.Counts))
	for class, ct := range h.Counts {
		v.Set(class, strconv.Itoa(ct))
	}
	return v.Encode()
}

// Parse decodes a histogram written by String.
func (Histogram) Parse(s string) (Histogram, error) {
	v, err := url.ParseQuery(s)
	if err != nil {
		return Histogram{}, errors.Wrap(err, "histogram")
	}

	h := Histogram{Counts: make(map[string]int, len(v))}
	for class, cts := range v {
		if len(cts) != 1 {
			return Histogram{}, errors.Errorf("histogram: class %q has %d counts", class, len(cts))
		}
		ct, err := strconv.Atoi(cts[0])
		if err != nil || ct < 0 {
			return Histogram{}, errors.Errorf("histogram: bad count %q for class %q", cts[0], class)
		}
		h.Counts[class] = ct
		h.N += ct
	}
	return h, nil
}

// Reduce returns the majority vote of the histograms: every non-empty
// histogram votes for its Mode, and the label with most votes wins, the
// smallest label on ties. The empty string is returned when nothing voted.
func (Histogram) Reduce(hs []Histogram) string {
	votes := Histogram{Counts: make(map[string]int)}
	for _, h := range hs {
		if class, ok := h.Mode(); ok {
			votes.Counts[class]++
			votes.N++
		}
	}
	class, _ := votes.Mode()
	return class
}

// Prob returns the class probabilities averaged over hs. Empty histograms
// contribute nothing but still count toward the average.
func Prob(hs []Histogram) map[string]float64 {
	probs := make(map[string]float64)
	if len(hs) == 0 {
		return probs
	}
	for _, h := range hs {
		for class := range h.Counts {
			probs[class] += h.Prob(class) / float64(len(hs))
		}
	}
	return probs
}

// Mean is the average of the regression targets that reached a leaf.
type Mean struct {
	Value float64
	N     int
}

// Fit returns the mean of labels, 0 for no labels.
func (Mean) Fit(labels []float64) Mean {
	if len(labels) == 0 {
		return Mean{}
	}
	return Mean{Value: stat.Mean(labels, nil), N: len(labels)}
}

// String encodes the mean as "<value>:<n>".
func (m Mean) String() string {
	return strconv.FormatFloat(m.Value, 'g', -1, 64) + ":" + strconv.Itoa(m.N)
}

// Parse decodes a mean written by String.
func (Mean) Parse(s string) (Mean, error) {
	i := strings.LastIndexByte(s, ':')
	if i < 0 {
		return Mean{}, errors.Errorf("mean: missing count in %q", s)
	}
	v, err := strconv.ParseFloat(s[:i], 64)
	if err != nil {
		return Mean{}, errors.Wrap(err, "mean")
	}
	n, err := strconv.Atoi(s[i+1:])
	if err != nil {
		return Mean{}, errors.Wrap(err, "mean")
	}
	return Mean{Value: v, N: n}, nil
}

// Reduce returns the average of the tree values, 0 for no values.
func (Mean) Reduce(ms []Mean) float64 {
	if len(ms) == 0 {
		return 0
	}
	vals := make([]float64, len(ms))
	for i, m := range ms {
		vals[i] = m.Value
	}
	return stat.Mean(vals, nil)
}
