package forest

import (
	"github.com/pkg/errors"

	"github.com/t-abe/octrf/impurity"
	"github.com/t-abe/octrf/leaf"
	"github.com/t-abe/octrf/tree"
)

// ErrDim is returned when a feature vector does not have the forest's
// dimension.
var ErrDim = errors.New("forest: wrong number of features")

// DenseTest is a split test over []float64 feature vectors that can report
// the features it reads.
type DenseTest[S any] interface {
	tree.Test[[]float64, S]
	Features() []int
}

// Classifier is a forest over dense feature vectors and string class
// labels. Leaves hold class histograms and the forest predicts by majority
// vote.
type Classifier[S DenseTest[S]] struct {
	*Forest[string, []float64, S, leaf.Histogram, string]
	Params   Params
	Impurity impurity.Measure
}

// NewClassifier returns an empty classifier for dim features whose trees
// sample splits from proto.
func NewClassifier[S DenseTest[S]](dim int, proto S, p Params, m impurity.Measure, options ...func(Configer)) *Classifier[S] {
	return &Classifier[S]{
		Forest:   New[string, []float64, S, leaf.Histogram, string](dim, proto, options...),
		Params:   p,
		Impurity: m,
	}
}

// Fit grows the forest from features X and labels Y.
func (c *Classifier[S]) Fit(X [][]float64, Y []string) error {
	if err := checkDim(c.Dim(), X...); err != nil {
		return err
	}
	return c.Train(tree.NewExampleSet(Y, X), impurity.For[string](c.Impurity), c.Params)
}

// Update feeds one labeled example to the forest.
func (c *Classifier[S]) Update(y string, x []float64) error {
	if err := checkDim(c.Dim(), x); err != nil {
		return err
	}
	return c.Train1(y, x, impurity.For[string](c.Impurity), c.Params)
}

// PredictAll returns the predicted class of every row of X.
func (c *Classifier[S]) PredictAll(X [][]float64) []string {
	pred := make([]string, len(X))
	for i, x := range X {
		pred[i] = c.Predict(x)
	}
	return pred
}

// PredictProb returns the class probabilities of every row of X, averaged
// over the trees.
func (c *Classifier[S]) PredictProb(X [][]float64) []map[string]float64 {
	probs := make([]map[string]float64, len(X))
	for i, x := range X {
		probs[i] = leaf.Prob(c.Values(x))
	}
	return probs
}

// FeatureUsage returns, for each feature, the number of internal nodes
// across the forest whose test reads it.
func (c *Classifier[S]) FeatureUsage() []int {
	return featureUsage(c.Forest)
}

// Score compares the predictions for X with the labels Y. classes lists
// every label seen in Y or predicted, sorted, and confMat[i][j] counts the
// examples of class i predicted as class j.
func (c *Classifier[S]) Score(X [][]float64, Y []string) (classes []string, confMat [][]int, accuracy float64) {
	pred := c.PredictAll(X)

	all := leaf.Histogram{}.Fit(append(append([]string(nil), Y...), pred...))
	classes = all.Classes()
	ids := make(map[string]int, len(classes))
	for i, class := range classes {
		ids[class] = i
	}

	confMat = make([][]int, len(classes))
	for i := range confMat {
		confMat[i] = make([]int, len(classes))
	}

	correctCt := 0
	for i, actual := range Y {
		confMat[ids[actual]][ids[pred[i]]]++
		if actual == pred[i] {
			correctCt++
		}
	}
	if len(Y) > 0 {
		accuracy = float64(correctCt) / float64(len(Y))
	}

	return classes, confMat, accuracy
}

func featureUsage[Y any, L Leaf[Y, L, R], R any, S DenseTest[S]](f *Forest[Y, []float64, S, L, R]) []int {
	usage := make([]int, f.Dim())
	for _, t := range f.Trees() {
		for _, test := range t.Tests() {
			for _, feat := range test.Features() {
				if feat >= 0 && feat < len(usage) {
					usage[feat]++
				}
			}
		}
	}
	return usage
}

func checkDim(dim int, X ...[]float64) error {
	for i, x := range X {
		if len(x) != dim {
			return errors.Wrapf(ErrDim, "row %d has %d, want %d", i, len(x), dim)
		}
	}
	return nil
}
