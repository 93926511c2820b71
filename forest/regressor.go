package forest

import (
	"gonum.org/v1/gonum/stat"

	"github.com/t-abe/octrf/impurity"
	"github.com/t-abe/octrf/leaf"
	"github.com/t-abe/octrf/tree"
)

// Regressor is a forest over dense feature vectors and float64 targets.
// Leaves hold the mean target and the forest predicts the mean over trees.
// Nodes are split to minimize the variance of the targets.
type Regressor[S DenseTest[S]] struct {
	*Forest[float64, []float64, S, leaf.Mean, float64]
	Params Params
}

// NewRegressor returns an empty regressor for dim features whose trees
// sample splits from proto.
func NewRegressor[S DenseTest[S]](dim int, proto S, p Params, options ...func(Configer)) *Regressor[S] {
	return &Regressor[S]{
		Forest: New[float64, []float64, S, leaf.Mean, float64](dim, proto, options...),
		Params: p,
	}
}

// Fit grows the forest from features X and targets Y.
func (r *Regressor[S]) Fit(X [][]float64, Y []float64) error {
	if err := checkDim(r.Dim(), X...); err != nil {
		return err
	}
	return r.Train(tree.NewExampleSet(Y, X), impurity.Variance, r.Params)
}

// Update feeds one example to the forest.
func (r *Regressor[S]) Update(y float64, x []float64) error {
	if err := checkDim(r.Dim(), x); err != nil {
		return err
	}
	return r.Train1(y, x, impurity.Variance, r.Params)
}

// PredictAll returns the prediction for every row of X.
func (r *Regressor[S]) PredictAll(X [][]float64) []float64 {
	pred := make([]float64, len(X))
	for i, x := range X {
		pred[i] = r.Predict(x)
	}
	return pred
}

// FeatureUsage returns, for each feature, the number of internal nodes
// across the forest whose test reads it.
func (r *Regressor[S]) FeatureUsage() []int {
	return featureUsage(r.Forest)
}

// Score returns the mean squared error of the predictions for X against Y
// and the coefficient of determination.
func (r *Regressor[S]) Score(X [][]float64, Y []float64) (mse, rSquared float64) {
	if len(Y) == 0 {
		return 0, 0
	}

	pred := r.PredictAll(X)
	for i := range Y {
		d := Y[i] - pred[i]
		mse += d * d
	}
	mse /= float64(len(Y))

	return mse, stat.RSquaredFrom(pred, Y, nil)
}
