package tree_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/t-abe/octrf/impurity"
	"github.com/t-abe/octrf/leaf"
	"github.com/t-abe/octrf/split"
	"github.com/t-abe/octrf/tree"
)

type clfTree = tree.Tree[string, []float64, split.Threshold, leaf.Histogram]

var gini = impurity.For[string](impurity.Gini)

func mustParams(t testing.TB, options ...func(*tree.Params)) tree.Params {
	p, err := tree.NewParams(options...)
	require.NoError(t, err)
	return p
}

// two gaussian-ish blobs labeled by the sign of x0+x1
func blobs(n int, seed int64) *tree.ExampleSet[string, []float64] {
	r := rand.New(rand.NewSource(seed))
	data := new(tree.ExampleSet[string, []float64])
	for i := 0; i < n; i++ {
		x := []float64{r.NormFloat64(), r.NormFloat64(), r.Float64()}
		y := "neg"
		if x[0]+x[1] > 0 {
			y = "pos"
		}
		data.Add(y, x)
	}
	return data
}

func newTree(data *tree.ExampleSet[string, []float64], seed int64) *clfTree {
	return tree.New[string, []float64, split.Threshold, leaf.Histogram](
		3, split.NewThreshold(data.Features()), tree.RandState(seed))
}

// checkStructure walks t and fails on an internal node missing a child or
// a leaf that was never fitted.
func checkStructure(t *testing.T, n *clfTree) {
	t.Helper()
	_, right, left, ok := n.Split()
	if !ok {
		assert.True(t, n.Trained(), "leaf without a value")
		return
	}
	require.NotNil(t, right)
	require.NotNil(t, left)
	checkStructure(t, right)
	checkStructure(t, left)
}

func TestNewParamsDefaults(t *testing.T) {
	p, err := tree.NewParams()
	require.NoError(t, err)

	assert.Equal(t, 0.0, p.ObjectiveThreshold)
	assert.Equal(t, 0.1, p.ObjectiveRestart)
	assert.Equal(t, 1, p.MinExamples)
	assert.Equal(t, 500, p.RestartExamples)
	assert.Equal(t, 300, p.Samplings)
	assert.False(t, p.Chatty)
}

func TestParamsThresholdOrder(t *testing.T) {
	objs := []float64{-1, 0, 0.1, 0.5}
	counts := []int{0, 1, 5, 500}

	for _, a := range objs {
		for _, b := range objs {
			for _, c := range counts {
				for _, d := range counts {
					_, err := tree.NewParams(tree.ObjectiveThreshold(a), tree.ObjectiveRestart(b),
						tree.MinExamples(c), tree.RestartExamples(d))
					if a >= b || c >= d {
						assert.ErrorIs(t, err, tree.ErrThresholdOrder, "a=%v b=%v c=%v d=%v", a, b, c, d)
					} else {
						assert.NoError(t, err, "a=%v b=%v c=%v d=%v", a, b, c, d)
					}
				}
			}
		}
	}

	_, err := tree.NewParams(tree.ObjectiveThreshold(math.NaN()))
	assert.ErrorIs(t, err, tree.ErrThresholdOrder)
}

func TestParamsSamplings(t *testing.T) {
	_, err := tree.NewParams(tree.Samplings(0))
	assert.ErrorIs(t, err, tree.ErrSamplings)

	_, err = tree.NewParams(tree.Samplings(1))
	assert.NoError(t, err)
}

func TestPredictUntrained(t *testing.T) {
	tr := newTree(blobs(10, 1), 1)

	assert.True(t, tr.IsLeaf())
	assert.False(t, tr.Trained())
	assert.Equal(t, leaf.Histogram{}, tr.Predict([]float64{0, 0, 0}))
}

func TestTwoIdenticalLabels(t *testing.T) {
	data := tree.NewExampleSet([]string{"a", "a"}, [][]float64{{0, 0, 0}, {1, 1, 1}})
	tr := newTree(data, 2)
	p := mustParams(t, tree.ObjectiveThreshold(0))

	assert.Equal(t, p.ObjectiveThreshold, gini(data.Labels()))
	tr.Train(data, gini, p)

	require.True(t, tr.IsLeaf())
	assert.Equal(t, 1, tr.NumNodes())
	assert.Equal(t, leaf.Histogram{Counts: map[string]int{"a": 2}, N: 2}, tr.Predict([]float64{5, 5, 5}))
}

func TestTrainStructure(t *testing.T) {
	data := blobs(300, 3)
	tr := newTree(data, 3)
	tr.Train(data, gini, mustParams(t))

	assert.False(t, tr.IsLeaf())
	checkStructure(t, tr)
	assert.Equal(t, len(tr.Leaves())+len(tr.Tests()), tr.NumNodes())
	assert.Equal(t, len(tr.Tests())+1, len(tr.Leaves()))

	n := 0
	for _, h := range tr.Leaves() {
		n += h.N
	}
	assert.Equal(t, data.Len(), n, "every example should reach exactly one leaf")

	correct := 0
	for i, x := range data.Features() {
		if class, _ := tr.Predict(x).Mode(); class == data.Y[i] {
			correct++
		}
	}
	assert.GreaterOrEqual(t, float64(correct)/float64(data.Len()), 0.95)
}

func TestChildrenShareDimAndRanges(t *testing.T) {
	data := blobs(100, 4)
	tr := newTree(data, 4)
	tr.Train(data, gini, mustParams(t))

	_, right, left, ok := tr.Split()
	require.True(t, ok)
	for _, child := range []*clfTree{right, left} {
		assert.Equal(t, tr.Dim(), child.Dim())
		assert.Equal(t, tr.Prototype().Min, child.Prototype().Min)
		assert.Equal(t, tr.Prototype().Max, child.Prototype().Max)
	}

	deeper := right.Depth()
	if left.Depth() > deeper {
		deeper = left.Depth()
	}
	assert.Equal(t, deeper+1, tr.Depth())
	assert.Zero(t, newTree(data, 5).Depth())
}

func TestTrainMinExamples(t *testing.T) {
	data := blobs(200, 4)
	tr := newTree(data, 4)
	tr.Train(data, gini, mustParams(t, tree.MinExamples(20)))

	checkStructure(t, tr)
	for _, h := range tr.Leaves() {
		if h.N > 20 {
			assert.Zero(t, gini(expand(h)), "impure leaf larger than MinExamples")
		}
	}
}

func expand(h leaf.Histogram) []string {
	var labels []string
	for class, ct := range h.Counts {
		for i := 0; i < ct; i++ {
			labels = append(labels, class)
		}
	}
	return labels
}

func TestTrainReplaces(t *testing.T) {
	tr := newTree(blobs(100, 5), 5)
	tr.Train(blobs(100, 5), gini, mustParams(t))
	require.False(t, tr.IsLeaf())

	pure := tree.NewExampleSet([]string{"z", "z", "z"}, [][]float64{{0, 0, 0}, {1, 1, 1}, {2, 2, 2}})
	tr.Train(pure, gini, mustParams(t))

	assert.True(t, tr.IsLeaf())
	assert.Equal(t, 3, tr.Predict([]float64{0, 0, 0}).N)
}

func TestDegenerateFallback(t *testing.T) {
	same := []float64{1, 1, 1}
	data := tree.NewExampleSet([]string{"a", "b", "a", "b"}, [][]float64{same, same, same, same})
	tr := newTree(data, 6)
	tr.Train(data, gini, mustParams(t))

	require.True(t, tr.IsLeaf())
	assert.Equal(t, leaf.Histogram{Counts: map[string]int{"a": 2, "b": 2}, N: 4}, tr.Predict(same))
}

func TestDegenerateFallbackChild(t *testing.T) {
	// x0 separates "a" from the rest, the rest cannot be told apart
	data := tree.NewExampleSet(
		[]string{"a", "b", "c", "b", "c"},
		[][]float64{{0, 0, 0}, {5, 0, 0}, {5, 0, 0}, {5, 0, 0}, {5, 0, 0}},
	)
	tr := newTree(data, 7)
	tr.Train(data, gini, mustParams(t))

	checkStructure(t, tr)
	assert.Equal(t, 3, tr.NumNodes())
	assert.Equal(t, 4, tr.Predict([]float64{5, 0, 0}).N)
}

func TestTrain1Regrowth(t *testing.T) {
	p := mustParams(t, tree.RestartExamples(5))
	proto := split.NewThreshold([][]float64{{0, 0, 0}, {10, 10, 10}})
	tr := tree.New[string, []float64, split.Threshold, leaf.Histogram](3, proto, tree.RandState(8))

	for i := 0; i < 4; i++ {
		label := "lo"
		if i%2 == 1 {
			label = "hi"
		}
		tr.Train1(label, []float64{float64(i), 0, 0}, gini, p)
		require.True(t, tr.IsLeaf(), "regrew after %d examples", i+1)
		assert.Equal(t, i+1, tr.Buffered())
	}

	tr.Train1("hi", []float64{9, 0, 0}, gini, p)
	assert.False(t, tr.IsLeaf())
	assert.Zero(t, tr.Buffered())
	checkStructure(t, tr)
}

func TestTrain1PureStockKeepsBuffering(t *testing.T) {
	p := mustParams(t, tree.RestartExamples(3))
	proto := split.NewThreshold([][]float64{{0, 0, 0}, {10, 10, 10}})
	tr := tree.New[string, []float64, split.Threshold, leaf.Histogram](3, proto, tree.RandState(9))

	for i := 0; i < 6; i++ {
		tr.Train1("same", []float64{float64(i), 0, 0}, gini, p)
	}

	assert.True(t, tr.IsLeaf())
	assert.Equal(t, 6, tr.Buffered())
}

func TestTrain1DegenerateDropsStock(t *testing.T) {
	p := mustParams(t, tree.RestartExamples(4))
	proto := split.NewThreshold([][]float64{{0, 0, 0}, {10, 10, 10}})
	tr := tree.New[string, []float64, split.Threshold, leaf.Histogram](3, proto, tree.RandState(10))

	x := []float64{3, 3, 3}
	for _, y := range []string{"a", "b", "a", "b"} {
		tr.Train1(y, x, gini, p)
	}

	assert.True(t, tr.IsLeaf())
	assert.Zero(t, tr.Buffered())
	assert.Equal(t, 4, tr.Predict(x).N)
}

func TestTrain1RoutesToLeaf(t *testing.T) {
	data := blobs(200, 11)
	tr := newTree(data, 11)
	tr.Train(data, gini, mustParams(t))
	nodes := tr.NumNodes()

	x := []float64{3, 3, 0.5}
	tr.Train1("pos", x, gini, mustParams(t))

	assert.Equal(t, 1, tr.Buffered())
	assert.Equal(t, nodes, tr.NumNodes())
}

func TestChattyLogging(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	data := blobs(100, 12)
	tr := tree.New[string, []float64, split.Threshold, leaf.Histogram](
		3, split.NewThreshold(data.Features()), tree.RandState(12), tree.Logger(zap.New(core)))

	tr.Train(data, gini, mustParams(t, tree.Chatty(true)))

	assert.Equal(t, tr.NumNodes(), logs.FilterMessage("train node").Len())
	leaves := logs.FilterMessage("leaf").Len() + logs.FilterMessage("cannot grow").Len()
	assert.Equal(t, len(tr.Leaves()), leaves)
}

func TestQuietByDefault(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	data := blobs(50, 13)
	tr := tree.New[string, []float64, split.Threshold, leaf.Histogram](
		3, split.NewThreshold(data.Features()), tree.RandState(13), tree.Logger(zap.New(core)))

	tr.Train(data, gini, mustParams(t))

	assert.Zero(t, logs.Len())
}

func TestDot(t *testing.T) {
	data := blobs(60, 14)
	tr := tree.New[string, []float64, split.Threshold, leaf.Histogram](
		3, split.NewThreshold(data.Features()), tree.RandState(14), tree.Logger(zaptest.NewLogger(t)))
	tr.Train(data, gini, mustParams(t, tree.Chatty(true)))

	dot, err := tr.Dot()
	require.NoError(t, err)

	assert.Contains(t, dot, "digraph G")
	assert.Contains(t, dot, "shape=box")
	assert.Equal(t, tr.NumNodes()-1, countEdges(dot))
}

func countEdges(dot string) int {
	n := 0
	for i := 0; i+1 < len(dot); i++ {
		if dot[i] == '-' && dot[i+1] == '>' {
			n++
		}
	}
	return n
}
