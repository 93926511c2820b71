// Package forest implements ensembles of randomized decision trees. Every
// tree in a forest is grown from its own disjoint block of the training
// examples, and predictions combine the value of every tree through the
// leaf type's Reduce.
package forest

import (
	"math/rand"
	"runtime"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/t-abe/octrf/tree"
)

// ErrNumTrees is returned when a forest is asked to hold fewer than one tree.
var ErrNumTrees = errors.New("forest: number of trees must be at least 1")

// Leaf is a tree leaf value that also knows how to combine the values of
// several trees into the ensemble result R.
type Leaf[Y, L, R any] interface {
	tree.Leaf[Y, L]
	Reduce(values []L) R
}

// Params controls how a forest grows: the number of trees and the
// parameters shared by every tree.
type Params struct {
	NTrees int
	Tree   tree.Params
}

// NumTrees sets the number of trees in the forest.
func NumTrees(n int) func(*Params) {
	return func(p *Params) {
		p.NTrees = n
	}
}

// TreeParams sets the parameters every tree is grown with.
func TreeParams(tp tree.Params) func(*Params) {
	return func(p *Params) {
		p.Tree = tp
	}
}

// NewParams returns validated forest parameters. If no options are passed
// the forest holds a single tree grown with the defaults of tree.NewParams.
func NewParams(options ...func(*Params)) (Params, error) {
	tp, err := tree.NewParams()
	if err != nil {
		return Params{}, err
	}
	p := Params{NTrees: 1, Tree: tp}

	for _, opt := range options {
		opt(&p)
	}

	return p, p.Validate()
}

// Validate reports whether p can be used for training.
func (p Params) Validate() error {
	if p.NTrees < 1 {
		return errors.Wrapf(ErrNumTrees, "got %d", p.NTrees)
	}
	return p.Tree.Validate()
}

// Forest is an ordered set of trees sharing a feature dimension and a
// prototype split test. A Forest should be initialized with New.
type Forest[Y, X any, S tree.Test[X, S], L Leaf[Y, L, R], R any] struct {
	dim        int
	proto      S
	trees      []*tree.Tree[Y, X, S, L]
	randState  *rand.Rand
	nWorkers   int
	log        *zap.Logger
	onTreeDone func(done, total int)
	cursor     int // next tree fed by Train1
}

// methods for the Configer interface
func (f *Forest[Y, X, S, L, R]) setNumWorkers(n int)                    { f.nWorkers = n }
func (f *Forest[Y, X, S, L, R]) setRandState(n int64)                   { f.randState = rand.New(rand.NewSource(n)) }
func (f *Forest[Y, X, S, L, R]) setLogger(l *zap.Logger)                { f.log = l }
func (f *Forest[Y, X, S, L, R]) setOnTreeDone(fn func(done, total int)) { f.onTreeDone = fn }

// Configer is implemented by forests so the same options apply to every
// instantiation of Forest.
type Configer interface {
	setNumWorkers(n int)
	setRandState(n int64)
	setLogger(l *zap.Logger)
	setOnTreeDone(fn func(done, total int))
}

// NumWorkers sets the number of goroutines used to fit trees. Values below
// one fall back to GOMAXPROCS.
func NumWorkers(n int) func(Configer) {
	return func(c Configer) {
		c.setNumWorkers(n)
	}
}

// RandState seeds the forest's random source. The example shuffle and the
// seed of every tree are drawn from it, so a fixed seed gives repeatable
// forests regardless of the number of workers.
func RandState(n int64) func(Configer) {
	return func(c Configer) {
		c.setRandState(n)
	}
}

// Logger sets the logger handed to the forest and its trees.
func Logger(l *zap.Logger) func(Configer) {
	return func(c Configer) {
		c.setLogger(l)
	}
}

// OnTreeDone registers fn to be called each time a tree finishes training.
// fn is never called concurrently.
func OnTreeDone(fn func(done, total int)) func(Configer) {
	return func(c Configer) {
		c.setOnTreeDone(fn)
	}
}

// New returns an empty forest for feature vectors of dimension dim whose
// trees sample their split tests from proto.
func New[Y, X any, S tree.Test[X, S], L Leaf[Y, L, R], R any](dim int, proto S, options ...func(Configer)) *Forest[Y, X, S, L, R] {
	f := &Forest[Y, X, S, L, R]{
		dim:       dim,
		proto:     proto,
		randState: rand.New(rand.NewSource(time.Now().UnixNano())),
		log:       zap.NewNop(),
	}

	for _, opt := range options {
		opt(f)
	}

	return f
}

// newTree returns an empty tree seeded from the forest's random source.
func (f *Forest[Y, X, S, L, R]) newTree() *tree.Tree[Y, X, S, L] {
	return tree.New[Y, X, S, L](f.dim, f.proto,
		tree.RandState(f.randState.Int63()), tree.Logger(f.log))
}

func (f *Forest[Y, X, S, L, R]) workers() int {
	if f.nWorkers < 1 {
		return runtime.GOMAXPROCS(0)
	}
	return f.nWorkers
}

// Dim returns the feature dimension.
func (f *Forest[Y, X, S, L, R]) Dim() int { return f.dim }

// Trees returns the trees in ensemble order.
func (f *Forest[Y, X, S, L, R]) Trees() []*tree.Tree[Y, X, S, L] { return f.trees }

// Len returns the number of trees.
func (f *Forest[Y, X, S, L, R]) Len() int { return len(f.trees) }

// MaxDepth returns the depth of the deepest tree, 0 for a forest of leaves.
func (f *Forest[Y, X, S, L, R]) MaxDepth() int {
	depth := 0
	for _, t := range f.trees {
		if d := t.Depth(); d > depth {
			depth = d
		}
	}
	return depth
}

// Values returns the leaf value every tree predicts for x, in ensemble order.
func (f *Forest[Y, X, S, L, R]) Values(x X) []L {
	vals := make([]L, len(f.trees))
	for i, t := range f.trees {
		vals[i] = t.Predict(x)
	}
	return vals
}

// Dot renders the ith tree as a Graphviz digraph.
func (f *Forest[Y, X, S, L, R]) Dot(i int) (string, error) {
	if i < 0 || i >= len(f.trees) {
		return "", errors.Errorf("forest: no tree %d in a forest of %d", i, len(f.trees))
	}
	return f.trees[i].Dot()
}

// Predict combines the values of every tree for x with L's Reduce.
func (f *Forest[Y, X, S, L, R]) Predict(x X) R {
	var zero L
	return zero.Reduce(f.Values(x))
}
