// Package tree implements binary decision trees grown from randomized split
// tests. A tree is generic over the label type Y, the feature type X, the
// split test S and the leaf value L; the caller supplies the tests, the leaf
// values and the objective that decides how pure a set of labels is.
//
// Trees are grown in batch with Train, which tries Params.Samplings random
// tests at every node and keeps the one with the smallest weighted
// objective, or one example at a time with Train1, which buffers examples in
// the leaves and regrows a leaf once enough impure evidence has arrived.
package tree

import (
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Test routes a feature vector: true goes to the right child, false to the
// left. Sample returns a fresh random test drawn the same way as the
// receiver, and Parse restores a test from its String form. The String form
// must not contain tabs or newlines.
type Test[X, S any] interface {
	Eval(x X) bool
	Sample(r *rand.Rand) S
	String() string
	Parse(s string) (S, error)
}

// Leaf is the value stored at a leaf. Fit summarizes a set of labels; it is
// called on the zero value. The String form must not contain newlines.
type Leaf[Y, L any] interface {
	Fit(labels []Y) L
	String() string
	Parse(s string) (L, error)
}

// Objective scores a set of labels, lower values are purer. It must return
// a finite value for an empty set.
type Objective[Y any] func(labels []Y) float64

// node is either a *leafNode or a *splitNode.
type node interface {
	isNode()
}

type leafNode[Y, X, L any] struct {
	value  L
	fitted bool
	stock  ExampleSet[Y, X] // examples buffered by Train1
}

type splitNode[Y, X any, S Test[X, S], L Leaf[Y, L]] struct {
	test  S
	right *Tree[Y, X, S, L]
	left  *Tree[Y, X, S, L]
}

func (*leafNode[Y, X, L]) isNode()     {}
func (*splitNode[Y, X, S, L]) isNode() {}

// Tree is a decision tree node together with the subtree it owns. A Tree
// should be initialized with New.
type Tree[Y, X any, S Test[X, S], L Leaf[Y, L]] struct {
	dim       int // feature dimension
	proto     S   // test that Sample is called on when growing this node
	n         node
	randState *rand.Rand
	log       *zap.Logger
}

// methods for the configer interface
func (t *Tree[Y, X, S, L]) setRandState(n int64)     { t.randState = rand.New(rand.NewSource(n)) }
func (t *Tree[Y, X, S, L]) setLogger(l *zap.Logger) { t.log = l }

// interface for configuration so the same options apply to every
// instantiation of Tree
type configer interface {
	setRandState(n int64)
	setLogger(l *zap.Logger)
}

// RandState sets the seed for the random number generator used to sample
// split tests.
func RandState(n int64) func(configer) {
	return func(c configer) {
		c.setRandState(n)
	}
}

// Logger sets the logger used when Params.Chatty is on.
func Logger(l *zap.Logger) func(configer) {
	return func(c configer) {
		c.setLogger(l)
	}
}

// New returns an untrained tree: a single leaf with no value. dim is the
// feature dimension and proto the test that candidate splits are sampled
// from. If no options are passed the tree is seeded from the clock and logs
// nowhere.
func New[Y, X any, S Test[X, S], L Leaf[Y, L]](dim int, proto S, options ...func(configer)) *Tree[Y, X, S, L] {
	t := &Tree[Y, X, S, L]{
		dim:       dim,
		proto:     proto,
		n:         &leafNode[Y, X, L]{},
		randState: rand.New(rand.NewSource(time.Now().UnixNano())),
		log:       zap.NewNop(),
	}

	for _, opt := range options {
		opt(t)
	}

	return t
}

// child returns an empty tree sharing the receiver's dimension, random
// source and logger.
func (t *Tree[Y, X, S, L]) child(proto S) *Tree[Y, X, S, L] {
	return &Tree[Y, X, S, L]{
		dim:       t.dim,
		proto:     proto,
		n:         &leafNode[Y, X, L]{},
		randState: t.randState,
		log:       t.log,
	}
}

// Dim returns the feature dimension the tree was created with.
func (t *Tree[Y, X, S, L]) Dim() int { return t.dim }

// Prototype returns the test new splits of this node are sampled from.
func (t *Tree[Y, X, S, L]) Prototype() S { return t.proto }

// IsLeaf reports whether the root of t is a leaf.
func (t *Tree[Y, X, S, L]) IsLeaf() bool {
	_, ok := t.n.(*leafNode[Y, X, L])
	return ok
}

// Split returns the test and children of an internal node. ok is false for
// a leaf.
func (t *Tree[Y, X, S, L]) Split() (test S, right, left *Tree[Y, X, S, L], ok bool) {
	s, ok := t.n.(*splitNode[Y, X, S, L])
	if !ok {
		return test, nil, nil, false
	}
	return s.test, s.right, s.left, true
}

// Predict returns the value of the leaf x falls into. A leaf that has never
// been trained holds the zero value of L.
func (t *Tree[Y, X, S, L]) Predict(x X) L {
	n := t
	for {
		s, ok := n.n.(*splitNode[Y, X, S, L])
		if !ok {
			return n.n.(*leafNode[Y, X, L]).value
		}
		if s.test.Eval(x) {
			n = s.right
		} else {
			n = s.left
		}
	}
}

// walk visits every node in pre-order, right subtree before left.
func (t *Tree[Y, X, S, L]) walk(depth int, fn func(n *Tree[Y, X, S, L], depth int)) {
	fn(t, depth)
	if s, ok := t.n.(*splitNode[Y, X, S, L]); ok {
		s.right.walk(depth+1, fn)
		s.left.walk(depth+1, fn)
	}
}

// NumNodes returns the number of nodes, internal and leaves.
func (t *Tree[Y, X, S, L]) NumNodes() int {
	ct := 0
	t.walk(0, func(*Tree[Y, X, S, L], int) { ct++ })
	return ct
}

// Depth returns the length of the longest path from the root to a leaf.
func (t *Tree[Y, X, S, L]) Depth() int {
	deepest := 0
	t.walk(0, func(_ *Tree[Y, X, S, L], d int) {
		if d > deepest {
			deepest = d
		}
	})
	return deepest
}

// Leaves returns the leaf values in pre-order, right before left.
func (t *Tree[Y, X, S, L]) Leaves() []L {
	var vals []L
	t.walk(0, func(n *Tree[Y, X, S, L], _ int) {
		if l, ok := n.n.(*leafNode[Y, X, L]); ok {
			vals = append(vals, l.value)
		}
	})
	return vals
}

// Tests returns the tests of the internal nodes in pre-order, right before
// left.
func (t *Tree[Y, X, S, L]) Tests() []S {
	var tests []S
	t.walk(0, func(n *Tree[Y, X, S, L], _ int) {
		if s, ok := n.n.(*splitNode[Y, X, S, L]); ok {
			tests = append(tests, s.test)
		}
	})
	return tests
}

// Buffered returns the number of examples held by leaves waiting for online
// regrowth.
func (t *Tree[Y, X, S, L]) Buffered() int {
	ct := 0
	t.walk(0, func(n *Tree[Y, X, S, L], _ int) {
		if l, ok := n.n.(*leafNode[Y, X, L]); ok {
			ct += l.stock.Len()
		}
	})
	return ct
}

// Trained reports whether every leaf of t holds a fitted value.
func (t *Tree[Y, X, S, L]) Trained() bool {
	trained := true
	t.walk(0, func(n *Tree[Y, X, S, L], _ int) {
		if l, ok := n.n.(*leafNode[Y, X, L]); ok && !l.fitted {
			trained = false
		}
	})
	return trained
}
