package tree

import (
	"math"

	"go.uber.org/zap"
)

// Train grows t from data, replacing whatever t held before. A node becomes
// a leaf when its objective is at or below p.ObjectiveThreshold or it holds
// at most p.MinExamples examples; otherwise p.Samplings tests are drawn from
// the node's prototype and the one minimizing
//
//	|right| * obj(right) + |left| * obj(left)
//
// is kept, ties going to the first drawn. If the kept test sends every
// example to the same side the node becomes a leaf instead.
func (t *Tree[Y, X, S, L]) Train(data *ExampleSet[Y, X], obj Objective[Y], p Params) {
	labels := data.Labels()
	o := obj(labels)

	if p.Chatty {
		t.log.Info("train node", zap.Int("examples", data.Len()), zap.Float64("objective", o))
	}

	if o <= p.ObjectiveThreshold || data.Len() <= p.MinExamples {
		t.fit(labels, p, "leaf")
		return
	}

	best, ok := t.bestSplit(data, obj, p.Samplings)
	if !ok {
		t.fit(labels, p, "cannot grow")
		return
	}

	rData, lData := partition(data, best)
	if rData.Len() == 0 || lData.Len() == 0 {
		t.fit(labels, p, "cannot grow")
		return
	}

	s := &splitNode[Y, X, S, L]{
		test:  best,
		right: t.child(best),
		left:  t.child(best),
	}
	t.n = s

	s.right.Train(rData, obj, p)
	s.left.Train(lData, obj, p)
}

// fit turns t into a leaf summarizing labels.
func (t *Tree[Y, X, S, L]) fit(labels []Y, p Params, msg string) {
	var zero L
	l := &leafNode[Y, X, L]{value: zero.Fit(labels), fitted: true}
	t.n = l

	if p.Chatty {
		t.log.Info(msg, zap.String("value", l.value.String()))
	}
}

// bestSplit samples n tests and returns the one with the smallest weighted
// objective. ok is false when no candidate scored below +Inf.
func (t *Tree[Y, X, S, L]) bestSplit(data *ExampleSet[Y, X], obj Objective[Y], n int) (best S, ok bool) {
	var (
		eBest = math.Inf(1)
		rBuf  = make([]Y, 0, data.Len())
		lBuf  = make([]Y, 0, data.Len())
	)

	for c := 0; c < n; c++ {
		test := t.proto.Sample(t.randState)

		rBuf, lBuf = rBuf[:0], lBuf[:0]
		for i, x := range data.X {
			if test.Eval(x) {
				rBuf = append(rBuf, data.Y[i])
			} else {
				lBuf = append(lBuf, data.Y[i])
			}
		}

		e := float64(len(rBuf))*obj(rBuf) + float64(len(lBuf))*obj(lBuf)
		if e < eBest {
			eBest = e
			best = test
			ok = true
		}
	}

	return best, ok
}

// partition splits data into the examples test sends right and left.
func partition[Y, X any, S Test[X, S]](data *ExampleSet[Y, X], test S) (right, left *ExampleSet[Y, X]) {
	right, left = new(ExampleSet[Y, X]), new(ExampleSet[Y, X])
	for i, x := range data.X {
		if test.Eval(x) {
			data.PushTo(right, i)
		} else {
			data.PushTo(left, i)
		}
	}
	return right, left
}
