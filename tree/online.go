package tree

// Train1 feeds one example into an existing tree. The example is routed to
// the leaf it falls into and buffered there; once the leaf holds at least
// p.RestartExamples examples whose objective is at least p.ObjectiveRestart,
// the leaf is regrown with Train from the buffer and the buffer is dropped,
// whether or not a split was found. Internal nodes are never turned back
// into leaves.
//
// Train1 is not safe for concurrent use on the same tree.
func (t *Tree[Y, X, S, L]) Train1(y Y, x X, obj Objective[Y], p Params) {
	n := t
	for {
		s, ok := n.n.(*splitNode[Y, X, S, L])
		if !ok {
			break
		}
		if s.test.Eval(x) {
			n = s.right
		} else {
			n = s.left
		}
	}

	l := n.n.(*leafNode[Y, X, L])
	l.stock.Add(y, x)

	if l.stock.Len() >= p.RestartExamples && obj(l.stock.Labels()) >= p.ObjectiveRestart {
		stock := l.stock
		l.stock.Reset()
		n.Train(&stock, obj, p)
	}
}
