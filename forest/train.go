package forest

import (
	"go.uber.org/zap"

	"github.com/t-abe/octrf/tree"
)

type fitTree[Y, X any, S tree.Test[X, S], L tree.Leaf[Y, L]] struct {
	id   int
	t    *tree.Tree[Y, X, S, L]
	data *tree.ExampleSet[Y, X]
}

// Blocks cuts perm into k consecutive blocks of len(perm)/k indices. The
// last len(perm)%k indices belong to no block.
func Blocks(perm []int, k int) [][]int {
	size := len(perm) / k
	blocks := make([][]int, k)
	for i := range blocks {
		blocks[i] = perm[i*size : (i+1)*size]
	}
	return blocks
}

// Train replaces the trees of f with p.NTrees new trees. The examples are
// shuffled and cut into p.NTrees blocks of len(data)/p.NTrees examples, and
// each tree is grown from its own block; the len(data)%p.NTrees examples
// left over are not used. Trees are grown in parallel and Train returns
// once every tree is done.
func (f *Forest[Y, X, S, L, R]) Train(data *tree.ExampleSet[Y, X], obj tree.Objective[Y], p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}

	blocks := Blocks(f.randState.Perm(data.Len()), p.NTrees)
	trees := make([]*tree.Tree[Y, X, S, L], p.NTrees)
	for i := range trees {
		trees[i] = f.newTree()
	}

	if p.Tree.Chatty {
		f.log.Info("train forest",
			zap.Int("trees", p.NTrees),
			zap.Int("examples", data.Len()),
			zap.Int("unused", data.Len()-p.NTrees*len(blocks[0])))
	}

	in := make(chan *fitTree[Y, X, S, L])
	out := make(chan *fitTree[Y, X, S, L])

	nWorkers := f.workers()
	if nWorkers > p.NTrees {
		nWorkers = p.NTrees
	}

	// start workers
	for i := 0; i < nWorkers; i++ {
		go func() {
			for w := range in {
				w.t.Train(w.data, obj, p.Tree)
				out <- w
			}
		}()
	}

	// fill the queue
	go func() {
		for i, t := range trees {
			in <- &fitTree[Y, X, S, L]{id: i, t: t, data: data.Subset(blocks[i])}
		}
		close(in)
	}()

	for done := 1; done <= len(trees); done++ {
		w := <-out
		if p.Tree.Chatty {
			f.log.Info("tree done", zap.Int("tree", w.id), zap.Int("nodes", w.t.NumNodes()))
		}
		if f.onTreeDone != nil {
			f.onTreeDone(done, len(trees))
		}
	}

	f.trees = trees
	f.cursor = 0
	return nil
}

// Train1 feeds one example to a single tree, taking the trees in turn so
// that every example reaches exactly one tree. An empty forest first gets
// p.NTrees untrained trees. See tree.Tree.Train1 for how a tree grows from
// the examples it is fed.
func (f *Forest[Y, X, S, L, R]) Train1(y Y, x X, obj tree.Objective[Y], p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}

	if len(f.trees) == 0 {
		f.trees = make([]*tree.Tree[Y, X, S, L], p.NTrees)
		for i := range f.trees {
			f.trees[i] = f.newTree()
		}
		f.cursor = 0
	}

	f.trees[f.cursor].Train1(y, x, obj, p.Tree)
	f.cursor = (f.cursor + 1) % len(f.trees)
	return nil
}
