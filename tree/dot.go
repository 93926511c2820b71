package tree

import (
	"fmt"
	"strconv"

	"github.com/awalterschulze/gographviz"
)

// Dot renders t as a Graphviz digraph. Internal nodes are labeled with
// their test and leaves with their value; edges are labeled with the test
// outcome that leads to the child.
func (t *Tree[Y, X, S, L]) Dot() (string, error) {
	graph := gographviz.NewGraph()
	if err := graph.SetName("G"); err != nil {
		return "", err
	}
	if err := graph.SetDir(true); err != nil {
		return "", err
	}

	id := 0
	var add func(n *Tree[Y, X, S, L]) (string, error)
	add = func(n *Tree[Y, X, S, L]) (string, error) {
		name := fmt.Sprintf("n%d", id)
		id++

		switch v := n.n.(type) {
		case *leafNode[Y, X, L]:
			label := strconv.Quote(fmt.Sprintf("leaf %s", v.value.String()))
			return name, graph.AddNode("G", name, map[string]string{"label": label, "shape": "box"})
		case *splitNode[Y, X, S, L]:
			label := strconv.Quote(v.test.String())
			if err := graph.AddNode("G", name, map[string]string{"label": label}); err != nil {
				return "", err
			}
			r, err := add(v.right)
			if err != nil {
				return "", err
			}
			if err := graph.AddEdge(name, r, true, map[string]string{"label": "true"}); err != nil {
				return "", err
			}
			l, err := add(v.left)
			if err != nil {
				return "", err
			}
			return name, graph.AddEdge(name, l, true, map[string]string{"label": "false"})
		}
		return name, nil
	}

	if _, err := add(t); err != nil {
		return "", err
	}
	return graph.String(), nil
}
