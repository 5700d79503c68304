package chart

import (
	"github.com/leapstack-labs/querydash/internal/query"
)

// Node is one rectangle of a treemap. Value is the summed weight of every
// row beneath it.
type Node struct {
	Name     string
	Value    float64
	Children []*Node
}

// Tree builds the treemap hierarchy for path (outermost level first). Rows
// with a nil path segment or a non-numeric weight are skipped. Sibling order
// follows first appearance.
func Tree(res *query.Result, path []string, values string) []*Node {
	root := &Node{}
	for _, row := range res.Rows {
		w, ok := toFloat(row[values])
		if !ok {
			continue
		}

		segments := make([]string, 0, len(path))
		for _, col := range path {
			v := row[col]
			if v == nil {
				break
			}
			segments = append(segments, label(v))
		}
		if len(segments) != len(path) {
			continue
		}

		node := root
		node.Value += w
		for _, seg := range segments {
			node = node.child(seg)
			node.Value += w
		}
	}
	return root.Children
}

func (n *Node) child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	c := &Node{Name: name}
	n.Children = append(n.Children, c)
	return c
}
