package algorithm

import (
	"github.com/cabewaldrop/bplusviz/internal/bptree"
	"github.com/cabewaldrop/bplusviz/internal/command"
)

// positions lays the tree out: leaves evenly spaced and centered on
// StartingX, each internal node centered over its children, one row per
// level from StartingY down.
func (b *BPlusTree) positions() map[bptree.NodeID]command.Position {
	pos := make(map[bptree.NodeID]command.Position)
	t := b.tree
	if !t.HasRoot() {
		return pos
	}

	var leaves []bptree.NodeID
	for id := t.FirstLeaf(); id != bptree.Nil; id = t.Node(id).Next {
		leaves = append(leaves, id)
	}
	slot := t.MaxKeys()*command.WidthPerElement + command.NodeGap
	left := command.StartingX - (len(leaves)-1)*slot/2
	height := t.Height()

	var place func(id bptree.NodeID) int
	place = func(id bptree.NodeID) int {
		n := t.Node(id)
		y := command.StartingY + (height-1-n.Level)*command.LevelSpacing
		var x int
		if n.Leaf {
			for i, l := range leaves {
				if l == id {
					x = left + i*slot
					break
				}
			}
		} else {
			first := place(n.Children[0])
			last := first
			for _, c := range n.Children[1:] {
				last = place(c)
			}
			x = (first + last) / 2
		}
		pos[id] = command.Position{ID: n.GraphicID, X: x, Y: y}
		return x
	}
	place(t.Root())
	return pos
}

// layoutList returns the current layout in node pre-order.
func (b *BPlusTree) layoutList() []command.Position {
	pos := b.positions()
	list := make([]command.Position, 0, len(pos))
	var walk func(id bptree.NodeID)
	walk = func(id bptree.NodeID) {
		list = append(list, pos[id])
		for _, c := range b.tree.Node(id).Children {
			walk(c)
		}
	}
	if b.tree.HasRoot() {
		walk(b.tree.Root())
	}
	return list
}
