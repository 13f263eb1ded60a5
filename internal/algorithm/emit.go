package algorithm

import (
	"strconv"

	"github.com/cabewaldrop/bplusviz/internal/bptree"
	"github.com/cabewaldrop/bplusviz/internal/command"
)

// The helpers below keep the recorded picture in lockstep with the tree:
// every node has one slot per key, every parent is connected to each child,
// and every leaf is connected to the next leaf.

func keyText(key int) string {
	return strconv.Itoa(key)
}

func (b *BPlusTree) message(text string) {
	b.rec.Emit(command.SetMessage{Text: text})
}

func (b *BPlusTree) highlight(id bptree.NodeID, on bool) {
	b.rec.Emit(command.SetHighlight{ID: b.tree.Node(id).GraphicID, Highlight: on})
}

// emitCreate introduces n with its current keys.
func (b *BPlusTree) emitCreate(n *bptree.Node, pos map[bptree.NodeID]command.Position) {
	p := pos[n.ID]
	b.rec.Emit(command.CreateNode{
		ID:          n.GraphicID,
		Width:       command.WidthPerElement,
		Height:      command.NodeHeight,
		NumElements: len(n.Keys),
		X:           p.X,
		Y:           p.Y,
		Background:  command.BackgroundColor,
		Foreground:  command.ForegroundColor,
	})
	for i, k := range n.Keys {
		b.rec.Emit(command.SetText{ID: n.GraphicID, Index: i, Text: keyText(k)})
	}
}

// rewriteFrom resizes n to its key count and rewrites slots from index on.
func (b *BPlusTree) rewriteFrom(n *bptree.Node, from int) {
	b.rec.Emit(command.SetElementCount{ID: n.GraphicID, Count: len(n.Keys)})
	for i := from; i < len(n.Keys); i++ {
		b.rec.Emit(command.SetText{ID: n.GraphicID, Index: i, Text: keyText(n.Keys[i])})
	}
}

func (b *BPlusTree) connectChild(parent, child string) {
	b.rec.Emit(command.Connect{From: parent, To: child, Color: command.EdgeColor, Directed: true})
}

func (b *BPlusTree) connectNext(leaf, next string) {
	b.rec.Emit(command.Connect{From: leaf, To: next, Color: command.LeafChainColor, Directed: true, Label: "next"})
}

// traverse animates the descent along path: each internal node and the edge
// taken out of it light up in turn, and the leaf stays highlighted for the
// caller to clear.
func (b *BPlusTree) traverse(path []bptree.NodeID) {
	for i, id := range path {
		n := b.tree.Node(id)
		b.highlight(id, true)
		b.rec.Step()
		if n.Leaf {
			return
		}
		child := b.tree.Node(path[i+1]).GraphicID
		b.rec.Emit(command.SetEdgeHighlight{From: n.GraphicID, To: child, Highlight: true})
		b.rec.Step()
		b.rec.Emit(command.SetEdgeHighlight{From: n.GraphicID, To: child, Highlight: false})
		b.highlight(id, false)
	}
}
