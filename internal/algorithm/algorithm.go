// Package algorithm drives a bptree.Tree through insertions and deletions
// and records every structural step as a command log.
//
// EDUCATIONAL NOTES:
// ------------------
// Insertion and deletion are both "fix it on the way back up" algorithms:
//
// Insert:
// 1. Walk down to the leaf that should hold the key
// 2. Put the key in the leaf
// 3. While a node has too many keys, split it and push a separator into
//    its parent (the parent may overflow in turn, up to a new root)
//
// Delete:
// 1. Walk down to the leaf that holds the key and remove it
// 2. If the key was the first key of its leaf, fix the separator above it
// 3. While a node has too few keys, repair it, trying in order:
//    a. borrow a key from the right sibling
//    b. borrow a key from the left sibling
//    c. merge with the right sibling, else with the left one
//    A merge removes one separator from the parent, which may underflow too
// 4. If the root is left with no keys, its only child becomes the root
//
// Both loops climb one level per iteration and stop at the root, so a
// mutation costs O(height) structural steps.

package algorithm

import (
	"fmt"
	"time"

	"github.com/cabewaldrop/bplusviz/internal/bptree"
	"github.com/cabewaldrop/bplusviz/internal/command"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// Stats summarizes the structural work done by the last mutation.
type Stats struct {
	Operation      string        `json:"operation"`
	Key            int           `json:"key"`
	Splits         int           `json:"splits"`
	RootSplits     int           `json:"rootSplits"`
	BorrowsLeft    int           `json:"borrowsLeft"`
	BorrowsRight   int           `json:"borrowsRight"`
	Merges         int           `json:"merges"`
	Collapses      int           `json:"collapses"`
	SeparatorFixes int           `json:"separatorFixes"`
	Commands       int           `json:"commands"`
	Duration       time.Duration `json:"duration"`
}

// BPlusTree is the engine: a tree plus the recorder that narrates it.
type BPlusTree struct {
	tree  *bptree.Tree
	rec   *command.Recorder
	log   zerolog.Logger
	stats Stats
}

// Option configures a BPlusTree.
type Option func(*BPlusTree)

// WithRecording turns command recording on or off. Recording is on by default.
func WithRecording(enabled bool) Option {
	return func(b *BPlusTree) {
		b.rec.SetEnabled(enabled)
	}
}

// WithLogger sets the logger used for structural debug events.
func WithLogger(log zerolog.Logger) Option {
	return func(b *BPlusTree) {
		b.log = log
	}
}

// New creates an empty engine for a tree of the given order.
func New(order int, opts ...Option) (*BPlusTree, error) {
	tree, err := bptree.New(order)
	if err != nil {
		return nil, err
	}
	b := &BPlusTree{
		tree: tree,
		rec:  command.NewRecorder(true),
		log:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Tree exposes the underlying tree for read-only inspection.
func (b *BPlusTree) Tree() *bptree.Tree {
	return b.tree
}

// Order returns the tree order.
func (b *BPlusTree) Order() int {
	return b.tree.Order()
}

// Recording reports whether commands are recorded.
func (b *BPlusTree) Recording() bool {
	return b.rec.Enabled()
}

// SetRecording turns command recording on or off.
func (b *BPlusTree) SetRecording(enabled bool) {
	b.rec.SetEnabled(enabled)
}

// LastStats returns the statistics of the last successful mutation.
func (b *BPlusTree) LastStats() Stats {
	return b.stats
}

// Find reports whether key is stored. It never records commands.
func (b *BPlusTree) Find(key int) bool {
	return b.tree.Contains(key)
}

// GetAllKeys returns every key in ascending order.
func (b *BPlusTree) GetAllKeys() []int {
	return b.tree.Keys()
}

// GetAllNodes returns a pre-order snapshot of every node.
func (b *BPlusTree) GetAllNodes() []bptree.NodeInfo {
	return b.tree.Nodes()
}

// Clear empties the tree. The returned commands delete every node from a
// projection that followed the tree so far.
func (b *BPlusTree) Clear() []command.Command {
	b.rec.Discard()
	for _, n := range b.tree.Nodes() {
		b.rec.Emit(command.DeleteNode{ID: n.ID})
	}
	b.tree.Clear()
	b.stats = Stats{Operation: "clear"}
	b.rec.Emit(command.SetMessage{Text: "Tree cleared"})
	b.rec.Step()
	return b.finish(time.Now())
}

// InsertElement inserts key and returns the commands describing the
// insertion. A duplicate key returns bptree.ErrDuplicateKey without touching
// the tree or recording anything.
func (b *BPlusTree) InsertElement(key int) ([]command.Command, error) {
	if b.tree.Contains(key) {
		return nil, errors.Wrapf(bptree.ErrDuplicateKey, "insert %d", key)
	}
	start := time.Now()
	b.rec.Discard()
	b.stats = Stats{Operation: "insert", Key: key}

	b.message(fmt.Sprintf("Inserting %d", key))
	b.rec.Step()

	if !b.tree.HasRoot() {
		root := b.tree.Bootstrap()
		if _, err := b.tree.InsertIntoLeaf(root, key); err != nil {
			return nil, err
		}
		b.emitCreate(b.tree.Node(root), b.positions())
		b.rec.Step()
	} else {
		path := b.tree.FindPath(key)
		b.traverse(path)

		leaf := path[len(path)-1]
		idx, err := b.tree.InsertIntoLeaf(leaf, key)
		if err != nil {
			return nil, err
		}
		b.rewriteFrom(b.tree.Node(leaf), idx)
		b.highlight(leaf, false)
		b.rec.Step()

		for id := leaf; b.tree.Overflows(id); {
			id = b.split(id)
		}
	}

	b.rec.Emit(command.ResizeLayout{Positions: b.layoutList()})
	b.message("")
	b.rec.Step()
	return b.finish(start), nil
}

// DeleteElement removes key and returns the commands describing the
// deletion. Deleting from a tree without root returns bptree.ErrEmptyTree and
// deleting an absent key returns bptree.ErrKeyNotFound; neither touches the
// tree or records anything.
func (b *BPlusTree) DeleteElement(key int) ([]command.Command, error) {
	if !b.tree.HasRoot() {
		return nil, errors.Wrapf(bptree.ErrEmptyTree, "delete %d", key)
	}
	if !b.tree.Contains(key) {
		return nil, errors.Wrapf(bptree.ErrKeyNotFound, "delete %d", key)
	}
	start := time.Now()
	b.rec.Discard()
	b.stats = Stats{Operation: "delete", Key: key}

	b.message(fmt.Sprintf("Deleting %d", key))
	b.rec.Step()

	path := b.tree.FindPath(key)
	b.traverse(path)

	leaf := path[len(path)-1]
	idx, err := b.tree.RemoveFromLeaf(leaf, key)
	if err != nil {
		return nil, err
	}
	n := b.tree.Node(leaf)
	b.rewriteFrom(n, idx)
	b.highlight(leaf, false)
	b.rec.Step()

	if idx == 0 && len(n.Keys) > 0 && leaf != b.tree.Root() {
		b.fixSeparator(key, n.Keys[0])
	}

	b.repair(leaf)

	if res, ok := b.tree.CollapseRoot(); ok {
		b.stats.Collapses++
		b.message("Root has no keys left, its only child becomes the root")
		b.rec.Emit(
			command.Disconnect{From: res.OldRootGraphicID, To: b.tree.Node(res.NewRoot).GraphicID},
			command.DeleteNode{ID: res.OldRootGraphicID},
			command.ResizeLayout{Positions: b.layoutList()},
		)
		b.rec.Step()
		b.log.Debug().Int("key", key).Str("root", b.tree.Node(res.NewRoot).GraphicID).Msg("root collapsed")
	}

	// An emptied leaf could not supply a replacement above, so a separator
	// may still name the deleted key.
	if id, i, ok := b.tree.FindSeparator(key); ok {
		if first, ok := b.tree.MinKey(b.tree.Node(id).Children[i+1]); ok {
			b.replaceSeparator(id, i, first)
		}
	}

	b.rec.Emit(command.ResizeLayout{Positions: b.layoutList()})
	b.message("")
	b.rec.Step()
	return b.finish(start), nil
}

func (b *BPlusTree) finish(start time.Time) []command.Command {
	cmds := b.rec.Take()
	b.stats.Commands = len(cmds)
	b.stats.Duration = time.Since(start)
	return cmds
}

// =============================================================================
// Repair steps
// =============================================================================

// split splits an overflowing node and returns its parent.
func (b *BPlusTree) split(id bptree.NodeID) bptree.NodeID {
	gid := b.tree.Node(id).GraphicID
	b.highlight(id, true)
	b.message(fmt.Sprintf("Node %s has too many keys, splitting", gid))
	b.rec.Step()

	res := b.tree.Split(id)
	left, right, parent := b.tree.Node(res.Left), b.tree.Node(res.Right), b.tree.Node(res.Parent)
	pos := b.positions()

	b.emitCreate(right, pos)
	b.rec.Emit(command.SetElementCount{ID: left.GraphicID, Count: len(left.Keys)})
	if left.Leaf {
		if res.OldNext != bptree.Nil {
			next := b.tree.Node(res.OldNext).GraphicID
			b.rec.Emit(command.Disconnect{From: left.GraphicID, To: next})
			b.connectNext(right.GraphicID, next)
		}
		b.connectNext(left.GraphicID, right.GraphicID)
	} else {
		for _, c := range res.Moved {
			child := b.tree.Node(c).GraphicID
			b.rec.Emit(command.Disconnect{From: left.GraphicID, To: child})
			b.connectChild(right.GraphicID, child)
		}
	}

	if res.NewRoot {
		b.emitCreate(parent, pos)
		b.connectChild(parent.GraphicID, left.GraphicID)
		b.stats.RootSplits++
	} else {
		b.rewriteFrom(parent, res.SeparatorIndex)
	}
	b.connectChild(parent.GraphicID, right.GraphicID)

	b.highlight(id, false)
	b.rec.Emit(command.ResizeLayout{Positions: b.layoutList()})
	b.rec.Step()

	b.stats.Splits++
	b.log.Debug().
		Str("node", left.GraphicID).
		Str("sibling", right.GraphicID).
		Int("promoted", res.Promoted).
		Bool("new_root", res.NewRoot).
		Msg("split")
	return res.Parent
}

// repair fixes underflow from id upward.
func (b *BPlusTree) repair(id bptree.NodeID) {
	for b.tree.Underflows(id) {
		left, right, _ := b.tree.Siblings(id)
		parent := b.tree.Node(id).Parent

		switch {
		case right != bptree.Nil && b.tree.HasSurplus(right):
			b.borrow(id, right, true)
			b.stats.BorrowsRight++
			return
		case left != bptree.Nil && b.tree.HasSurplus(left):
			b.borrow(id, left, false)
			b.stats.BorrowsLeft++
			return
		case right != bptree.Nil:
			b.merge(id, right)
		default:
			b.merge(left, id)
		}
		id = parent
	}
}

func (b *BPlusTree) borrow(id, sibling bptree.NodeID, fromRight bool) {
	b.highlight(id, true)
	b.highlight(sibling, true)
	b.message(fmt.Sprintf("Node %s has too few keys, borrowing from %s",
		b.tree.Node(id).GraphicID, b.tree.Node(sibling).GraphicID))
	b.rec.Step()

	var res bptree.BorrowResult
	if fromRight {
		res = b.tree.BorrowFromRight(id)
	} else {
		res = b.tree.BorrowFromLeft(id)
	}
	n, sib, parent := b.tree.Node(res.Node), b.tree.Node(res.Sibling), b.tree.Node(res.Parent)

	// The node gained a key at one end and the sibling lost one at the other.
	if fromRight {
		b.rewriteFrom(n, len(n.Keys)-1)
		b.rewriteFrom(sib, 0)
	} else {
		b.rewriteFrom(n, 0)
		b.rewriteFrom(sib, len(sib.Keys))
	}
	b.rec.Emit(command.SetText{ID: parent.GraphicID, Index: res.SeparatorIndex, Text: keyText(res.Separator)})
	if res.Child != bptree.Nil {
		child := b.tree.Node(res.Child).GraphicID
		b.rec.Emit(command.Disconnect{From: sib.GraphicID, To: child})
		b.connectChild(n.GraphicID, child)
	}

	b.highlight(id, false)
	b.highlight(sibling, false)
	b.rec.Emit(command.ResizeLayout{Positions: b.layoutList()})
	b.rec.Step()

	b.log.Debug().Str("node", n.GraphicID).Str("sibling", sib.GraphicID).Int("key", res.Key).Msg("borrow")
}

// merge folds right into left.
func (b *BPlusTree) merge(left, right bptree.NodeID) {
	l, r := b.tree.Node(left), b.tree.Node(right)
	absorbed := r.GraphicID
	b.highlight(left, true)
	b.highlight(right, true)
	b.message(fmt.Sprintf("Merging %s into %s", absorbed, l.GraphicID))
	b.rec.Step()

	before := len(l.Keys)
	res := b.tree.MergeWithRight(left)
	parent := b.tree.Node(res.Parent)

	b.rewriteFrom(l, before)
	if l.Leaf {
		b.rec.Emit(command.Disconnect{From: l.GraphicID, To: absorbed})
		if res.Next != bptree.Nil {
			next := b.tree.Node(res.Next).GraphicID
			b.rec.Emit(command.Disconnect{From: absorbed, To: next})
			b.connectNext(l.GraphicID, next)
		}
	} else {
		for _, c := range res.Moved {
			child := b.tree.Node(c).GraphicID
			b.rec.Emit(command.Disconnect{From: absorbed, To: child})
			b.connectChild(l.GraphicID, child)
		}
	}
	b.rec.Emit(
		command.Disconnect{From: parent.GraphicID, To: absorbed},
		command.DeleteNode{ID: absorbed},
	)
	b.rewriteFrom(parent, res.SeparatorIndex)

	b.highlight(left, false)
	b.rec.Emit(command.ResizeLayout{Positions: b.layoutList()})
	b.rec.Step()

	b.stats.Merges++
	b.log.Debug().Str("node", l.GraphicID).Str("absorbed", absorbed).Int("separator", res.Separator).Msg("merge")
}

// fixSeparator replaces the separator equal to deleted with replacement.
func (b *BPlusTree) fixSeparator(deleted, replacement int) {
	if id, i, ok := b.tree.FindSeparator(deleted); ok {
		b.replaceSeparator(id, i, replacement)
	}
}

func (b *BPlusTree) replaceSeparator(id bptree.NodeID, index, key int) {
	b.tree.ReplaceSeparator(id, index, key)
	gid := b.tree.Node(id).GraphicID
	b.highlight(id, true)
	b.message(fmt.Sprintf("Updating separator in %s to %d", gid, key))
	b.rec.Emit(command.SetText{ID: gid, Index: index, Text: keyText(key)})
	b.rec.Step()
	b.highlight(id, false)
	b.stats.SeparatorFixes++
}
