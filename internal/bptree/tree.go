package bptree

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// MinOrder is the smallest supported order. An order-2 tree would allow
// single-key nodes that can never split into two valid halves.
const MinOrder = 3

// Tree is an in-memory B+ tree of int keys.
//
// Tree is not safe for concurrent use. It has a single writer; callers that
// share a tree across goroutines must serialize access themselves.
type Tree struct {
	arena Arena
	root  NodeID
	order int

	// graphicSeq numbers GraphicIDs. It only moves forward until Clear.
	graphicSeq int
}

// New creates an empty tree of the given order (maximum children per node).
func New(order int) (*Tree, error) {
	if order < MinOrder {
		return nil, errors.Wrapf(ErrInvalidOrder, "order %d is below the minimum of %d", order, MinOrder)
	}
	return &Tree{root: Nil, order: order}, nil
}

// Order returns the maximum number of children per node.
func (t *Tree) Order() int {
	return t.order
}

// MaxKeys returns the maximum number of keys per node.
func (t *Tree) MaxKeys() int {
	return t.order - 1
}

// MinKeys returns the fewest keys a non-root node may hold.
//
// Leaves need ceil((M-1)/2) keys. Internal nodes need ceil(M/2)-1, which is
// the same number for odd orders. For even orders an internal split of M keys
// pushes one key up and can only leave ceil(M/2)-1 keys on the right.
func (t *Tree) MinKeys(id NodeID) int {
	if t.mustGet(id).Leaf {
		return t.order / 2
	}
	return (t.order+1)/2 - 1
}

// Root returns the root handle, or Nil when the tree has no root.
func (t *Tree) Root() NodeID {
	return t.root
}

// HasRoot reports whether a root node exists. A tree whose last key was
// deleted still has an empty leaf root; only a new or cleared tree has none.
func (t *Tree) HasRoot() bool {
	return t.root != Nil
}

// Node dereferences a handle. It returns nil for Nil or freed handles.
func (t *Tree) Node(id NodeID) *Node {
	return t.arena.Get(id)
}

// NodeCount returns the number of live nodes.
func (t *Tree) NodeCount() int {
	return t.arena.Live()
}

// Height returns the number of levels, 0 for a tree without root.
func (t *Tree) Height() int {
	if t.root == Nil {
		return 0
	}
	return t.mustGet(t.root).Level + 1
}

// Clear drops every node. The root becomes absent and graphic ids restart.
func (t *Tree) Clear() {
	t.arena.Reset()
	t.root = Nil
	t.graphicSeq = 0
}

func (t *Tree) mustGet(id NodeID) *Node {
	n := t.arena.Get(id)
	if n == nil {
		panic(errors.AssertionFailedf("bptree: dangling node handle %s", id))
	}
	return n
}

func (t *Tree) newNode(leaf bool, level int) *Node {
	n := t.arena.Get(t.arena.Alloc(leaf, level))
	n.GraphicID = fmt.Sprintf("n%d", t.graphicSeq)
	t.graphicSeq++
	return n
}

// =============================================================================
// Read operations
// =============================================================================

// FindPath returns the handles from the root down to the leaf that owns key.
// It returns nil when the tree has no root.
//
// EDUCATIONAL NOTE:
// -----------------
// At each internal node we pick the first separator greater than the key.
// A key equal to a separator therefore goes to the right child, which is
// where the leaf copy of that separator lives.
func (t *Tree) FindPath(key int) []NodeID {
	if t.root == Nil {
		return nil
	}
	path := make([]NodeID, 0, t.Height())
	id := t.root
	for {
		path = append(path, id)
		n := t.mustGet(id)
		if n.Leaf {
			return path
		}
		id = n.Children[n.childIndex(key)]
	}
}

// Contains reports whether key is stored. It never mutates the tree.
func (t *Tree) Contains(key int) bool {
	path := t.FindPath(key)
	if len(path) == 0 {
		return false
	}
	return t.mustGet(path[len(path)-1]).keyIndex(key) >= 0
}

// FirstLeaf returns the leftmost leaf, or Nil.
func (t *Tree) FirstLeaf() NodeID {
	if t.root == Nil {
		return Nil
	}
	id := t.root
	for {
		n := t.mustGet(id)
		if n.Leaf {
			return id
		}
		id = n.Children[0]
	}
}

// Keys returns every key in ascending order by walking the leaf chain.
func (t *Tree) Keys() []int {
	keys := make([]int, 0)
	for id := t.FirstLeaf(); id != Nil; {
		n := t.mustGet(id)
		keys = append(keys, n.Keys...)
		id = n.Next
	}
	return keys
}

// Len returns the number of stored keys.
func (t *Tree) Len() int {
	count := 0
	for id := t.FirstLeaf(); id != Nil; {
		n := t.mustGet(id)
		count += len(n.Keys)
		id = n.Next
	}
	return count
}

// MinKey returns the smallest key in the subtree rooted at id. ok is false
// when the subtree's leftmost leaf is empty.
func (t *Tree) MinKey(id NodeID) (key int, ok bool) {
	n := t.mustGet(id)
	for !n.Leaf {
		n = t.mustGet(n.Children[0])
	}
	if len(n.Keys) == 0 {
		return 0, false
	}
	return n.Keys[0], true
}

// NodeInfo is a read-only snapshot of one node, keyed by graphic id.
type NodeInfo struct {
	ID       string   `json:"id"`
	Leaf     bool     `json:"leaf"`
	Level    int      `json:"level"`
	Keys     []int    `json:"keys"`
	Children []string `json:"children,omitempty"`
	Next     string   `json:"next,omitempty"`
	Parent   string   `json:"parent,omitempty"`
}

// String renders the node as "n2[20,40]" for internal nodes and
// "n0{10,15}" for leaves.
func (n NodeInfo) String() string {
	keys := make([]string, len(n.Keys))
	for i, k := range n.Keys {
		keys[i] = strconv.Itoa(k)
	}
	lb, rb := "[", "]"
	if n.Leaf {
		lb, rb = "{", "}"
	}
	return n.ID + lb + strings.Join(keys, ",") + rb
}

// Nodes returns a snapshot of every node in pre-order (root first, then each
// child subtree left to right).
func (t *Tree) Nodes() []NodeInfo {
	infos := make([]NodeInfo, 0, t.arena.Live())
	if t.root == Nil {
		return infos
	}

	var walk func(id NodeID)
	walk = func(id NodeID) {
		n := t.mustGet(id)
		info := NodeInfo{
			ID:    n.GraphicID,
			Leaf:  n.Leaf,
			Level: n.Level,
			Keys:  append([]int{}, n.Keys...),
		}
		if n.Next != Nil {
			info.Next = t.mustGet(n.Next).GraphicID
		}
		if n.Parent != Nil {
			info.Parent = t.mustGet(n.Parent).GraphicID
		}
		for _, c := range n.Children {
			info.Children = append(info.Children, t.mustGet(c).GraphicID)
		}
		infos = append(infos, info)
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(t.root)
	return infos
}

// =============================================================================
// Structural primitives
//
// Each primitive performs exactly one structural step and reports what it
// touched, so a caller can describe the step while it happens.
// =============================================================================

// Bootstrap creates the root leaf of a tree that has none.
func (t *Tree) Bootstrap() NodeID {
	if t.root != Nil {
		panic(errors.AssertionFailedf("bptree: bootstrap of a tree that already has a root"))
	}
	t.root = t.newNode(true, 0).ID
	return t.root
}

// InsertIntoLeaf inserts key into leaf in sorted position and returns that
// position. The leaf may overflow; repairing it is the caller's job.
func (t *Tree) InsertIntoLeaf(leaf NodeID, key int) (int, error) {
	n := t.mustGet(leaf)
	i := sort.SearchInts(n.Keys, key)
	if i < len(n.Keys) && n.Keys[i] == key {
		return -1, errors.Wrapf(ErrDuplicateKey, "key %d", key)
	}
	n.Keys = insertInt(n.Keys, i, key)
	return i, nil
}

// RemoveFromLeaf removes key from leaf and returns the position it held.
func (t *Tree) RemoveFromLeaf(leaf NodeID, key int) (int, error) {
	n := t.mustGet(leaf)
	i := n.keyIndex(key)
	if i < 0 {
		return -1, errors.Wrapf(ErrKeyNotFound, "key %d", key)
	}
	n.Keys = removeInt(n.Keys, i)
	return i, nil
}

// Overflows reports whether the node holds more than MaxKeys keys.
func (t *Tree) Overflows(id NodeID) bool {
	return t.mustGet(id).NumKeys() > t.MaxKeys()
}

// Underflows reports whether a non-root node holds fewer than MinKeys keys.
func (t *Tree) Underflows(id NodeID) bool {
	return id != t.root && t.mustGet(id).NumKeys() < t.MinKeys(id)
}

// HasSurplus reports whether the node can give a key away and stay valid.
func (t *Tree) HasSurplus(id NodeID) bool {
	return t.mustGet(id).NumKeys() > t.MinKeys(id)
}

// Siblings returns the left and right siblings of id (Nil when absent) and
// the position of id among its parent's children.
func (t *Tree) Siblings(id NodeID) (left, right NodeID, pos int) {
	n := t.mustGet(id)
	if n.Parent == Nil {
		return Nil, Nil, -1
	}
	p := t.mustGet(n.Parent)
	pos = p.positionOf(id)
	left, right = Nil, Nil
	if pos > 0 {
		left = p.Children[pos-1]
	}
	if pos+1 < len(p.Children) {
		right = p.Children[pos+1]
	}
	return left, right, pos
}

// SplitResult describes one split.
type SplitResult struct {
	Left, Right, Parent NodeID

	// Promoted is the key inserted into Parent at SeparatorIndex.
	Promoted       int
	SeparatorIndex int

	// NewRoot is set when Left was the root and Parent was created.
	NewRoot bool

	// Moved lists the children handed from Left to Right (internal splits).
	Moved []NodeID

	// OldNext is Left's successor in the leaf chain before the split.
	OldNext NodeID
}

// Split splits an overflowing node at index floor(n/2).
//
// EDUCATIONAL NOTE:
// -----------------
// Leaves and internal nodes split differently:
//   - Leaf: the right half keeps the middle key and a COPY of it goes up,
//     because every key must stay in the leaf layer.
//   - Internal: the middle key MOVES up and belongs to neither half.
//
// If the node was the root, a new root with a single key is created and the
// tree grows by one level. This is the only way a B+ tree gets taller.
func (t *Tree) Split(id NodeID) SplitResult {
	n := t.mustGet(id)
	mid := len(n.Keys) / 2
	right := t.newNode(n.Leaf, n.Level)
	res := SplitResult{Left: id, Right: right.ID, OldNext: Nil}

	if n.Leaf {
		right.Keys = append([]int(nil), n.Keys[mid:]...)
		n.Keys = n.Keys[:mid]
		res.Promoted = right.Keys[0]

		res.OldNext = n.Next
		right.Next = n.Next
		n.Next = right.ID
	} else {
		res.Promoted = n.Keys[mid]
		right.Keys = append([]int(nil), n.Keys[mid+1:]...)
		right.Children = append([]NodeID(nil), n.Children[mid+1:]...)
		n.Keys = n.Keys[:mid]
		n.Children = n.Children[:mid+1]
		for _, c := range right.Children {
			t.mustGet(c).Parent = right.ID
		}
		res.Moved = append([]NodeID(nil), right.Children...)
	}

	if n.Parent == Nil {
		root := t.newNode(false, n.Level+1)
		root.Keys = []int{res.Promoted}
		root.Children = []NodeID{id, right.ID}
		n.Parent = root.ID
		right.Parent = root.ID
		t.root = root.ID

		res.Parent = root.ID
		res.NewRoot = true
		return res
	}

	p := t.mustGet(n.Parent)
	pos := p.positionOf(id)
	p.Keys = insertInt(p.Keys, pos, res.Promoted)
	p.Children = insertID(p.Children, pos+1, right.ID)
	right.Parent = p.ID

	res.Parent = p.ID
	res.SeparatorIndex = pos
	return res
}

// BorrowResult describes one key moving from a sibling into an underflowing
// node through their parent.
type BorrowResult struct {
	Node, Sibling, Parent NodeID

	// SeparatorIndex is the parent key between Node and Sibling; Separator is
	// its value after the borrow.
	SeparatorIndex int
	Separator      int

	// Key is the key that entered Node.
	Key int

	// Child is the child handed from Sibling to Node (internal nodes), or Nil.
	Child NodeID
}

// BorrowFromRight moves the right sibling's first key into id.
func (t *Tree) BorrowFromRight(id NodeID) BorrowResult {
	n := t.mustGet(id)
	p := t.mustGet(n.Parent)
	pos := p.positionOf(id)
	r := t.mustGet(p.Children[pos+1])
	res := BorrowResult{Node: id, Sibling: r.ID, Parent: p.ID, SeparatorIndex: pos, Child: Nil}

	if n.Leaf {
		res.Key = r.Keys[0]
		r.Keys = removeInt(r.Keys, 0)
		n.Keys = append(n.Keys, res.Key)
		p.Keys[pos] = r.Keys[0]
	} else {
		// The separator rotates down and the sibling's first key rotates up.
		res.Key = p.Keys[pos]
		res.Child = r.Children[0]
		n.Keys = append(n.Keys, p.Keys[pos])
		n.Children = append(n.Children, res.Child)
		t.mustGet(res.Child).Parent = id
		p.Keys[pos] = r.Keys[0]
		r.Keys = removeInt(r.Keys, 0)
		r.Children = removeID(r.Children, 0)
	}
	res.Separator = p.Keys[pos]
	return res
}

// BorrowFromLeft moves the left sibling's last key into id.
func (t *Tree) BorrowFromLeft(id NodeID) BorrowResult {
	n := t.mustGet(id)
	p := t.mustGet(n.Parent)
	pos := p.positionOf(id)
	l := t.mustGet(p.Children[pos-1])
	res := BorrowResult{Node: id, Sibling: l.ID, Parent: p.ID, SeparatorIndex: pos - 1, Child: Nil}

	if n.Leaf {
		last := len(l.Keys) - 1
		res.Key = l.Keys[last]
		l.Keys = l.Keys[:last]
		n.Keys = insertInt(n.Keys, 0, res.Key)
		p.Keys[pos-1] = res.Key
	} else {
		lastKey, lastChild := len(l.Keys)-1, len(l.Children)-1
		res.Key = p.Keys[pos-1]
		res.Child = l.Children[lastChild]
		n.Keys = insertInt(n.Keys, 0, p.Keys[pos-1])
		n.Children = insertID(n.Children, 0, res.Child)
		t.mustGet(res.Child).Parent = id
		p.Keys[pos-1] = l.Keys[lastKey]
		l.Keys = l.Keys[:lastKey]
		l.Children = l.Children[:lastChild]
	}
	res.Separator = p.Keys[pos-1]
	return res
}

// MergeResult describes two siblings becoming one node.
type MergeResult struct {
	Survivor, Absorbed, Parent NodeID

	// AbsorbedGraphicID is kept because Absorbed is freed by the merge.
	AbsorbedGraphicID string

	// SeparatorIndex and Separator identify the parent key that was removed.
	SeparatorIndex int
	Separator      int

	// Moved lists the children handed from Absorbed to Survivor.
	Moved []NodeID

	// Next is Absorbed's successor in the leaf chain, now Survivor's.
	Next NodeID
}

// MergeWithRight folds the right sibling of id into id and frees it. The
// parent loses one separator and one child and may underflow in turn.
//
// EDUCATIONAL NOTE:
// -----------------
// For internal nodes the separator comes down between the two halves, since
// it is the only key that correctly divides the left children from the right
// ones. Leaves drop it: their keys already contain its copy.
func (t *Tree) MergeWithRight(id NodeID) MergeResult {
	l := t.mustGet(id)
	p := t.mustGet(l.Parent)
	pos := p.positionOf(id)
	r := t.mustGet(p.Children[pos+1])
	res := MergeResult{
		Survivor:          id,
		Absorbed:          r.ID,
		Parent:            p.ID,
		AbsorbedGraphicID: r.GraphicID,
		SeparatorIndex:    pos,
		Separator:         p.Keys[pos],
		Next:              Nil,
	}

	if l.Leaf {
		l.Keys = append(l.Keys, r.Keys...)
		l.Next = r.Next
		res.Next = r.Next
	} else {
		l.Keys = append(l.Keys, p.Keys[pos])
		l.Keys = append(l.Keys, r.Keys...)
		for _, c := range r.Children {
			t.mustGet(c).Parent = id
		}
		l.Children = append(l.Children, r.Children...)
		res.Moved = append([]NodeID(nil), r.Children...)
	}

	p.Keys = removeInt(p.Keys, pos)
	p.Children = removeID(p.Children, pos+1)
	t.arena.Free(r.ID)
	return res
}

// CollapseResult describes the root being replaced by its only child.
type CollapseResult struct {
	OldRoot, NewRoot NodeID
	OldRootGraphicID string
}

// CollapseRoot replaces an internal root that has no keys left with its only
// child. The tree shrinks by one level. ok is false when nothing collapsed.
func (t *Tree) CollapseRoot() (res CollapseResult, ok bool) {
	if t.root == Nil {
		return res, false
	}
	root := t.mustGet(t.root)
	if root.Leaf || len(root.Keys) > 0 {
		return res, false
	}
	child := t.mustGet(root.Children[0])
	child.Parent = Nil
	res = CollapseResult{OldRoot: root.ID, NewRoot: child.ID, OldRootGraphicID: root.GraphicID}
	t.arena.Free(root.ID)
	t.root = child.ID
	return res, true
}

// FindSeparator returns the internal node on key's search path that holds key
// as a separator, and its index there.
func (t *Tree) FindSeparator(key int) (id NodeID, index int, ok bool) {
	for _, h := range t.FindPath(key) {
		n := t.mustGet(h)
		if n.Leaf {
			break
		}
		if i := n.keyIndex(key); i >= 0 {
			return h, i, true
		}
	}
	return Nil, -1, false
}

// ReplaceSeparator overwrites the separator at index of internal node id.
func (t *Tree) ReplaceSeparator(id NodeID, index, key int) {
	n := t.mustGet(id)
	if n.Leaf {
		panic(errors.AssertionFailedf("bptree: separator update on leaf %s", n.GraphicID))
	}
	n.Keys[index] = key
}
