package bptree

import (
	"strconv"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

// insertKey inserts key and splits upward until nothing overflows.
func insertKey(t *testing.T, tr *Tree, key int) {
	t.Helper()
	if !tr.HasRoot() {
		tr.Bootstrap()
	}
	path := tr.FindPath(key)
	leaf := path[len(path)-1]
	if _, err := tr.InsertIntoLeaf(leaf, key); err != nil {
		t.Fatalf("InsertIntoLeaf(%d) failed: %v", key, err)
	}
	for id := leaf; tr.Overflows(id); {
		id = tr.Split(id).Parent
	}
}

func buildTree(t *testing.T, order int, keys ...int) *Tree {
	t.Helper()
	tr, err := New(order)
	require.NoError(t, err)
	for _, k := range keys {
		insertKey(t, tr, k)
	}
	require.NoError(t, tr.Check())
	return tr
}

// shape renders nodes in pre-order as "id[keys]" for compact comparisons.
func shape(tr *Tree) []string {
	var out []string
	for _, n := range tr.Nodes() {
		s := n.ID
		if n.Leaf {
			s += "{"
		} else {
			s += "["
		}
		for i, k := range n.Keys {
			if i > 0 {
				s += ","
			}
			s += strconv.Itoa(k)
		}
		if n.Leaf {
			s += "}"
		} else {
			s += "]"
		}
		out = append(out, s)
	}
	return out
}

func TestNewRejectsSmallOrders(t *testing.T) {
	for _, order := range []int{-1, 0, 1, 2} {
		_, err := New(order)
		if !errors.Is(err, ErrInvalidOrder) {
			t.Errorf("New(%d): expected ErrInvalidOrder, got %v", order, err)
		}
	}

	tr, err := New(MinOrder)
	require.NoError(t, err)
	require.False(t, tr.HasRoot())
	require.Equal(t, 0, tr.Height())
	require.Empty(t, tr.Keys())
	require.Empty(t, tr.Nodes())
	require.NoError(t, tr.Check())
}

func TestMinKeys(t *testing.T) {
	tests := []struct {
		order       int
		leafMin     int
		internalMin int
	}{
		{3, 1, 1},
		{4, 2, 1},
		{5, 2, 2},
		{6, 3, 2},
		{7, 3, 3},
	}

	for _, tt := range tests {
		keys := make([]int, tt.order)
		for i := range keys {
			keys[i] = (i + 1) * 10
		}
		tr := buildTree(t, tt.order, keys...)
		root := tr.Root()
		require.False(t, tr.Node(root).Leaf, "order %d: root should have split", tt.order)

		if got := tr.MinKeys(tr.FirstLeaf()); got != tt.leafMin {
			t.Errorf("order %d: leaf min = %d, want %d", tt.order, got, tt.leafMin)
		}
		if got := tr.MinKeys(root); got != tt.internalMin {
			t.Errorf("order %d: internal min = %d, want %d", tt.order, got, tt.internalMin)
		}
	}
}

func TestLeafSplitCopiesKeyUp(t *testing.T) {
	tr := buildTree(t, 3, 10, 20, 30)

	require.Equal(t, []string{"n2[20]", "n0{10}", "n1{20,30}"}, shape(tr))
	require.Equal(t, 2, tr.Height())

	leaf := tr.Node(tr.FirstLeaf())
	require.Equal(t, "n1", tr.Node(leaf.Next).GraphicID)
	require.Equal(t, Nil, tr.Node(leaf.Next).Next)
}

func TestInternalSplitPushesKeyUp(t *testing.T) {
	tr := buildTree(t, 3, 10, 20, 30, 40, 50)

	require.Equal(t, []string{
		"n6[30]",
		"n2[20]", "n0{10}", "n1{20}",
		"n5[40]", "n3{30}", "n4{40,50}",
	}, shape(tr))
	require.Equal(t, 3, tr.Height())
	require.Equal(t, []int{10, 20, 30, 40, 50}, tr.Keys())
	require.Equal(t, 5, tr.Len())
}

func TestSplitResult(t *testing.T) {
	tr := buildTree(t, 3, 10, 20)
	leaf := tr.Root()
	_, err := tr.InsertIntoLeaf(leaf, 30)
	require.NoError(t, err)
	require.True(t, tr.Overflows(leaf))

	res := tr.Split(leaf)
	require.True(t, res.NewRoot)
	require.Equal(t, 20, res.Promoted)
	require.Equal(t, 0, res.SeparatorIndex)
	require.Equal(t, Nil, res.OldNext)
	require.Empty(t, res.Moved)
	require.Equal(t, tr.Root(), res.Parent)
	require.NoError(t, tr.Check())
}

func TestContainsAndFindPath(t *testing.T) {
	tr := buildTree(t, 3, 10, 20, 30)

	require.True(t, tr.Contains(20))
	require.True(t, tr.Contains(10))
	require.False(t, tr.Contains(25))
	require.False(t, tr.Contains(5))

	// A key equal to a separator routes right.
	path := tr.FindPath(20)
	require.Len(t, path, 2)
	require.Equal(t, "n1", tr.Node(path[1]).GraphicID)
}

func TestDuplicateAndMissingKeys(t *testing.T) {
	tr := buildTree(t, 3, 10, 20)
	leaf := tr.Root()

	_, err := tr.InsertIntoLeaf(leaf, 10)
	require.True(t, errors.Is(err, ErrDuplicateKey), "got %v", err)

	_, err = tr.RemoveFromLeaf(leaf, 99)
	require.True(t, errors.Is(err, ErrKeyNotFound), "got %v", err)

	require.Equal(t, []int{10, 20}, tr.Keys())
}

func TestBorrowFromRightLeaf(t *testing.T) {
	tr := buildTree(t, 4, 10, 20, 30, 40, 50)
	require.Equal(t, []string{"n2[30]", "n0{10,20}", "n1{30,40,50}"}, shape(tr))

	leaf := tr.FirstLeaf()
	_, err := tr.RemoveFromLeaf(leaf, 10)
	require.NoError(t, err)
	require.True(t, tr.Underflows(leaf))

	_, right, _ := tr.Siblings(leaf)
	require.True(t, tr.HasSurplus(right))

	res := tr.BorrowFromRight(leaf)
	require.Equal(t, 30, res.Key)
	require.Equal(t, 40, res.Separator)
	require.Equal(t, 0, res.SeparatorIndex)
	require.Equal(t, Nil, res.Child)

	require.Equal(t, []string{"n2[40]", "n0{20,30}", "n1{40,50}"}, shape(tr))
	require.NoError(t, tr.Check())
}

func TestBorrowFromLeftLeaf(t *testing.T) {
	tr := buildTree(t, 4, 10, 20, 30, 40, 25)
	require.Equal(t, []string{"n2[30]", "n0{10,20,25}", "n1{30,40}"}, shape(tr))

	right := tr.Node(tr.FirstLeaf()).Next
	_, err := tr.RemoveFromLeaf(right, 40)
	require.NoError(t, err)
	require.True(t, tr.Underflows(right))

	res := tr.BorrowFromLeft(right)
	require.Equal(t, 25, res.Key)
	require.Equal(t, 25, res.Separator)
	require.Equal(t, 0, res.SeparatorIndex)

	require.Equal(t, []string{"n2[25]", "n0{10,20}", "n1{25,30}"}, shape(tr))
	require.NoError(t, tr.Check())
}

func TestMergeAndCollapseRoot(t *testing.T) {
	tr := buildTree(t, 3, 10, 20, 30)
	right := tr.Node(tr.FirstLeaf()).Next

	_, err := tr.RemoveFromLeaf(right, 30)
	require.NoError(t, err)
	require.False(t, tr.Underflows(right))

	_, err = tr.RemoveFromLeaf(right, 20)
	require.NoError(t, err)
	require.True(t, tr.Underflows(right))

	left, _, _ := tr.Siblings(right)
	require.False(t, tr.HasSurplus(left))

	res := tr.MergeWithRight(left)
	require.Equal(t, "n1", res.AbsorbedGraphicID)
	require.Equal(t, 20, res.Separator)
	require.Nil(t, tr.Node(right))

	_, ok := tr.CollapseRoot()
	require.True(t, ok)
	require.Equal(t, []string{"n0{10}"}, shape(tr))
	require.Equal(t, 1, tr.NodeCount())
	require.NoError(t, tr.Check())

	_, ok = tr.CollapseRoot()
	require.False(t, ok, "a leaf root never collapses")
}

func TestBorrowFromRightInternal(t *testing.T) {
	tr := buildTree(t, 3, 10, 20, 30, 40, 50, 60)
	require.Equal(t, []string{
		"n6[30]",
		"n2[20]", "n0{10}", "n1{20}",
		"n5[40,50]", "n3{30}", "n4{40}", "n7{50,60}",
	}, shape(tr))

	leaf := tr.FirstLeaf()
	_, err := tr.RemoveFromLeaf(leaf, 10)
	require.NoError(t, err)
	tr.MergeWithRight(leaf)

	parent := tr.Node(leaf).Parent
	require.True(t, tr.Underflows(parent))

	res := tr.BorrowFromRight(parent)
	require.Equal(t, 30, res.Key)
	require.Equal(t, 40, res.Separator)
	require.Equal(t, "n3", tr.Node(res.Child).GraphicID)

	require.Equal(t, []string{
		"n6[40]",
		"n2[30]", "n0{20}", "n3{30}",
		"n5[50]", "n4{40}", "n7{50,60}",
	}, shape(tr))
	require.NoError(t, tr.Check())
}

func TestSeparatorHelpers(t *testing.T) {
	tr := buildTree(t, 3, 10, 20, 30)

	id, idx, ok := tr.FindSeparator(20)
	require.True(t, ok)
	require.Equal(t, tr.Root(), id)
	require.Equal(t, 0, idx)

	_, _, ok = tr.FindSeparator(30)
	require.False(t, ok)

	first, ok := tr.MinKey(tr.Node(tr.Root()).Children[1])
	require.True(t, ok)
	require.Equal(t, 20, first)

	leaf := tr.FirstLeaf()
	require.Panics(t, func() { tr.ReplaceSeparator(leaf, 0, 1) })
}

func TestCheckDetectsCorruption(t *testing.T) {
	tests := []struct {
		name   string
		damage func(tr *Tree)
	}{
		{"stale separator", func(tr *Tree) {
			tr.Node(tr.Root()).Keys[0] = 25
		}},
		{"broken leaf chain", func(tr *Tree) {
			tr.Node(tr.FirstLeaf()).Next = Nil
		}},
		{"unsorted leaf", func(tr *Tree) {
			leaf := tr.Node(tr.Node(tr.FirstLeaf()).Next)
			leaf.Keys[0], leaf.Keys[1] = leaf.Keys[1], leaf.Keys[0]
		}},
		{"wrong parent", func(tr *Tree) {
			tr.Node(tr.FirstLeaf()).Parent = Nil
		}},
		{"leaked node", func(tr *Tree) {
			tr.arena.Alloc(true, 0)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := buildTree(t, 3, 10, 20, 30)
			tt.damage(tr)
			if err := tr.Check(); err == nil {
				t.Errorf("Check should fail after %s", tt.name)
			}
		})
	}
}

func TestClear(t *testing.T) {
	tr := buildTree(t, 3, 10, 20, 30, 40)
	tr.Clear()

	require.False(t, tr.HasRoot())
	require.Equal(t, 0, tr.NodeCount())
	require.Empty(t, tr.Keys())
	require.NoError(t, tr.Check())

	insertKey(t, tr, 5)
	require.Equal(t, []string{"n0{5}"}, shape(tr))
}
