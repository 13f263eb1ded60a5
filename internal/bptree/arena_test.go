package bptree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArenaAllocAndFree(t *testing.T) {
	var a Arena

	first := a.Alloc(true, 0)
	second := a.Alloc(false, 1)
	if first == second {
		t.Fatalf("Alloc returned the same handle twice: %s", first)
	}
	if a.Live() != 2 {
		t.Errorf("Expected 2 live nodes, got %d", a.Live())
	}

	n := a.Get(second)
	if n == nil || n.Leaf || n.Level != 1 || n.Next != Nil || n.Parent != Nil {
		t.Fatalf("Unexpected node from Get: %+v", n)
	}

	a.Free(first)
	if a.Get(first) != nil {
		t.Errorf("Freed handle should dereference to nil")
	}
	if a.Live() != 1 {
		t.Errorf("Expected 1 live node after free, got %d", a.Live())
	}

	// The freed slot is reused before the arena grows.
	third := a.Alloc(true, 0)
	if third != first {
		t.Errorf("Expected freed handle %s to be reused, got %s", first, third)
	}
}

func TestArenaInvalidHandles(t *testing.T) {
	var a Arena
	require.Nil(t, a.Get(Nil))
	require.Nil(t, a.Get(NodeID(7)))
	require.Panics(t, func() { a.Free(Nil) })

	id := a.Alloc(true, 0)
	a.Free(id)
	require.Panics(t, func() { a.Free(id) })
}

func TestArenaReset(t *testing.T) {
	var a Arena
	for i := 0; i < 5; i++ {
		a.Alloc(true, 0)
	}
	a.Reset()
	require.Equal(t, 0, a.Live())
	require.Equal(t, NodeID(0), a.Alloc(true, 0))
}

func TestNodeIDString(t *testing.T) {
	require.Equal(t, "nil", Nil.String())
	require.Equal(t, "#3", NodeID(3).String())
}
