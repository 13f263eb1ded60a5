// Package bptree - Arena component
//
// EDUCATIONAL NOTES:
// ------------------
// A B+ tree is full of back references: every node points to its parent,
// every leaf points to the next leaf, and internal nodes point to their
// children. Wiring those up with raw pointers creates cycles that are easy to
// get wrong when nodes are split or merged.
//
// Instead, nodes live in an arena and refer to each other by integer handle
// (NodeID). This is the same trick a database pager uses with page numbers:
// 1. Allocating a node hands out the next free handle
// 2. Freeing a node puts its handle on a free list for reuse
// 3. Dereferencing a handle is a slice index, not a pointer chase
//
// A handle is only meaningful for the arena that issued it.

package bptree

import "fmt"

// NodeID is a handle to a node stored in an Arena.
type NodeID int32

// Nil is the handle of "no node": an absent parent, next leaf or root.
const Nil NodeID = -1

// String implements fmt.Stringer.
func (id NodeID) String() string {
	if id == Nil {
		return "nil"
	}
	return fmt.Sprintf("#%d", int32(id))
}

// Arena owns every node of one tree.
type Arena struct {
	// slots holds live nodes; freed slots are nil.
	slots []*Node

	// free is a stack of reusable handles.
	free []NodeID

	live int
}

// Alloc creates a node and returns its handle. Freed handles are reused
// before the arena grows.
func (a *Arena) Alloc(leaf bool, level int) NodeID {
	n := &Node{
		Leaf:   leaf,
		Level:  level,
		Next:   Nil,
		Parent: Nil,
	}

	var id NodeID
	if k := len(a.free); k > 0 {
		id = a.free[k-1]
		a.free = a.free[:k-1]
		a.slots[id] = n
	} else {
		id = NodeID(len(a.slots))
		a.slots = append(a.slots, n)
	}
	n.ID = id
	a.live++
	return id
}

// Free releases a node. Freeing Nil or an already freed handle is a bug in the
// caller and panics.
func (a *Arena) Free(id NodeID) {
	if !a.valid(id) {
		panic(fmt.Sprintf("bptree: free of invalid node %s", id))
	}
	a.slots[id] = nil
	a.free = append(a.free, id)
	a.live--
}

// Get dereferences a handle. It returns nil for Nil and for freed handles.
func (a *Arena) Get(id NodeID) *Node {
	if !a.valid(id) {
		return nil
	}
	return a.slots[id]
}

// Live reports the number of allocated nodes.
func (a *Arena) Live() int {
	return a.live
}

// Reset drops every node.
func (a *Arena) Reset() {
	a.slots = nil
	a.free = nil
	a.live = 0
}

func (a *Arena) valid(id NodeID) bool {
	return id >= 0 && int(id) < len(a.slots) && a.slots[id] != nil
}
