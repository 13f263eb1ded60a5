// Package bptree implements the structural core of an in-memory B+ tree.
//
// EDUCATIONAL NOTES:
// ------------------
// A B+ tree of order M keeps every key in its leaves. Internal nodes only hold
// separator keys that route a search to the right child:
//
//	          [20 | 40]
//	         /    |    \
//	    {10}  {20,30}  {40,50}
//
// Rules for order M:
// 1. A node holds at most M-1 keys (M children for internal nodes)
// 2. Every non-root node stays at least half full
// 3. All leaves sit at the same depth
// 4. Leaves are chained left to right so a full scan never touches the
//    internal levels
//
// This package exposes the tree as a set of small structural primitives
// (split one node, borrow one key, merge two siblings, collapse the root).
// The algorithm package composes them into insert and delete and records
// every step for visualization. Keeping the two apart means the tree can be
// driven with recording switched off.

package bptree

import "sort"

// Node is one B+ tree node.
//
// For leaf nodes:
//   - Keys holds the stored keys in ascending order
//   - Children is empty
//   - Next links to the leaf immediately to the right (Nil for the last leaf)
//
// For internal nodes:
//   - Keys[i] is a separator key
//   - Children[i] holds keys < Keys[i]
//   - Children[i+1] holds keys >= Keys[i], and its smallest key equals Keys[i]
//
// Nodes are owned by the tree. Callers outside this package must treat them
// as read-only.
type Node struct {
	ID NodeID

	// GraphicID is the stable identity used in recorded commands. Unlike
	// ID it is never reused while the tree lives.
	GraphicID string

	Leaf     bool
	Keys     []int
	Children []NodeID
	Next     NodeID
	Parent   NodeID

	// Level is the distance to the leaf layer (0 for leaves).
	Level int
}

// NumKeys returns the number of keys in the node.
func (n *Node) NumKeys() int {
	return len(n.Keys)
}

// childIndex returns the child to descend into for key. Keys equal to a
// separator go right.
func (n *Node) childIndex(key int) int {
	return sort.Search(len(n.Keys), func(i int) bool { return n.Keys[i] > key })
}

// keyIndex returns the position of key, or -1.
func (n *Node) keyIndex(key int) int {
	i := sort.SearchInts(n.Keys, key)
	if i < len(n.Keys) && n.Keys[i] == key {
		return i
	}
	return -1
}

// positionOf returns the index of child in Children, or -1.
func (n *Node) positionOf(child NodeID) int {
	for i, c := range n.Children {
		if c == child {
			return i
		}
	}
	return -1
}

func insertInt(s []int, i, v int) []int {
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

func removeInt(s []int, i int) []int {
	copy(s[i:], s[i+1:])
	return s[:len(s)-1]
}

func insertID(s []NodeID, i int, v NodeID) []NodeID {
	s = append(s, Nil)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

func removeID(s []NodeID, i int) []NodeID {
	copy(s[i:], s[i+1:])
	return s[:len(s)-1]
}
