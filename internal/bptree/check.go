package bptree

import "github.com/cockroachdb/errors"

// Check validates every structural invariant and returns an error describing
// the first violation found:
//   - key counts within [MinKeys, MaxKeys] for non-root nodes
//   - strictly increasing keys, and keys within their separator bounds
//   - each separator equal to the smallest key of its right subtree
//   - parent handles and levels consistent, all leaves at level 0
//   - the leaf chain visiting exactly the leaves in order
//   - no live node unreachable from the root
//
// Check is O(n) and meant for tests and debugging.
func (t *Tree) Check() error {
	if t.root == Nil {
		if live := t.arena.Live(); live != 0 {
			return errors.AssertionFailedf("tree without root still owns %d nodes", live)
		}
		return nil
	}

	root := t.arena.Get(t.root)
	if root == nil {
		return errors.AssertionFailedf("root handle %s is dangling", t.root)
	}
	if root.Parent != Nil {
		return errors.AssertionFailedf("root %s has parent %s", root.GraphicID, root.Parent)
	}
	if !root.Leaf && len(root.Keys) == 0 {
		return errors.AssertionFailedf("internal root %s has no keys", root.GraphicID)
	}

	c := checker{t: t}
	if err := c.walk(t.root, Nil, root.Level, nil, nil); err != nil {
		return err
	}

	for i, id := range c.leaves {
		want := Nil
		if i+1 < len(c.leaves) {
			want = c.leaves[i+1]
		}
		if got := t.arena.Get(id).Next; got != want {
			return errors.AssertionFailedf("leaf %s links to %s, expected %s",
				t.arena.Get(id).GraphicID, got, want)
		}
	}

	if c.seen != t.arena.Live() {
		return errors.AssertionFailedf("%d live nodes but only %d reachable from the root",
			t.arena.Live(), c.seen)
	}
	return nil
}

type checker struct {
	t      *Tree
	leaves []NodeID
	seen   int
}

// walk checks the subtree at id. lo and hi bound its keys as [lo, hi); nil
// means unbounded.
func (c *checker) walk(id, parent NodeID, level int, lo, hi *int) error {
	t := c.t
	n := t.arena.Get(id)
	if n == nil {
		return errors.AssertionFailedf("dangling child handle %s", id)
	}
	c.seen++

	if n.Parent != parent {
		return errors.AssertionFailedf("node %s has parent %s, expected %s", n.GraphicID, n.Parent, parent)
	}
	if n.Level != level {
		return errors.AssertionFailedf("node %s has level %d, expected %d", n.GraphicID, n.Level, level)
	}
	if n.Leaf != (level == 0) {
		return errors.AssertionFailedf("node %s: leaf=%t at level %d", n.GraphicID, n.Leaf, level)
	}
	if len(n.Keys) > t.MaxKeys() {
		return errors.AssertionFailedf("node %s has %d keys, max %d", n.GraphicID, len(n.Keys), t.MaxKeys())
	}
	if id != t.root && len(n.Keys) < t.MinKeys(id) {
		return errors.AssertionFailedf("node %s has %d keys, min %d", n.GraphicID, len(n.Keys), t.MinKeys(id))
	}

	for i, k := range n.Keys {
		if i > 0 && n.Keys[i-1] >= k {
			return errors.AssertionFailedf("node %s keys not strictly increasing: %v", n.GraphicID, n.Keys)
		}
		if lo != nil && k < *lo {
			return errors.AssertionFailedf("node %s key %d below bound %d", n.GraphicID, k, *lo)
		}
		if hi != nil && k >= *hi {
			return errors.AssertionFailedf("node %s key %d not below bound %d", n.GraphicID, k, *hi)
		}
	}

	if n.Leaf {
		if len(n.Children) != 0 {
			return errors.AssertionFailedf("leaf %s has children", n.GraphicID)
		}
		c.leaves = append(c.leaves, id)
		return nil
	}

	if len(n.Children) != len(n.Keys)+1 {
		return errors.AssertionFailedf("node %s has %d keys and %d children",
			n.GraphicID, len(n.Keys), len(n.Children))
	}
	for i, child := range n.Children {
		clo, chi := lo, hi
		if i > 0 {
			clo = &n.Keys[i-1]
		}
		if i < len(n.Keys) {
			chi = &n.Keys[i]
		}
		if err := c.walk(child, id, level-1, clo, chi); err != nil {
			return err
		}
	}
	for i, k := range n.Keys {
		if first, ok := t.MinKey(n.Children[i+1]); ok && first != k {
			return errors.AssertionFailedf("node %s separator %d but right subtree starts at %d",
				n.GraphicID, k, first)
		}
	}
	return nil
}
