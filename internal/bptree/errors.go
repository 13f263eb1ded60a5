package bptree

import "github.com/cockroachdb/errors"

// Recoverable outcomes of a tree operation. None of them mutate the tree.
var (
	// ErrDuplicateKey is returned when inserting a key that is already stored.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrKeyNotFound is returned when deleting a key that is not stored.
	ErrKeyNotFound = errors.New("key not found")

	// ErrEmptyTree is returned when deleting from a tree that has no root.
	ErrEmptyTree = errors.New("tree is empty")

	// ErrInvalidOrder is returned by New for orders below MinOrder.
	ErrInvalidOrder = errors.New("invalid tree order")
)
