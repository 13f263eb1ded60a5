// Package web - Input validation for web handlers
//
// EDUCATIONAL NOTES:
// ------------------
// Validate at the edge, before anything reaches a session:
//
// 1. Tree names are shown in pages and logs, so they are limited to a small
//    safe alphabet.
//
// 2. Orders are bounded on both sides. The lower bound is the tree's own
//    (an order 2 tree cannot split); the upper bound keeps nodes narrow
//    enough to draw.
//
// 3. Keys arrive as strings in query parameters and as numbers in JSON;
//    both paths end in the same range check.

package web

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/cabewaldrop/bplusviz/internal/bptree"
	"github.com/cockroachdb/errors"
)

// ErrInvalidInput is returned for requests that fail validation.
var ErrInvalidInput = errors.New("invalid input")

// Limits on request values.
const (
	MaxOrder     = 32
	MaxKey       = 999_999_999
	MaxScriptLen = 64 << 10
)

// namePattern matches tree names: a letter, digit or underscore followed by
// up to 63 letters, digits, underscores, dashes, dots or spaces.
var namePattern = regexp.MustCompile(`^[a-zA-Z0-9_][a-zA-Z0-9_ .-]{0,63}$`)

// IsValidName checks a tree name. The empty name is valid and means "pick one
// for me".
//
// Examples:
//
//	IsValidName("")          // true
//	IsValidName("demo tree") // true
//	IsValidName("orders-5")  // true
//	IsValidName(" lead")     // false (starts with a space)
//	IsValidName("<b>")       // false
func IsValidName(s string) bool {
	return s == "" || namePattern.MatchString(s)
}

// ValidateOrder checks that order is in [bptree.MinOrder, MaxOrder].
func ValidateOrder(order int) error {
	if order < bptree.MinOrder || order > MaxOrder {
		return errors.Wrapf(bptree.ErrInvalidOrder, "order %d is outside [%d, %d]", order, bptree.MinOrder, MaxOrder)
	}
	return nil
}

// ValidateKey checks that key is within ±MaxKey.
func ValidateKey(key int) error {
	if key < -MaxKey || key > MaxKey {
		return errors.Wrapf(ErrInvalidInput, "key %d is outside [%d, %d]", key, -MaxKey, MaxKey)
	}
	return nil
}

// ParseKey parses and validates a key from a string.
func ParseKey(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.Wrap(ErrInvalidInput, "key is required")
	}
	key, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidInput, "key %q is not an integer", s)
	}
	return key, ValidateKey(key)
}
