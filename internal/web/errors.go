package web

import (
	"context"
	"net/http"

	"github.com/cabewaldrop/bplusviz/internal/bptree"
	"github.com/cabewaldrop/bplusviz/internal/replay"
	"github.com/cabewaldrop/bplusviz/internal/script"
	"github.com/cabewaldrop/bplusviz/internal/session"
	"github.com/cockroachdb/errors"
)

// GetErrorHint returns a helpful hint for common tree errors.
// Returns empty string if no hint is available.
func GetErrorHint(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, bptree.ErrDuplicateKey):
		return "Keys in a B+ tree are unique. Delete the key first or pick another one."
	case errors.Is(err, bptree.ErrKeyNotFound):
		return "Use FIND or KEYS to see which keys are in the tree."
	case errors.Is(err, bptree.ErrEmptyTree):
		return "The tree is empty. Insert a key before deleting."
	case errors.Is(err, bptree.ErrInvalidOrder):
		return "The order is the maximum number of children per node and must be between 3 and 32."
	case errors.Is(err, script.ErrSyntax):
		return "Statements look like: INSERT 10, 20; DELETE 10; FIND 20; KEYS; SHOW; CHECK; CLEAR;"
	case errors.Is(err, session.ErrSessionNotFound):
		return "The tree may have been deleted. GET /api/trees lists the live ones."
	case errors.Is(err, ErrEntryNotFound):
		return "Only the most recent operations are kept. GET the history to see which ones."
	case errors.Is(err, replay.ErrStepOutOfRange):
		return "Steps run from 0 to the number of steps in the loaded operation."
	case errors.Is(err, context.DeadlineExceeded):
		return "The request timed out. Try a shorter script."
	default:
		return ""
	}
}

// statusFor maps an error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, ErrEntryNotFound),
		errors.Is(err, bptree.ErrKeyNotFound),
		errors.Is(err, bptree.ErrEmptyTree):
		return http.StatusNotFound
	case errors.Is(err, bptree.ErrDuplicateKey):
		return http.StatusConflict
	case errors.Is(err, bptree.ErrInvalidOrder),
		errors.Is(err, script.ErrSyntax),
		errors.Is(err, replay.ErrStepOutOfRange),
		errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
