package web

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/cabewaldrop/bplusviz/internal/bptree"
	"github.com/cabewaldrop/bplusviz/internal/replay"
	"github.com/cabewaldrop/bplusviz/internal/script"
	"github.com/cabewaldrop/bplusviz/internal/session"
	"github.com/cockroachdb/errors"
)

func TestGetErrorHint(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{"duplicate", errors.Wrap(bptree.ErrDuplicateKey, "insert 5"), "unique"},
		{"not found", errors.Wrap(bptree.ErrKeyNotFound, "delete 5"), "FIND"},
		{"empty", errors.Wrap(bptree.ErrEmptyTree, "delete 5"), "empty"},
		{"order", errors.Wrap(bptree.ErrInvalidOrder, "order 2"), "between 3 and 32"},
		{"syntax", errors.Wrap(script.ErrSyntax, "line 1"), "INSERT"},
		{"session", errors.Wrap(session.ErrSessionNotFound, "abc"), "GET /api/trees"},
		{"entry", errors.Wrap(ErrEntryNotFound, "entry 9"), "most recent"},
		{"step", errors.Wrap(replay.ErrStepOutOfRange, "99"), "Steps run"},
		{"timeout", errors.Wrap(context.DeadlineExceeded, "script"), "timed out"},
		{"other", errors.New("disk on fire"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hint := GetErrorHint(tt.err)
			if tt.contains == "" {
				if hint != "" {
					t.Errorf("expected empty hint, got %q", hint)
				}
				return
			}
			if !strings.Contains(hint, tt.contains) {
				t.Errorf("expected hint to contain %q, got %q", tt.contains, hint)
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{errors.Wrap(session.ErrSessionNotFound, "x"), http.StatusNotFound},
		{errors.Wrap(bptree.ErrKeyNotFound, "x"), http.StatusNotFound},
		{errors.Wrap(ErrEntryNotFound, "x"), http.StatusNotFound},
		{errors.Wrap(bptree.ErrEmptyTree, "x"), http.StatusNotFound},
		{errors.Wrap(bptree.ErrDuplicateKey, "x"), http.StatusConflict},
		{errors.Wrap(bptree.ErrInvalidOrder, "x"), http.StatusBadRequest},
		{errors.Wrap(script.ErrSyntax, "x"), http.StatusBadRequest},
		{errors.Wrap(ErrInvalidInput, "x"), http.StatusBadRequest},
		{errors.Wrap(replay.ErrStepOutOfRange, "x"), http.StatusBadRequest},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.status {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.status)
		}
	}
}
