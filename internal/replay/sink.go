package replay

import (
	"github.com/cabewaldrop/bplusviz/internal/command"
	"github.com/cabewaldrop/bplusviz/internal/render"
)

// ProjectionSink replays onto a copy of a starting picture, so the log of a
// single operation can be played over the tree as it was before it ran.
type ProjectionSink struct {
	base *render.Projection
	cur  *render.Projection
}

// NewProjectionSink starts from base, or from an empty picture if base is nil.
// base itself is never modified.
func NewProjectionSink(base *render.Projection) *ProjectionSink {
	if base == nil {
		base = render.NewProjection()
	}
	s := &ProjectionSink{base: base.Clone()}
	s.Reset()
	return s
}

func (s *ProjectionSink) Reset() {
	s.cur = s.base.Clone()
}

func (s *ProjectionSink) Apply(c command.Command) error {
	return s.cur.Apply(c)
}

// Projection returns the current picture. The caller must not keep it across
// a Reset.
func (s *ProjectionSink) Projection() *render.Projection {
	return s.cur
}

// Rebase replaces the starting picture and resets to it.
func (s *ProjectionSink) Rebase(base *render.Projection) {
	if base == nil {
		base = render.NewProjection()
	}
	s.base = base.Clone()
	s.Reset()
}

var (
	_ Sink = (*ProjectionSink)(nil)
	_ Sink = (*render.Projection)(nil)
)
