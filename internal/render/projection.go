// Package render folds a command log into a picture of the tree.
//
// EDUCATIONAL NOTES:
// ------------------
// The executor is deliberately dumb. It keeps a map of boxes and a map of
// arrows and applies each command to them, nothing more. Because it never
// looks at keys or tree rules, two things follow:
// 1. Replaying the same log always produces the same picture
// 2. Any mismatch between the log and the picture is a bug in whoever wrote
//    the log, so it is reported as a protocol violation instead of being
//    papered over
//
// Execute is the pure form (old picture in, new picture out). Apply mutates
// in place and is what a player uses while stepping through a long log.

package render

import (
	"sort"

	"github.com/cabewaldrop/bplusviz/internal/command"
	"github.com/cockroachdb/errors"
)

// ErrProtocolViolation is returned when a command references a node or edge
// the projection has no record of, or is otherwise malformed.
var ErrProtocolViolation = errors.New("protocol violation")

// NodeView is the render state of one node.
type NodeView struct {
	ID          string   `json:"id"`
	Slots       []string `json:"slots"`
	Highlighted bool     `json:"highlighted"`
	X           int      `json:"x"`
	Y           int      `json:"y"`
	Width       int      `json:"width"`
	Height      int      `json:"height"`
	Background  string   `json:"background"`
	Foreground  string   `json:"foreground"`
}

// EdgeKey identifies an edge by its endpoints.
type EdgeKey struct {
	From, To string
}

// String renders the key as "from-to".
func (k EdgeKey) String() string {
	return k.From + "-" + k.To
}

// EdgeView is the render state of one edge.
type EdgeView struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Color       string `json:"color"`
	Directed    bool   `json:"directed"`
	Label       string `json:"label,omitempty"`
	Highlighted bool   `json:"highlighted"`
}

// Projection is the picture built from a command log.
type Projection struct {
	Nodes   map[string]NodeView
	Edges   map[EdgeKey]EdgeView
	Message string
}

// NewProjection returns an empty picture.
func NewProjection() *Projection {
	return &Projection{
		Nodes: make(map[string]NodeView),
		Edges: make(map[EdgeKey]EdgeView),
	}
}

// Reset empties the picture.
func (p *Projection) Reset() {
	p.Nodes = make(map[string]NodeView)
	p.Edges = make(map[EdgeKey]EdgeView)
	p.Message = ""
}

// Clone returns a deep copy.
func (p *Projection) Clone() *Projection {
	c := &Projection{
		Nodes:   make(map[string]NodeView, len(p.Nodes)),
		Edges:   make(map[EdgeKey]EdgeView, len(p.Edges)),
		Message: p.Message,
	}
	for id, n := range p.Nodes {
		n.Slots = append(make([]string, 0, len(n.Slots)), n.Slots...)
		c.Nodes[id] = n
	}
	for k, e := range p.Edges {
		c.Edges[k] = e
	}
	return c
}

// Apply executes one command in place. On error the projection may hold the
// effects of earlier commands but never a partial effect of c.
func (p *Projection) Apply(c command.Command) error {
	if p.Nodes == nil || p.Edges == nil {
		p.Reset()
	}
	return c.Accept(executor{p})
}

// ApplyAll executes cmds in order and stops at the first violation.
func (p *Projection) ApplyAll(cmds []command.Command) error {
	for i, c := range cmds {
		if err := p.Apply(c); err != nil {
			return errors.Wrapf(err, "command %d (%s)", i, c.Kind())
		}
	}
	return nil
}

// Execute applies c to a copy of p and returns the copy. p is never modified.
func Execute(c command.Command, p *Projection) (*Projection, error) {
	next := p.Clone()
	if err := next.Apply(c); err != nil {
		return p, err
	}
	return next, nil
}

// Replay folds cmds into a fresh projection.
func Replay(cmds []command.Command) (*Projection, error) {
	p := NewProjection()
	if err := p.ApplyAll(cmds); err != nil {
		return nil, err
	}
	return p, nil
}

// View is a JSON-friendly, deterministically ordered snapshot.
type View struct {
	Nodes   []NodeView `json:"nodes"`
	Edges   []EdgeView `json:"edges"`
	Message string     `json:"message"`
}

// Snapshot returns nodes sorted by id and edges sorted by endpoints.
func (p *Projection) Snapshot() View {
	v := View{
		Nodes:   make([]NodeView, 0, len(p.Nodes)),
		Edges:   make([]EdgeView, 0, len(p.Edges)),
		Message: p.Message,
	}
	for _, n := range p.Nodes {
		n.Slots = append([]string{}, n.Slots...)
		v.Nodes = append(v.Nodes, n)
	}
	for _, e := range p.Edges {
		v.Edges = append(v.Edges, e)
	}
	sort.Slice(v.Nodes, func(i, j int) bool { return v.Nodes[i].ID < v.Nodes[j].ID })
	sort.Slice(v.Edges, func(i, j int) bool {
		if v.Edges[i].From != v.Edges[j].From {
			return v.Edges[i].From < v.Edges[j].From
		}
		return v.Edges[i].To < v.Edges[j].To
	})
	return v
}
