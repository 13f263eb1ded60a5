package render

import (
	"github.com/cabewaldrop/bplusviz/internal/command"
	"github.com/cockroachdb/errors"
)

// executor applies commands to a projection. Each method validates first and
// mutates only once the command is known to be valid.
type executor struct {
	p *Projection
}

var _ command.Visitor = executor{}

func violation(format string, args ...interface{}) error {
	return errors.Wrapf(ErrProtocolViolation, format, args...)
}

func (e executor) node(kind command.Kind, id string) (NodeView, error) {
	n, ok := e.p.Nodes[id]
	if !ok {
		return n, violation("%s: unknown node %q", kind, id)
	}
	return n, nil
}

func (e executor) endpoints(kind command.Kind, from, to string) error {
	if _, err := e.node(kind, from); err != nil {
		return err
	}
	_, err := e.node(kind, to)
	return err
}

func (e executor) VisitCreateNode(c command.CreateNode) error {
	if _, exists := e.p.Nodes[c.ID]; exists {
		return violation("%s: node %q already exists", c.Kind(), c.ID)
	}
	if c.NumElements < 0 {
		return violation("%s: negative element count %d", c.Kind(), c.NumElements)
	}
	e.p.Nodes[c.ID] = NodeView{
		ID:         c.ID,
		Slots:      make([]string, c.NumElements),
		X:          c.X,
		Y:          c.Y,
		Width:      c.Width,
		Height:     c.Height,
		Background: c.Background,
		Foreground: c.Foreground,
	}
	return nil
}

func (e executor) VisitDeleteNode(c command.DeleteNode) error {
	if _, err := e.node(c.Kind(), c.ID); err != nil {
		return err
	}
	delete(e.p.Nodes, c.ID)
	for k := range e.p.Edges {
		if k.From == c.ID || k.To == c.ID {
			delete(e.p.Edges, k)
		}
	}
	return nil
}

func (e executor) VisitSetText(c command.SetText) error {
	n, err := e.node(c.Kind(), c.ID)
	if err != nil {
		return err
	}
	if c.Index < 0 || c.Index >= len(n.Slots) {
		return violation("%s: slot %d out of range for node %q with %d slots",
			c.Kind(), c.Index, c.ID, len(n.Slots))
	}
	n.Slots[c.Index] = c.Text
	e.p.Nodes[c.ID] = n
	return nil
}

func (e executor) VisitSetElementCount(c command.SetElementCount) error {
	n, err := e.node(c.Kind(), c.ID)
	if err != nil {
		return err
	}
	if c.Count < 0 {
		return violation("%s: negative element count %d", c.Kind(), c.Count)
	}
	slots := make([]string, c.Count)
	copy(slots, n.Slots)
	n.Slots = slots
	e.p.Nodes[c.ID] = n
	return nil
}

func (e executor) VisitSetHighlight(c command.SetHighlight) error {
	n, err := e.node(c.Kind(), c.ID)
	if err != nil {
		return err
	}
	n.Highlighted = c.Highlight
	e.p.Nodes[c.ID] = n
	return nil
}

func (e executor) VisitSetEdgeHighlight(c command.SetEdgeHighlight) error {
	if err := e.endpoints(c.Kind(), c.From, c.To); err != nil {
		return err
	}
	k := EdgeKey{From: c.From, To: c.To}
	edge, ok := e.p.Edges[k]
	if !ok {
		return violation("%s: no edge %s", c.Kind(), k)
	}
	edge.Highlighted = c.Highlight
	e.p.Edges[k] = edge
	return nil
}

func (e executor) VisitConnect(c command.Connect) error {
	if err := e.endpoints(c.Kind(), c.From, c.To); err != nil {
		return err
	}
	e.p.Edges[EdgeKey{From: c.From, To: c.To}] = EdgeView{
		From:     c.From,
		To:       c.To,
		Color:    c.Color,
		Directed: c.Directed,
		Label:    c.Label,
	}
	return nil
}

func (e executor) VisitDisconnect(c command.Disconnect) error {
	if err := e.endpoints(c.Kind(), c.From, c.To); err != nil {
		return err
	}
	k := EdgeKey{From: c.From, To: c.To}
	if _, ok := e.p.Edges[k]; !ok {
		return violation("%s: no edge %s", c.Kind(), k)
	}
	delete(e.p.Edges, k)
	return nil
}

func (e executor) VisitStep(command.Step) error {
	return nil
}

func (e executor) VisitResizeLayout(c command.ResizeLayout) error {
	for _, pos := range c.Positions {
		if _, err := e.node(c.Kind(), pos.ID); err != nil {
			return err
		}
	}
	for _, pos := range c.Positions {
		n := e.p.Nodes[pos.ID]
		n.X, n.Y = pos.X, pos.Y
		e.p.Nodes[pos.ID] = n
	}
	return nil
}

func (e executor) VisitSetMessage(c command.SetMessage) error {
	e.p.Message = c.Text
	return nil
}
