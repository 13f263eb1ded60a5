// Package command defines the instruction log that describes a B+ tree
// mutation step by step.
//
// EDUCATIONAL NOTES:
// ------------------
// The tree algorithm never draws anything. Instead it emits a flat list of
// small, render-facing instructions ("create a box with 2 slots", "write 20
// into slot 0", "connect these two boxes", "pause here"). Anything that can
// fold that list into a picture can show the algorithm at work:
// 1. A web page can animate it
// 2. A terminal can print it
// 3. A test can replay it and compare the result with the tree
//
// The instructions know nothing about keys, splits or merges. They only speak
// in nodes, text slots and edges. That keeps the protocol stable while the
// algorithm evolves.
//
// Step is special: it carries no effect and marks the end of a burst of
// related instructions. A player pauses on Step boundaries.
//
// The set of commands is closed. Every consumer implements Visitor, so adding
// a command is a compile error until every consumer handles it.

package command

// Kind is the wire tag of a command.
type Kind string

const (
	KindCreateNode       Kind = "CreateNode"
	KindDeleteNode       Kind = "DeleteNode"
	KindSetText          Kind = "SetText"
	KindSetElementCount  Kind = "SetElementCount"
	KindSetHighlight     Kind = "SetHighlight"
	KindSetEdgeHighlight Kind = "SetEdgeHighlight"
	KindConnect          Kind = "Connect"
	KindDisconnect       Kind = "Disconnect"
	KindStep             Kind = "Step"
	KindResizeLayout     Kind = "ResizeLayout"
	KindSetMessage       Kind = "SetMessage"
)

// Kinds lists every command kind in declaration order.
var Kinds = []Kind{
	KindCreateNode,
	KindDeleteNode,
	KindSetText,
	KindSetElementCount,
	KindSetHighlight,
	KindSetEdgeHighlight,
	KindConnect,
	KindDisconnect,
	KindStep,
	KindResizeLayout,
	KindSetMessage,
}

// Command is one instruction of the log.
type Command interface {
	Kind() Kind
	Accept(v Visitor) error
	isCommand()
}

// Visitor handles every command kind.
type Visitor interface {
	VisitCreateNode(c CreateNode) error
	VisitDeleteNode(c DeleteNode) error
	VisitSetText(c SetText) error
	VisitSetElementCount(c SetElementCount) error
	VisitSetHighlight(c SetHighlight) error
	VisitSetEdgeHighlight(c SetEdgeHighlight) error
	VisitConnect(c Connect) error
	VisitDisconnect(c Disconnect) error
	VisitStep(c Step) error
	VisitResizeLayout(c ResizeLayout) error
	VisitSetMessage(c SetMessage) error
}

// CreateNode introduces a node with NumElements empty text slots.
type CreateNode struct {
	ID          string `json:"id"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	NumElements int    `json:"numElements"`
	X           int    `json:"x"`
	Y           int    `json:"y"`
	Background  string `json:"background"`
	Foreground  string `json:"foreground"`
}

// DeleteNode removes a node together with every edge touching it.
type DeleteNode struct {
	ID string `json:"id"`
}

// SetText writes Text into slot Index of a node.
type SetText struct {
	ID    string `json:"id"`
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// SetElementCount grows or shrinks the slots of a node.
type SetElementCount struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

// SetHighlight toggles the highlight of a node.
type SetHighlight struct {
	ID        string `json:"id"`
	Highlight bool   `json:"highlight"`
}

// SetEdgeHighlight toggles the highlight of an existing edge.
type SetEdgeHighlight struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Highlight bool   `json:"highlight"`
}

// Connect adds an edge, replacing any edge between the same endpoints.
type Connect struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Color    string `json:"color"`
	Directed bool   `json:"directed"`
	Label    string `json:"label,omitempty"`
}

// Disconnect removes the edge between two nodes.
type Disconnect struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Step closes a burst of related commands.
type Step struct{}

// Position places one node.
type Position struct {
	ID string `json:"id"`
	X  int    `json:"x"`
	Y  int    `json:"y"`
}

// ResizeLayout moves the listed nodes.
type ResizeLayout struct {
	Positions []Position `json:"positions"`
}

// SetMessage replaces the narration line shown with the picture.
type SetMessage struct {
	Text string `json:"text"`
}

func (CreateNode) Kind() Kind       { return KindCreateNode }
func (DeleteNode) Kind() Kind       { return KindDeleteNode }
func (SetText) Kind() Kind          { return KindSetText }
func (SetElementCount) Kind() Kind  { return KindSetElementCount }
func (SetHighlight) Kind() Kind     { return KindSetHighlight }
func (SetEdgeHighlight) Kind() Kind { return KindSetEdgeHighlight }
func (Connect) Kind() Kind          { return KindConnect }
func (Disconnect) Kind() Kind       { return KindDisconnect }
func (Step) Kind() Kind             { return KindStep }
func (ResizeLayout) Kind() Kind     { return KindResizeLayout }
func (SetMessage) Kind() Kind       { return KindSetMessage }

func (c CreateNode) Accept(v Visitor) error       { return v.VisitCreateNode(c) }
func (c DeleteNode) Accept(v Visitor) error       { return v.VisitDeleteNode(c) }
func (c SetText) Accept(v Visitor) error          { return v.VisitSetText(c) }
func (c SetElementCount) Accept(v Visitor) error  { return v.VisitSetElementCount(c) }
func (c SetHighlight) Accept(v Visitor) error     { return v.VisitSetHighlight(c) }
func (c SetEdgeHighlight) Accept(v Visitor) error { return v.VisitSetEdgeHighlight(c) }
func (c Connect) Accept(v Visitor) error          { return v.VisitConnect(c) }
func (c Disconnect) Accept(v Visitor) error       { return v.VisitDisconnect(c) }
func (c Step) Accept(v Visitor) error             { return v.VisitStep(c) }
func (c ResizeLayout) Accept(v Visitor) error     { return v.VisitResizeLayout(c) }
func (c SetMessage) Accept(v Visitor) error       { return v.VisitSetMessage(c) }

func (CreateNode) isCommand()       {}
func (DeleteNode) isCommand()       {}
func (SetText) isCommand()          {}
func (SetElementCount) isCommand()  {}
func (SetHighlight) isCommand()     {}
func (SetEdgeHighlight) isCommand() {}
func (Connect) isCommand()          {}
func (Disconnect) isCommand()       {}
func (Step) isCommand()             {}
func (ResizeLayout) isCommand()     {}
func (SetMessage) isCommand()       {}

// IsStructural reports whether c changes which nodes or edges exist, as
// opposed to their text, highlight or position.
func IsStructural(c Command) bool {
	switch c.Kind() {
	case KindCreateNode, KindDeleteNode, KindConnect, KindDisconnect:
		return true
	}
	return false
}

// Count tallies commands by kind.
func Count(cmds []Command) map[Kind]int {
	counts := make(map[Kind]int)
	for _, c := range cmds {
		counts[c.Kind()]++
	}
	return counts
}
