package render

import (
	"strings"
	"testing"

	"github.com/cabewaldrop/bplusviz/internal/command"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func create(id string, n int) command.CreateNode {
	return command.CreateNode{
		ID: id, Width: command.WidthPerElement, Height: command.NodeHeight, NumElements: n,
		Background: command.BackgroundColor, Foreground: command.ForegroundColor,
	}
}

func TestApplyEffects(t *testing.T) {
	p := NewProjection()
	require.NoError(t, p.ApplyAll([]command.Command{
		create("a", 1),
		create("b", 2),
		command.SetText{ID: "a", Index: 0, Text: "20"},
		command.SetText{ID: "b", Index: 1, Text: "30"},
		command.Connect{From: "a", To: "b", Color: command.EdgeColor, Directed: true},
		command.SetEdgeHighlight{From: "a", To: "b", Highlight: true},
		command.SetHighlight{ID: "b", Highlight: true},
		command.ResizeLayout{Positions: []command.Position{{ID: "a", X: 5, Y: 6}}},
		command.SetMessage{Text: "hello"},
		command.Step{},
	}))

	require.Equal(t, []string{"20"}, p.Nodes["a"].Slots)
	require.Equal(t, []string{"", "30"}, p.Nodes["b"].Slots)
	require.True(t, p.Nodes["b"].Highlighted)
	require.Equal(t, 5, p.Nodes["a"].X)
	require.Equal(t, 6, p.Nodes["a"].Y)
	require.True(t, p.Edges[EdgeKey{"a", "b"}].Highlighted)
	require.Equal(t, "hello", p.Message)

	// Growing keeps existing text and pads; shrinking truncates.
	require.NoError(t, p.Apply(command.SetElementCount{ID: "a", Count: 3}))
	require.Equal(t, []string{"20", "", ""}, p.Nodes["a"].Slots)
	require.NoError(t, p.Apply(command.SetElementCount{ID: "b", Count: 1}))
	require.Equal(t, []string{""}, p.Nodes["b"].Slots)
}

func TestConnectReplacesExistingEdge(t *testing.T) {
	p := NewProjection()
	require.NoError(t, p.ApplyAll([]command.Command{
		create("a", 1), create("b", 1),
		command.Connect{From: "a", To: "b", Color: "#000000", Directed: true},
		command.SetEdgeHighlight{From: "a", To: "b", Highlight: true},
		command.Connect{From: "a", To: "b", Color: "#9e9e9e", Label: "next"},
	}))
	require.Len(t, p.Edges, 1)
	edge := p.Edges[EdgeKey{"a", "b"}]
	require.Equal(t, "#9e9e9e", edge.Color)
	require.Equal(t, "next", edge.Label)
	require.False(t, edge.Highlighted)
	require.False(t, edge.Directed)
}

func TestDeleteNodeDropsIncidentEdges(t *testing.T) {
	p := NewProjection()
	require.NoError(t, p.ApplyAll([]command.Command{
		create("a", 1), create("b", 1), create("c", 1),
		command.Connect{From: "a", To: "b"},
		command.Connect{From: "b", To: "c"},
		command.Connect{From: "a", To: "c"},
		command.DeleteNode{ID: "b"},
	}))
	require.Len(t, p.Nodes, 2)
	require.Len(t, p.Edges, 1)
	_, ok := p.Edges[EdgeKey{"a", "c"}]
	require.True(t, ok)
}

func TestProtocolViolations(t *testing.T) {
	base := []command.Command{create("a", 1), create("b", 1), command.Connect{From: "a", To: "b"}}

	tests := []struct {
		name string
		cmd  command.Command
	}{
		{"delete unknown", command.DeleteNode{ID: "zz"}},
		{"create duplicate", create("a", 2)},
		{"create negative", create("c", -1)},
		{"text unknown node", command.SetText{ID: "zz", Index: 0, Text: "1"}},
		{"text slot too high", command.SetText{ID: "a", Index: 1, Text: "1"}},
		{"text slot negative", command.SetText{ID: "a", Index: -1, Text: "1"}},
		{"count unknown", command.SetElementCount{ID: "zz", Count: 1}},
		{"count negative", command.SetElementCount{ID: "a", Count: -1}},
		{"highlight unknown", command.SetHighlight{ID: "zz", Highlight: true}},
		{"edge highlight missing edge", command.SetEdgeHighlight{From: "b", To: "a", Highlight: true}},
		{"edge highlight unknown node", command.SetEdgeHighlight{From: "a", To: "zz"}},
		{"connect unknown", command.Connect{From: "a", To: "zz"}},
		{"disconnect missing edge", command.Disconnect{From: "b", To: "a"}},
		{"disconnect unknown", command.Disconnect{From: "zz", To: "a"}},
		{"layout unknown", command.ResizeLayout{Positions: []command.Position{{ID: "a"}, {ID: "zz"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Replay(base)
			require.NoError(t, err)
			before := p.Clone()

			err = p.Apply(tt.cmd)
			if !errors.Is(err, ErrProtocolViolation) {
				t.Fatalf("expected ErrProtocolViolation, got %v", err)
			}
			require.Equal(t, before, p, "a rejected command must not change the projection")
		})
	}
}

func TestExecuteIsPure(t *testing.T) {
	p, err := Replay([]command.Command{create("a", 1)})
	require.NoError(t, err)
	before := p.Clone()

	next, err := Execute(command.SetText{ID: "a", Index: 0, Text: "10"}, p)
	require.NoError(t, err)
	require.Equal(t, before, p)
	require.Equal(t, []string{"10"}, next.Nodes["a"].Slots)

	same, err := Execute(command.DeleteNode{ID: "nope"}, p)
	require.Error(t, err)
	require.Same(t, p, same)
}

func TestReplayStopsAtFirstViolation(t *testing.T) {
	_, err := Replay([]command.Command{
		create("a", 1),
		command.SetText{ID: "b", Index: 0, Text: "x"},
	})
	require.True(t, errors.Is(err, ErrProtocolViolation))
	require.Contains(t, err.Error(), "command 1")
}

func TestSnapshotOrdering(t *testing.T) {
	p, err := Replay([]command.Command{
		create("n2", 1), create("n0", 1), create("n1", 1),
		command.Connect{From: "n2", To: "n1"},
		command.Connect{From: "n2", To: "n0"},
	})
	require.NoError(t, err)

	v := p.Snapshot()
	require.Equal(t, "n0", v.Nodes[0].ID)
	require.Equal(t, "n2", v.Nodes[2].ID)
	require.Equal(t, "n0", v.Edges[0].To)
	require.Equal(t, "n1", v.Edges[1].To)
}

func TestResetAndZeroValue(t *testing.T) {
	var p Projection
	require.NoError(t, p.Apply(create("a", 0)))
	p.Reset()
	require.Empty(t, p.Nodes)
	require.Empty(t, p.Edges)
}

func TestText(t *testing.T) {
	p, err := Replay([]command.Command{
		create("root", 1), create("l", 1), create("r", 2),
		command.SetText{ID: "root", Index: 0, Text: "20"},
		command.SetText{ID: "l", Index: 0, Text: "10"},
		command.SetText{ID: "r", Index: 0, Text: "20"},
		command.SetText{ID: "r", Index: 1, Text: "30"},
		command.ResizeLayout{Positions: []command.Position{
			{ID: "root", X: 400, Y: 50}, {ID: "l", X: 365, Y: 130}, {ID: "r", X: 435, Y: 130},
		}},
		command.SetMessage{Text: "Inserting 30"},
	})
	require.NoError(t, err)

	out := Text(p)
	lines := strings.Split(out, "\n")
	require.Contains(t, lines[0], "Inserting 30")
	require.Contains(t, out, "20 | 30")

	// The root row comes before the leaf row.
	require.Less(t, strings.Index(out, " 20 "), strings.Index(out, "10"))
}
