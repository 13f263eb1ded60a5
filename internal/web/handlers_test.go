package web

import (
	"testing"

	"github.com/cabewaldrop/bplusviz/internal/render"
)

func TestBuildPicture(t *testing.T) {
	view := render.View{
		Nodes: []render.NodeView{
			{ID: "n2", Slots: []string{"20"}, X: 400, Y: 50, Width: 50, Height: 30},
			{ID: "n0", Slots: []string{"10"}, X: 300, Y: 130, Width: 50, Height: 30},
			{ID: "n1", Slots: []string{"20", "30"}, X: 500, Y: 130, Width: 50, Height: 30, Highlighted: true},
		},
		Edges: []render.EdgeView{
			{From: "n2", To: "n0", Color: "#000", Directed: true},
			{From: "n0", To: "n1", Color: "#888", Directed: true, Label: "next"},
			{From: "n2", To: "ghost", Color: "#000"},
		},
		Message: "Inserting 30",
	}

	pic := buildPicture(view)

	if len(pic.Boxes) != 3 {
		t.Fatalf("expected 3 boxes, got %d", len(pic.Boxes))
	}
	wide := pic.Boxes[2]
	if wide.Left != 450 || wide.Width != 100 || wide.SlotWidth != 50 {
		t.Errorf("expected a 100 wide box centered on 500, got left=%d width=%d", wide.Left, wide.Width)
	}
	if !wide.Highlighted {
		t.Error("expected the highlight to carry over")
	}

	if len(pic.Lines) != 2 {
		t.Fatalf("expected edges to unknown nodes to be dropped, got %d lines", len(pic.Lines))
	}
	down := pic.Lines[0]
	if down.X1 != 400 || down.Y1 != 80 || down.X2 != 300 || down.Y2 != 130 {
		t.Errorf("parent edge runs bottom center to top center, got %+v", down)
	}
	across := pic.Lines[1]
	if across.X1 != 325 || across.Y1 != 145 || across.X2 != 450 || across.Y2 != 145 {
		t.Errorf("sibling edge runs side to side, got %+v", across)
	}

	if pic.Width != 550+picturePadding || pic.Height != 160+picturePadding {
		t.Errorf("unexpected canvas %dx%d", pic.Width, pic.Height)
	}
	if pic.Message != "Inserting 30" {
		t.Errorf("expected the message, got %q", pic.Message)
	}
}

func TestBuildPictureEmpty(t *testing.T) {
	pic := buildPicture(render.View{})
	if len(pic.Boxes) != 0 || len(pic.Lines) != 0 || pic.Width != 0 {
		t.Errorf("expected an empty picture, got %+v", pic)
	}
}
