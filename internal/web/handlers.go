package web

import (
	"bytes"
	"net/http"

	"github.com/cabewaldrop/bplusviz/internal/render"
	"github.com/cabewaldrop/bplusviz/internal/session"
	"github.com/go-chi/chi/v5"
)

// indexPage holds data for the tree list page.
type indexPage struct {
	Title        string
	Trees        []session.Info
	DefaultOrder int
	MaxOrder     int
}

// treePage holds data for the tree page.
type treePage struct {
	Title   string
	Tree    session.Info
	Picture picture
	History []session.HistoryEntry
	Speed   int
	Error   string
}

// picture is a projection laid out for SVG.
type picture struct {
	Width, Height int
	Boxes         []box
	Lines         []line
	Message       string
}

type box struct {
	ID          string
	Left, Top   int
	Width       int
	Height      int
	SlotWidth   int
	Slots       []string
	Background  string
	Foreground  string
	Highlighted bool
}

type line struct {
	X1, Y1, X2, Y2 int
	Color          string
	Highlighted    bool
	Directed       bool
	Label          string
}

const picturePadding = 20

// buildPicture converts a projection into SVG geometry. Node X is the center
// of the box and Y is its top edge.
func buildPicture(v render.View) picture {
	pic := picture{Message: v.Message}
	byID := make(map[string]box, len(v.Nodes))

	for _, n := range v.Nodes {
		w := n.Width * len(n.Slots)
		b := box{
			ID:          n.ID,
			Left:        n.X - w/2,
			Top:         n.Y,
			Width:       w,
			Height:      n.Height,
			SlotWidth:   n.Width,
			Slots:       n.Slots,
			Background:  n.Background,
			Foreground:  n.Foreground,
			Highlighted: n.Highlighted,
		}
		byID[n.ID] = b
		pic.Boxes = append(pic.Boxes, b)
		pic.Width = max(pic.Width, b.Left+b.Width+picturePadding)
		pic.Height = max(pic.Height, b.Top+b.Height+picturePadding)
	}

	for _, e := range v.Edges {
		from, okFrom := byID[e.From]
		to, okTo := byID[e.To]
		if !okFrom || !okTo {
			continue
		}
		l := line{Color: e.Color, Highlighted: e.Highlighted, Directed: e.Directed, Label: e.Label}
		if from.Top == to.Top {
			// Sibling link between leaves.
			l.X1, l.Y1 = from.Left+from.Width, from.Top+from.Height/2
			l.X2, l.Y2 = to.Left, to.Top+to.Height/2
		} else {
			l.X1, l.Y1 = from.Left+from.Width/2, from.Top+from.Height
			l.X2, l.Y2 = to.Left+to.Width/2, to.Top
		}
		pic.Lines = append(pic.Lines, l)
	}
	return pic
}

// renderPage renders into a buffer first so a template failure can still
// produce a clean 500.
func (s *Server) renderPage(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := RenderTemplate(&buf, name, data); err != nil {
		s.log.Error().Err(err).Str("template", name).Msg("render failed")
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// handleIndex serves the tree list.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sessions := s.registry.List()
	page := indexPage{
		Title:        "bplusviz",
		Trees:        make([]session.Info, len(sessions)),
		DefaultOrder: s.cfg.Tree.Order,
		MaxOrder:     MaxOrder,
	}
	for i, sess := range sessions {
		page.Trees[i] = sess.Info()
	}
	s.renderPage(w, http.StatusOK, "index.html", page)
}

// handleTreePage serves one tree with its controls and replay player.
func (s *Server) handleTreePage(w http.ResponseWriter, r *http.Request) {
	sess, err := s.registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.renderPage(w, statusFor(err), "tree.html", treePage{
			Title: "Tree not found - bplusviz",
			Error: err.Error(),
		})
		return
	}

	info := sess.Info()
	s.renderPage(w, http.StatusOK, "tree.html", treePage{
		Title:   info.Name + " - bplusviz",
		Tree:    info,
		Picture: buildPicture(sess.Projection().Snapshot()),
		History: sess.History(),
		Speed:   s.cfg.Replay.SpeedMS,
	})
}

// handleHealth returns a simple health check response.
// This endpoint is used by load balancers and monitoring systems.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
