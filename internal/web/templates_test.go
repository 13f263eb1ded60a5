package web

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/cabewaldrop/bplusviz/internal/session"
)

func TestBaseTemplateRenders(t *testing.T) {
	var buf bytes.Buffer
	err := RenderTemplate(&buf, "base.html", nil)
	if err != nil {
		t.Fatalf("RenderTemplate failed: %v", err)
	}

	html := buf.String()

	if !strings.Contains(html, "<!DOCTYPE html>") {
		t.Error("expected HTML5 doctype")
	}
	if !strings.Contains(html, "/static/app.js") {
		t.Error("expected the client script tag")
	}
	if !strings.Contains(html, "<nav") {
		t.Error("expected nav element")
	}
	if !strings.Contains(html, "<title>bplusviz</title>") {
		t.Error("expected default title 'bplusviz'")
	}
}

func TestTemplateEscapesHTML(t *testing.T) {
	data := indexPage{
		Title: "<script>alert(1)</script>",
		Trees: []session.Info{{ID: "x", Name: "<img src=x>", Order: 3, CreatedAt: time.Now()}},
	}

	var buf bytes.Buffer
	if err := RenderTemplate(&buf, "index.html", data); err != nil {
		t.Fatalf("RenderTemplate failed: %v", err)
	}

	html := buf.String()
	if strings.Contains(html, "<script>alert") {
		t.Error("expected the title to be escaped")
	}
	if strings.Contains(html, "<img src=x>") {
		t.Error("expected the tree name to be escaped")
	}
}

func TestRenderTemplateNotFound(t *testing.T) {
	var buf bytes.Buffer
	err := RenderTemplate(&buf, "nonexistent.html", nil)
	if err == nil {
		t.Fatal("expected error for nonexistent template")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected 'not found' in error, got: %v", err)
	}
}

func TestIndexTemplateEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderTemplate(&buf, "index.html", indexPage{Title: "bplusviz", DefaultOrder: 4, MaxOrder: MaxOrder}); err != nil {
		t.Fatalf("RenderTemplate failed: %v", err)
	}
	html := buf.String()
	if !strings.Contains(html, "No trees yet.") {
		t.Error("expected the empty state")
	}
	if !strings.Contains(html, `value="4"`) {
		t.Error("expected the default order in the form")
	}
}

func TestTreeTemplateError(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderTemplate(&buf, "tree.html", treePage{Title: "missing", Error: "session not found"}); err != nil {
		t.Fatalf("RenderTemplate failed: %v", err)
	}
	html := buf.String()
	if !strings.Contains(html, "session not found") {
		t.Error("expected the error message")
	}
	if strings.Contains(html, "<svg") {
		t.Error("expected no canvas on the error page")
	}
}
