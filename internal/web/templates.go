// Package web provides HTTP server and web UI functionality for bplusviz.
//
// EDUCATIONAL NOTES:
// ------------------
// Go templates support inheritance through define/block/template actions:
// - base.html defines the structure with {{block "name" .}}default{{end}}
// - Child templates override blocks with {{define "name"}}content{{end}}
// - We parse base + child together and execute base to render the full page
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/cockroachdb/errors"
)

//go:embed templates/*
var templateFS embed.FS

// pageTemplates maps page names to their compiled templates.
var pageTemplates = make(map[string]*template.Template)

// pages extend base.html.
var pages = []string{
	"index.html",
	"tree.html",
}

var templateFuncs = template.FuncMap{
	"add":  func(a, b int) int { return a + b },
	"sub":  func(a, b int) int { return a - b },
	"mul":  func(a, b int) int { return a * b },
	"half": func(a int) int { return a / 2 },
}

func init() {
	baseContent, err := templateFS.ReadFile("templates/base.html")
	if err != nil {
		panic(fmt.Sprintf("failed to read base template: %v", err))
	}

	baseTmpl, err := template.New("base.html").Funcs(templateFuncs).Parse(string(baseContent))
	if err != nil {
		panic(fmt.Sprintf("failed to parse base template: %v", err))
	}
	pageTemplates["base.html"] = baseTmpl

	for _, name := range pages {
		childContent, err := templateFS.ReadFile("templates/" + name)
		if err != nil {
			panic(fmt.Sprintf("failed to read %s: %v", name, err))
		}

		// Clone base and parse the page into it so its blocks win.
		tmpl, err := template.Must(baseTmpl.Clone()).Parse(string(childContent))
		if err != nil {
			panic(fmt.Sprintf("failed to parse %s: %v", name, err))
		}
		pageTemplates[name] = tmpl
	}
}

// RenderTemplate renders the named page with the given data to the writer.
func RenderTemplate(w io.Writer, name string, data any) error {
	tmpl, ok := pageTemplates[name]
	if !ok {
		return errors.Newf("template %q not found", name)
	}
	return tmpl.ExecuteTemplate(w, "base.html", data)
}
