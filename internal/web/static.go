// Package web provides the HTTP server for the B+ tree visualizer.
//
// This file handles static file serving using Go's embed package.
// The browser client (app.js) and its stylesheet are embedded into the
// binary at compile time, making deployment easier (single binary).

package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static/*
var staticFS embed.FS

// staticRoutes serves the embedded files under /static/.
//
// EDUCATIONAL NOTE:
// -----------------
// fs.Sub creates a sub-filesystem rooted at "static", so a request for
// /static/app.js looks up "app.js" in the embedded FS.
func (s *Server) staticRoutes() {
	staticContent, err := fs.Sub(staticFS, "static")
	if err != nil {
		// "static" is embedded at compile time.
		panic("failed to create static file sub-filesystem: " + err.Error())
	}

	fileServer := http.FileServer(http.FS(staticContent))
	s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))
}
