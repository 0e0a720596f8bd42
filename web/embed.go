// Package web embeds the dashboard page template and its static assets so
// the binary serves the UI without external files.
//
// Usage in the API server:
//
//	tmpl, err := web.Templates()
//	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(web.StaticFS())))
package web

import (
	"embed"
	"html/template"
	"io/fs"
	"log"
)

//go:embed templates/*.html
var templates embed.FS

//go:embed static
var static embed.FS

// Templates parses the embedded page templates.
func Templates() (*template.Template, error) {
	return template.ParseFS(templates, "templates/*.html")
}

// StaticFS returns a filesystem rooted at the embedded static/ directory.
func StaticFS() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		log.Fatalf("web.StaticFS: %v", err)
	}
	return sub
}
