package templates

import (
	"embed"
	"html/template"
)

//go:embed *.html
var files embed.FS

// Load parses every page and the shared layout blocks
func Load() (*template.Template, error) {
	return template.New("").ParseFS(files, "*.html")
}

// MustLoad is Load for program start and tests
func MustLoad() *template.Template {
	return template.Must(Load())
}
