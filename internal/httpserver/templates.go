package httpserver

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templateFiles embed.FS

func pageTemplates() *template.Template {
	return template.Must(template.ParseFS(templateFiles, "templates/*.html"))
}
