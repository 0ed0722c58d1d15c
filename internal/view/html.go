package view

import (
	"embed"
	"html/template"
	"io"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("dashboard.html").
	Funcs(template.FuncMap{
		"months": func() []string { return monthNames[:] },
		"inc":    func(i int) int { return i + 1 },
	}).
	ParseFS(templateFS, "templates/*.html"))

// RenderPage writes the dashboard HTML for s.
func RenderPage(w io.Writer, s State) error {
	return pageTemplate.ExecuteTemplate(w, "dashboard.html", s)
}
