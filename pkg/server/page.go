package server

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/unowned-ai/daybook/pkg/entries"
)

//go:embed templates/*.html
var templateFS embed.FS

type pageRenderer struct {
	templates *template.Template
}

func newPageRenderer() *pageRenderer {
	funcs := template.FuncMap{
		"humanDate": func(iso string) string {
			t, err := entries.ParseDate(iso)
			if err != nil {
				return iso
			}
			return t.Format("Monday, January 2, 2006")
		},
	}
	return &pageRenderer{
		templates: template.Must(template.New("pages").Funcs(funcs).ParseFS(templateFS, "templates/*.html")),
	}
}

type entryPage struct {
	Entry      entries.SerializedEntry
	ComingSoon string
	Year       int
}

func (p *pageRenderer) entry(w http.ResponseWriter, entry entries.SerializedEntry) error {
	return p.render(w, http.StatusOK, "entry.html", entryPage{
		Entry:      entry,
		ComingSoon: "Coming soon!",
		Year:       time.Now().Year(),
	})
}

func (p *pageRenderer) notFound(w http.ResponseWriter) {
	_ = p.render(w, http.StatusNotFound, "not_found.html", nil)
}

// render executes into a buffer first so a template failure never leaves a
// half-written page behind a 200.
func (p *pageRenderer) render(w http.ResponseWriter, status int, name string, data any) error {
	var buf bytes.Buffer
	if err := p.templates.ExecuteTemplate(&buf, name, data); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
