package httpapi

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/godilite/cafeteria-survey/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{
	"index.html",
	"form.html",
	"thanks.html",
	"portal.html",
	"login.html",
	"not_found.html",
}

// renderer holds one template set per page, each sharing base.html.
type renderer struct {
	pages map[string]*template.Template
}

func newRenderer(loc *time.Location) (*renderer, error) {
	funcs := template.FuncMap{
		"average":   service.FormatAverage,
		"localtime": func(t time.Time) string { return t.In(loc).Format("2006-01-02 15:04") },
		"isID":      isID,
		"inc":       func(i int) int { return i + 1 },
		"date":      formatDate,
	}

	base, err := template.New("base.html").Funcs(funcs).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parse base template: %w", err)
	}

	r := &renderer{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(templateFS, "templates/"+name); err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

func isID(selected *int64, id int64) bool {
	return selected != nil && *selected == id
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func (r *renderer) execute(w io.Writer, page string, data any) error {
	t, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	return t.ExecuteTemplate(w, "base.html", data)
}
