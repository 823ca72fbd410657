package pages

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/ashureev/eventdash/internal/session"
	"github.com/ashureev/eventdash/internal/validate"
)

// view is the data every page template receives.
type view struct {
	Title    string
	Claims   session.Claims
	Notice   string
	Error    string
	Fields   validate.Errors
	Form     map[string]string
	Data     any
	Redirect string
	Token    string
}

// input is the data of the shared "input" template.
type input struct {
	Name  string
	Label string
	Type  string
	Value string
	Error string
}

type renderer struct {
	pages map[string]*template.Template
}

// newRenderer parses templates/layout.html once and clones it for every other
// page in templates/, so each page defines its own "content" block.
func newRenderer(fsys fs.FS, assetURL string) (*renderer, error) {
	funcs := template.FuncMap{
		"field":    fieldFunc,
		"imageURL": imageURLFunc(assetURL),
		"date":     func(t time.Time) string { return formatTime(t, "Jan 2, 2006") },
		"datetime": func(t time.Time) string { return formatTime(t, "2006-01-02 15:04:05") },
	}

	layout, err := template.New("layout.html").Funcs(funcs).ParseFS(fsys, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	files, err := fs.Glob(fsys, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}

	rd := &renderer{pages: make(map[string]*template.Template, len(files))}
	for _, file := range files {
		name := strings.TrimSuffix(path.Base(file), ".html")
		if name == "layout" {
			continue
		}
		t, err := layout.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone layout for %s: %w", name, err)
		}
		if _, err := t.ParseFS(fsys, file); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		rd.pages[name] = t
	}
	return rd, nil
}

// render executes page into a buffer first so a template error never leaves a
// half-written response.
func (rd *renderer) render(w http.ResponseWriter, status int, page string, v *view) error {
	t, ok := rd.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", v); err != nil {
		return fmt.Errorf("execute %s: %w", page, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

func fieldFunc(v *view, name, label, typ string) input {
	in := input{Name: name, Label: label, Type: typ}
	if typ != "password" {
		in.Value = v.Form[name]
	}
	if v.Fields != nil {
		in.Error = v.Fields[name]
	}
	return in
}

func imageURLFunc(base string) func(string) string {
	base = strings.TrimRight(base, "/")
	return func(image string) string {
		if image == "" || strings.HasPrefix(image, "http://") || strings.HasPrefix(image, "https://") {
			return image
		}
		return base + "/" + strings.TrimLeft(image, "/")
	}
}

func formatTime(t time.Time, layout string) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(layout)
}
