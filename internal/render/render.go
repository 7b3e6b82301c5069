// Package render renders a normalized bibliography through an HTML template.
//
// Templates receive a map binding: "biblio" is the record.Collection,
// "title" the page title and "script" the inline JavaScript (empty unless
// embedding is enabled).
package render

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"strings"

	"github.com/matsen/bibpage/internal/record"
)

// TemplateName is the name the page template is registered under.
const TemplateName = "index.html"

// DefaultTitle is the page title used when none is configured.
const DefaultTitle = "Bibliography"

//go:embed table.html
var defaultTemplateText string

//go:embed table.js
var defaultScript string

// funcs are the helpers available to every template.
var funcs = template.FuncMap{
	"deref":   record.Str,
	"doiURL":  doiURL,
	"fileURL": fileURL,
	"join":    strings.Join,
}

// compiledDefault is parsed at init time to fail fast on template errors.
var compiledDefault *template.Template

func init() {
	compiledDefault = template.Must(newTemplate().Parse(defaultTemplateText))
}

// Options configures rendering.
type Options struct {
	TemplateText string // Custom template source; empty uses the built-in table
	Title        string // Page title; empty uses DefaultTitle
	EmbedScript  bool   // Whether to inline JavaScript into the page
	Script       string // JavaScript source; empty with EmbedScript uses the built-in script
}

// RenderError reports a template that failed to parse or execute.
type RenderError struct {
	Stage string // "parse" or "execute"
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("template %s: %v", e.Stage, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// DefaultTemplate returns the source of the built-in template.
func DefaultTemplate() string {
	return defaultTemplateText
}

// DefaultScript returns the source of the built-in script.
func DefaultScript() string {
	return defaultScript
}

// Parse compiles template source with the standard helpers.
func Parse(text string) (*template.Template, error) {
	tmpl, err := newTemplate().Parse(text)
	if err != nil {
		return nil, &RenderError{Stage: "parse", Err: err}
	}
	return tmpl, nil
}

// Render executes the template for coll and writes the result to w.
// Nothing is written when the template fails.
func Render(w io.Writer, coll record.Collection, opts Options) error {
	tmpl := compiledDefault
	if opts.TemplateText != "" {
		var err error
		if tmpl, err = Parse(opts.TemplateText); err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, bindings(coll, opts)); err != nil {
		return &RenderError{Stage: "execute", Err: err}
	}

	if _, err := buf.WriteTo(w); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

// RenderString is Render into a string.
func RenderString(coll record.Collection, opts Options) (string, error) {
	var b strings.Builder
	if err := Render(&b, coll, opts); err != nil {
		return "", err
	}
	return b.String(), nil
}

func newTemplate() *template.Template {
	return template.New(TemplateName).Funcs(funcs).Option("missingkey=error")
}

func bindings(coll record.Collection, opts Options) map[string]any {
	if coll == nil {
		coll = record.Collection{}
	}
	title := opts.Title
	if title == "" {
		title = DefaultTitle
	}
	var script template.JS
	if opts.EmbedScript {
		if opts.Script != "" {
			script = template.JS(opts.Script)
		} else {
			script = template.JS(defaultScript)
		}
	}
	return map[string]any{
		"biblio": coll,
		"title":  title,
		"script": script,
	}
}

// doiURL returns the resolver link for a DOI, leaving full URLs unchanged.
func doiURL(doi string) string {
	doi = strings.TrimSpace(doi)
	if strings.HasPrefix(doi, "http://") || strings.HasPrefix(doi, "https://") {
		return doi
	}
	return "https://doi.org/" + doi
}

// fileURL returns a file:// link for a local path.
func fileURL(path string) template.URL {
	u := url.URL{Scheme: "file", Path: path}
	return template.URL(u.String())
}
