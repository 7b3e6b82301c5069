package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matsen/bibpage/internal/bib"
	"github.com/matsen/bibpage/internal/config"
	"github.com/matsen/bibpage/internal/linkcheck"
	"github.com/matsen/bibpage/internal/logging"
	"github.com/matsen/bibpage/internal/normalize"
	"github.com/matsen/bibpage/internal/record"
	"github.com/matsen/bibpage/internal/storage"
)

func ptr(s string) *string { return &s }

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func sampleLoaded() *loaded {
	entries := []bib.Entry{
		bib.NewEntry("article", "lovelace", map[string]string{
			"author": "Ada Lovelace",
			"title":  "Graph Theory",
			"file":   ":/papers/lovelace.pdf:PDF",
		}),
		bib.NewEntry("misc", "untitled", map[string]string{
			"author": "Someone Else",
		}),
		bib.NewEntry("book", "lovelace", map[string]string{
			"author": "Ada Lovelace",
			"title":  "Second Edition",
			"file":   "papers/lovelace.pdf",
		}),
	}
	coll, rejected := normalize.BuildReport(entries)
	return &loaded{Entries: entries, Collection: coll, Rejected: rejected}
}

func TestLoadBibliography(t *testing.T) {
	path := writeFile(t, t.TempDir(), "refs.bib", `@article{Lovelace1843,
  author = {Lovelace, Ada},
  title = {Graph Theory},
  year = {1843}
}

@book{NoTitle,
  author = {Babbage, Charles}
}
`)

	for _, workers := range []int{0, 2} {
		l, err := loadBibliography(context.Background(), path, workers, logging.Discard())
		if err != nil {
			t.Fatalf("loadBibliography(workers=%d) error = %v", workers, err)
		}
		if len(l.Entries) != 2 || len(l.Collection) != 1 || len(l.Rejected) != 1 {
			t.Fatalf("workers=%d: entries=%d collection=%d rejected=%d, want 2/1/1",
				workers, len(l.Entries), len(l.Collection), len(l.Rejected))
		}
		if got := l.Collection[0]; got.Author != "Ada Lovelace" || record.Str(got.Date) != "1843" {
			t.Errorf("workers=%d: entry = %+v", workers, got)
		}
		if l.Rejected[0].Key != "NoTitle" || l.Rejected[0].Index != 1 {
			t.Errorf("workers=%d: rejection = %+v", workers, l.Rejected[0])
		}
	}
}

func TestLoadBibliography_Missing(t *testing.T) {
	_, err := loadBibliography(context.Background(), filepath.Join(t.TempDir(), "none.bib"), 0, logging.Discard())
	if err == nil {
		t.Error("loadBibliography() expected error for missing file")
	}
}

func TestStructuralIssues(t *testing.T) {
	issues := structuralIssues(sampleLoaded())

	types := make(map[string][]CheckIssue)
	for _, issue := range issues {
		types[issue.Type] = append(types[issue.Type], issue)
	}

	if got := types["rejected"]; len(got) != 1 || got[0].Key != "untitled" || *got[0].Index != 1 {
		t.Errorf("rejected issues = %+v", got)
	}
	if got := types["duplicate_key"]; len(got) != 1 || got[0].Key != "lovelace" || got[0].Count != 2 {
		t.Errorf("duplicate_key issues = %+v", got)
	}
	if got := types["file_undecodable"]; len(got) != 1 || *got[0].Index != 2 || got[0].Found != "papers/lovelace.pdf" {
		t.Errorf("file_undecodable issues = %+v", got)
	}
}

func TestFileIssues(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "present.pdf", "%PDF-1.4")

	coll := record.Collection{
		{Key: "present", File: ptr("present.pdf")},
		{Key: "absent", File: ptr("absent.pdf")},
		{Key: "nofile"},
	}
	issues := fileIssues(context.Background(), coll, root, false, logging.Discard())
	if len(issues) != 1 {
		t.Fatalf("fileIssues() = %+v, want 1 issue", issues)
	}
	if issues[0].Type != "missing_file" || issues[0].Key != "absent" || issues[0].Path != filepath.Join(root, "absent.pdf") {
		t.Errorf("issue = %+v", issues[0])
	}
}

func TestBrokenLinks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/gone") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	coll := record.Collection{
		{Key: "ok", URL: ptr(srv.URL + "/ok")},
		{Key: "bad", URL: ptr(srv.URL + "/gone")},
	}
	client := linkcheck.NewClient(linkcheck.WithRateLimit(0))
	issues, err := brokenLinks(context.Background(), client, coll, 2)
	if err != nil {
		t.Fatalf("brokenLinks() error = %v", err)
	}
	if len(issues) != 1 || issues[0].Key != "bad" || issues[0].Field != "url" {
		t.Errorf("brokenLinks() = %+v", issues)
	}
}

func TestRenderOptions(t *testing.T) {
	dir := t.TempDir()
	tmpl := writeFile(t, dir, "page.html", "{{len .biblio}}")
	js := writeFile(t, dir, "page.js", "alert(1);")

	opts, err := renderOptions(tmpl, js, false, "Mine")
	if err != nil {
		t.Fatalf("renderOptions() error = %v", err)
	}
	if opts.TemplateText != "{{len .biblio}}" || opts.Script != "alert(1);" || !opts.EmbedScript || opts.Title != "Mine" {
		t.Errorf("renderOptions() = %+v", opts)
	}

	opts, err = renderOptions("", "", false, "")
	if err != nil || opts.EmbedScript || opts.TemplateText != "" {
		t.Errorf("renderOptions(defaults) = %+v, %v", opts, err)
	}

	if _, err := renderOptions(filepath.Join(dir, "missing.html"), "", false, ""); err == nil {
		t.Error("renderOptions() expected error for missing template")
	}
}

func TestEffectiveWorkers(t *testing.T) {
	cfg := &config.Config{Workers: 3}
	if got := effectiveWorkers(0, false, cfg); got != 3 {
		t.Errorf("effectiveWorkers(unset) = %d, want 3", got)
	}
	if got := effectiveWorkers(0, true, cfg); got != 0 {
		t.Errorf("effectiveWorkers(set 0) = %d, want 0", got)
	}
}

func TestParseSearchQuery(t *testing.T) {
	tests := []struct {
		field, query         string
		wantField, wantQuery string
	}{
		{"", "graph theory", "", "graph theory"},
		{"", "author:Lovelace", "author", "Lovelace"},
		{"", "title:Graph", "title", "Graph"},
		{"journal", "author:x", "journal", "author:x"},
	}
	for _, tt := range tests {
		f, q := parseSearchQuery(tt.field, tt.query)
		if f != tt.wantField || q != tt.wantQuery {
			t.Errorf("parseSearchQuery(%q, %q) = %q, %q; want %q, %q", tt.field, tt.query, f, q, tt.wantField, tt.wantQuery)
		}
	}
}

func TestLinkedFile(t *testing.T) {
	coll := record.Collection{{Key: "a", File: ptr("a.pdf")}, {Key: "a", File: ptr("other.pdf")}}
	got, err := linkedFile(coll, "a", "/pdfs")
	if err != nil || got != filepath.Join("/pdfs", "a.pdf") {
		t.Errorf("linkedFile() = %q, %v", got, err)
	}

	if _, err := linkedFile(nil, "a", ""); err == nil {
		t.Error("linkedFile(no matches) expected error")
	}
	if _, err := linkedFile(record.Collection{{Key: "b"}}, "b", ""); err == nil {
		t.Error("linkedFile(no file) expected error")
	}
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"short", 10, "short"},
		{"exactly ten", 11, "exactly ten"},
		{"a longer title", 10, "a longe..."},
		{"Gödel numbering", 8, "Gödel..."},
	}
	for _, tt := range tests {
		if got := truncateString(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
	}
}

func TestFormatAuthorsShort(t *testing.T) {
	authors := []record.Author{
		{Name: "Ada", Surname: "Lovelace"},
		{Name: "Charles", Surname: "Babbage"},
		{Name: "Mary", Surname: "Somerville"},
		{Name: "Plato"},
	}
	if got := formatAuthorsShort(authors, 3); got != "Lovelace, Babbage, Somerville et al." {
		t.Errorf("formatAuthorsShort() = %q", got)
	}
	if got := formatAuthorsShort(authors[3:], 3); got != "Plato" {
		t.Errorf("formatAuthorsShort(given only) = %q", got)
	}
}

func TestSearchEntries(t *testing.T) {
	db, err := storage.OpenDB(filepath.Join(t.TempDir(), "entries.db"))
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}
	defer db.Close()

	coll := record.Collection{
		{BibType: "article", Key: "lovelace", Author: "Ada Lovelace", Title: "Graph Theory", AuthorList: []record.Author{}},
		{BibType: "book", Key: "babbage", Author: "Charles Babbage", Title: "Passages", AuthorList: []record.Author{}},
	}
	if _, err := db.ReplaceAll(coll); err != nil {
		t.Fatalf("ReplaceAll() error = %v", err)
	}

	tests := []struct {
		name     string
		field    string
		query    string
		limit    int
		wantKeys []string
	}{
		{"blank lists all", "", "", 0, []string{"lovelace", "babbage"}},
		{"blank honours limit", "", "  ", 1, []string{"lovelace"}},
		{"full text", "", "passages", 0, []string{"babbage"}},
		{"field prefix", "", "author:Lovelace", 0, []string{"lovelace"}},
		{"explicit field", "title", "Babbage", 0, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := searchEntries(db, tt.field, tt.query, tt.limit)
			if err != nil {
				t.Fatalf("searchEntries() error = %v", err)
			}
			keys := got.Keys()
			if len(keys) != len(tt.wantKeys) {
				t.Fatalf("searchEntries() keys = %v, want %v", keys, tt.wantKeys)
			}
			for i := range keys {
				if keys[i] != tt.wantKeys[i] {
					t.Errorf("searchEntries() keys = %v, want %v", keys, tt.wantKeys)
					break
				}
			}
		})
	}
}

func TestWriteDump(t *testing.T) {
	dir := t.TempDir()
	coll := record.Collection{
		{BibType: "article", Key: "lovelace", Author: "Ada Lovelace", Title: "Graph Theory",
			AuthorList: []record.Author{{Name: "Ada", Surname: "Lovelace"}}, Date: ptr("1843")},
	}

	jsonlPath := filepath.Join(dir, "refs.jsonl")
	if err := writeDump(jsonlPath, coll, storage.FormatJSONL); err != nil {
		t.Fatalf("writeDump(jsonl) error = %v", err)
	}
	got, err := storage.ReadJSONL(jsonlPath)
	if err != nil || len(got) != 1 || got[0].Key != "lovelace" || record.Str(got[0].Date) != "1843" {
		t.Errorf("ReadJSONL() = %+v, %v", got, err)
	}

	yamlPath := filepath.Join(dir, "refs.yaml")
	if err := writeDump(yamlPath, coll, storage.FormatYAML); err != nil {
		t.Fatalf("writeDump(yaml) error = %v", err)
	}
	got, err = storage.ReadYAML(yamlPath)
	if err != nil || len(got) != 1 || got[0].AuthorList[0].Surname != "Lovelace" {
		t.Errorf("ReadYAML() = %+v, %v", got, err)
	}

	if err := writeDump(filepath.Join(dir, "missing", "refs.json"), coll, storage.FormatJSON); err == nil {
		t.Error("writeDump() expected error for missing directory")
	}
}

func TestPrintBuiltin(t *testing.T) {
	var b bytes.Buffer
	if err := printBuiltin(&b, true, false); err != nil {
		t.Fatalf("printBuiltin() error = %v", err)
	}
	if !strings.Contains(b.String(), ".biblio") {
		t.Error("built-in template should range over .biblio")
	}

	b.Reset()
	if err := printBuiltin(&b, false, true); err != nil {
		t.Fatalf("printBuiltin() error = %v", err)
	}
	if !strings.Contains(b.String(), `getElementById("biblio")`) || strings.Contains(b.String(), ".biblio}}") {
		t.Errorf("unexpected script output:\n%s", b.String())
	}
}
