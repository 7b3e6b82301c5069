package record

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func ptr(s string) *string { return &s }

func TestEntry_Year(t *testing.T) {
	tests := []struct {
		name string
		date *string
		want int
	}{
		{"absent", nil, 0},
		{"year only", ptr("1999"), 1999},
		{"free text", ptr("Spring 2020"), 2020},
		{"no digits", ptr("forthcoming"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Entry{Date: tt.date}
			if got := e.Year(); got != tt.want {
				t.Errorf("Year() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEntry_JSONFieldNames(t *testing.T) {
	e := Entry{
		BibType:    "article",
		Key:        "k1",
		Author:     "Ada Lovelace",
		AuthorList: []Author{{Name: "Ada", Surname: "Lovelace"}},
		Title:      "Graph Theory",
		DOI:        ptr("10.1/x"),
	}

	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	got := string(data)
	want := `{"bib_type":"article","key":"k1","author":"Ada Lovelace",` +
		`"author_list":[{"name":"Ada","surname":"Lovelace"}],"title":"Graph Theory","doi":"10.1/x"}`
	if got != want {
		t.Errorf("Marshal() = %s, want %s", got, want)
	}

	for _, absent := range []string{"url", "journal", "date", "file", "note"} {
		if strings.Contains(got, `"`+absent+`"`) {
			t.Errorf("absent field %q should be omitted, got %s", absent, got)
		}
	}
}

func TestCollection_DuplicateKeys(t *testing.T) {
	c := Collection{{Key: "a"}, {Key: "b"}, {Key: "a"}, {Key: "c"}, {Key: "b"}}

	if got, want := c.DuplicateKeys(), []string{"a", "b"}; !reflect.DeepEqual(got, want) {
		t.Errorf("DuplicateKeys() = %v, want %v", got, want)
	}
	if got, want := c.Keys(), []string{"a", "b", "a", "c", "b"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
	if got := (Collection{{Key: "x"}}).DuplicateKeys(); got != nil {
		t.Errorf("DuplicateKeys() = %v, want nil", got)
	}
}

func TestStr(t *testing.T) {
	if got := Str(nil); got != "" {
		t.Errorf("Str(nil) = %q, want empty", got)
	}
	if got := Str(ptr("x")); got != "x" {
		t.Errorf("Str(x) = %q, want x", got)
	}
}
