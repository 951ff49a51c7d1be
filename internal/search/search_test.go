package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// newSearchServer serves the search endpoint at /search and any number of
// result pages at their own paths.
func newSearchServer(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		if q == "" {
			t.Error("missing q parameter")
		}
		results := make([]map[string]string, 0, len(pages))
		for path := range pages {
			results = append(results, map[string]string{
				"title": strings.TrimPrefix(path, "/"),
				"url":   srv.URL + path,
			})
		}
		json.NewEncoder(w).Encode(results)
	})
	for path, body := range pages {
		body := body
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		})
	}
	srv = httptest.NewServer(mux)
	return srv
}

func TestSearch(t *testing.T) {
	t.Parallel()

	srv := newSearchServer(t, map[string]string{
		"/a": "<html><body><h1>Alpha</h1><p>first page</p></body></html>",
	})
	defer srv.Close()

	c := New(srv.URL+"/search", 3, 0)
	pages, err := c.Search(context.Background(), "alpha")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("pages: got %d, want 1", len(pages))
	}
	if pages[0].Title != "a" {
		t.Errorf("title: got %q", pages[0].Title)
	}
	if pages[0].Content != "Alpha first page" {
		t.Errorf("content: got %q", pages[0].Content)
	}
}

func TestSearch_SkipsFailedPages(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]string{
			{"title": "good", "url": srv.URL + "/good"},
			{"title": "gone", "url": srv.URL + "/gone"},
		})
	})
	mux.HandleFunc("/good", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<p>still here</p>"))
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL+"/search", 2, 0)
	pages, err := c.Search(context.Background(), "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("pages: got %d, want 1", len(pages))
	}
	if pages[0].Title != "good" {
		t.Errorf("title: got %q", pages[0].Title)
	}
}

func TestSearch_LookupFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, 2, 0)
	if _, err := c.Search(context.Background(), "q"); err == nil {
		t.Fatal("expected an error when the search endpoint fails")
	}
}

func TestSearch_NoResults(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	c := New(srv.URL, 2, 0)
	pages, err := c.Search(context.Background(), "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 0 {
		t.Errorf("pages: got %d, want 0", len(pages))
	}
}

func TestPageText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "strips script and style",
			in:   "<script>var x=1;</script><style>p{}</style><p>kept</p>",
			want: "kept",
		},
		{
			name: "collapses whitespace",
			in:   "<div>a\n\n   b\t c</div>",
			want: "a b c",
		},
		{
			name: "multiline tags",
			in:   "<a\nhref=\"x\">link</a>",
			want: "link",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := pageText(tt.in); got != tt.want {
				t.Errorf("pageText(%q): got %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
