package pypi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	pkgerrors "github.com/pipext/pipext/pkg/errors"
	"github.com/pipext/pipext/pkg/registry"
	"github.com/pipext/pipext/pkg/report"
)

func TestClientLookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/flask/json" {
			http.NotFound(w, r)
			return
		}
		resp := apiResponse{
			Info: apiInfo{
				Name:        "Flask",
				Version:     "2.0.0",
				Summary:     "A micro web framework",
				License:     "BSD-3-Clause",
				Author:      "Armin Ronacher",
				AuthorEmail: "armin@example.com",
				RequiresDist: []string{
					"click>=7.0",
					"werkzeug (>=2.0)",
					"pytest; extra == 'test'",
				},
				RequiresPython: ">=3.6",
				ProjectURLs: map[string]any{
					"Source":        "https://github.com/pallets/flask",
					"Documentation": "https://flask.palletsprojects.com/",
				},
				HomePage: "https://palletsprojects.com/p/flask",
			},
			URLs: []apiFile{{UploadTime: time.Date(2021, 5, 11, 0, 0, 0, 0, time.UTC)}},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	c := testClient(t, server.URL)

	rec, err := c.Lookup(context.Background(), report.Query{Name: "flask"})
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}

	if rec.Name != "Flask" {
		t.Errorf("Name = %q, want Flask", rec.Name)
	}
	if rec.Version != "2.0.0" {
		t.Errorf("Version = %q, want 2.0.0", rec.Version)
	}
	if rec.Released != "May 11, 2021" {
		t.Errorf("Released = %q, want May 11, 2021", rec.Released)
	}
	if rec.Requires != "Python >=3.6" {
		t.Errorf("Requires = %q", rec.Requires)
	}
	if rec.Source != "https://github.com/pallets/flask" {
		t.Errorf("Source = %q", rec.Source)
	}
	if rec.Homepage != "https://palletsprojects.com/p/flask" {
		t.Errorf("Homepage should fall back to home_page, got %q", rec.Homepage)
	}

	wantDeps := []string{"click>=7.0", "werkzeug>=2.0"}
	if len(rec.Dependencies) != len(wantDeps) {
		t.Fatalf("Dependencies = %v, want %v", rec.Dependencies, wantDeps)
	}
	for i, want := range wantDeps {
		if rec.Dependencies[i] != want {
			t.Errorf("Dependencies[%d] = %q, want %q", i, rec.Dependencies[i], want)
		}
	}
	if len(rec.OptionalDependencies["test"]) != 1 {
		t.Errorf("OptionalDependencies = %v, want test extra", rec.OptionalDependencies)
	}
}

func TestClientLookupVersioned(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/requests/2.23.0/json":
			json.NewEncoder(w).Encode(apiResponse{
				Info: apiInfo{Name: "requests", Version: "2.23.0"},
			})
		default:
			// Any other version is a 404, never a substitution.
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	c := testClient(t, server.URL)

	rec, err := c.Lookup(context.Background(), report.Query{Name: "requests", Version: "2.23.0"})
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if rec.Version != "2.23.0" {
		t.Errorf("Version = %q, want exactly 2.23.0", rec.Version)
	}

	_, err = c.Lookup(context.Background(), report.Query{Name: "requests", Version: "0.0.999"})
	if !pkgerrors.Is(err, pkgerrors.ErrCodePackageNotFound) {
		t.Errorf("unknown version should be PACKAGE_NOT_FOUND, got %v", err)
	}
}

func TestClientLookupNotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	c := testClient(t, server.URL)

	_, err := c.Lookup(context.Background(), report.Query{Name: "missing-pkg"})
	if err == nil {
		t.Fatal("expected error for missing package")
	}
	if !pkgerrors.Is(err, pkgerrors.ErrCodePackageNotFound) {
		t.Errorf("expected PACKAGE_NOT_FOUND, got %v", err)
	}
}

func TestClientLookupServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := testClient(t, server.URL)

	_, err := c.Lookup(context.Background(), report.Query{Name: "flask"})
	if !pkgerrors.Is(err, pkgerrors.ErrCodeNetwork) {
		t.Errorf("expected NETWORK_ERROR, got %v", err)
	}
}

// fakeSource returns canned dependencies for fallback tests.
type fakeSource struct {
	deps   []string
	extras map[string][]string
	err    error
	calls  int
}

func (f *fakeSource) Dependencies(ctx context.Context, rec *report.Record, version string) ([]string, map[string][]string, error) {
	f.calls++
	return f.deps, f.extras, f.err
}

func TestClientLookupSourceFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(apiResponse{
			Info: apiInfo{Name: "oldpkg", Version: "0.1"},
		})
	}))
	defer server.Close()

	source := &fakeSource{deps: []string{"six>=1.0"}}
	c := NewClient(registry.NewClient(5, nil), server.URL, source, nil)

	rec, err := c.Lookup(context.Background(), report.Query{Name: "oldpkg"})
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if source.calls != 1 {
		t.Errorf("source resolver calls = %d, want 1", source.calls)
	}
	if len(rec.Dependencies) != 1 || rec.Dependencies[0] != "six>=1.0" {
		t.Errorf("Dependencies = %v, want fallback deps", rec.Dependencies)
	}
}

func TestClientLookupSourceFallbackSoftFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(apiResponse{
			Info: apiInfo{Name: "oldpkg", Version: "0.1"},
		})
	}))
	defer server.Close()

	var warned bool
	source := &fakeSource{err: registry.ErrNotFound}
	c := NewClient(registry.NewClient(5, nil), server.URL, source, func(msg string, args ...any) {
		warned = true
	})

	rec, err := c.Lookup(context.Background(), report.Query{Name: "oldpkg"})
	if err != nil {
		t.Fatalf("fallback failure must not fail the lookup: %v", err)
	}
	if len(rec.Dependencies) != 0 {
		t.Errorf("Dependencies = %v, want none", rec.Dependencies)
	}
	if !warned {
		t.Error("fallback failure should be logged")
	}
}

func TestClientLookupSkipsFallbackWhenIndexHasDeps(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(apiResponse{
			Info: apiInfo{Name: "pkg", Version: "1.0", RequiresDist: []string{"idna<3,>=2.5"}},
		})
	}))
	defer server.Close()

	source := &fakeSource{deps: []string{"should-not-appear"}}
	c := NewClient(registry.NewClient(5, nil), server.URL, source, nil)

	rec, err := c.Lookup(context.Background(), report.Query{Name: "pkg"})
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if source.calls != 0 {
		t.Errorf("source resolver should not be consulted, calls = %d", source.calls)
	}
	if rec.Dependencies[0] != "idna<3,>=2.5" {
		t.Errorf("Dependencies = %v", rec.Dependencies)
	}
}

func TestExtractDeps(t *testing.T) {
	tests := []struct {
		name       string
		input      []string
		wantDeps   []string
		wantExtras int
	}{
		{
			name:     "markers split into extras",
			input:    []string{"requests", "numpy; extra == 'dev'"},
			wantDeps: []string{"requests"}, wantExtras: 1,
		},
		{
			name:     "environment marker kept as runtime dep",
			input:    []string{`importlib-metadata; python_version < "3.8"`},
			wantDeps: []string{`importlib-metadata; python_version < "3.8"`},
		},
		{
			name:     "platform marker kept verbatim",
			input:    []string{"idna<3,>=2.5", "pywin32; sys_platform == 'win32'"},
			wantDeps: []string{"idna<3,>=2.5", "pywin32; sys_platform == 'win32'"},
		},
		{
			name:     "parenthesized constraints normalized",
			input:    []string{"chardet (<4,>=3.0.2)"},
			wantDeps: []string{"chardet<4,>=3.0.2"},
		},
		{
			name:     "duplicates collapsed",
			input:    []string{"flask", "flask"},
			wantDeps: []string{"flask"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps, extras := extractDeps(tt.input)
			if len(deps) != len(tt.wantDeps) {
				t.Fatalf("deps = %v, want %v", deps, tt.wantDeps)
			}
			for i, want := range tt.wantDeps {
				if deps[i] != want {
					t.Errorf("deps[%d] = %q, want %q", i, deps[i], want)
				}
			}
			if len(extras) != tt.wantExtras {
				t.Errorf("extras = %v, want %d entries", extras, tt.wantExtras)
			}
		})
	}
}

func TestExtractLicenseType(t *testing.T) {
	tests := []struct {
		name        string
		license     string
		classifiers []string
		want        string
	}{
		{"classifier preferred", "long license text", []string{"License :: OSI Approved :: MIT License"}, "MIT License"},
		{"short field used", "Apache 2.0", nil, "Apache 2.0"},
		{"long text first line", "BSD License\nlots of text follows here", nil, "BSD License"},
		{"nothing", "", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractLicenseType(tt.license, tt.classifiers); got != tt.want {
				t.Errorf("extractLicenseType = %q, want %q", got, tt.want)
			}
		})
	}
}

func testClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	return NewClient(registry.NewClient(5, nil), serverURL, nil, nil)
}
