// Package report defines the package-metadata report model and its rendering.
//
// A [Query] names the package (and optionally an exact release) the user asked
// about, a [Provider] resolves it into a [Record], and [Render] writes the
// record as the fixed-order "Label: value" block that pipext prints to stdout.
// Rendering is pure string formatting, so any Provider implementation — the
// live PyPI client or a test fake — produces identical output.
package report

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Query identifies a single metadata lookup.
//
// Name is required and must be a valid package name. Version is optional;
// empty means "latest release". A Query is built once per invocation and
// never mutated.
type Query struct {
	Name    string
	Version string
}

// String returns the query in "name" or "name version" form for messages.
func (q Query) String() string {
	if q.Version == "" {
		return q.Name
	}
	return q.Name + " " + q.Version
}

// Record holds the metadata fields for one package release.
//
// All fields are optional except Name and Version; empty fields are simply
// omitted from the rendered report. A Record is read-only after construction
// and lives only for the duration of the invocation.
type Record struct {
	Name        string
	Version     string
	Released    string // human-readable release date (e.g. "Feb 19, 2020")
	Summary     string
	AuthorEmail string
	Author      string
	License     string
	Requires    string // interpreter constraint (e.g. "Python >=3.8")

	// Project links.
	Homepage      string
	Documentation string
	Source        string

	// Dependencies lists runtime dependency specifiers (e.g. "idna<3,>=2.5").
	// OptionalDependencies groups extra-gated specifiers by extra name.
	Dependencies         []string
	OptionalDependencies map[string][]string
}

// Provider resolves a Query into a Record.
//
// Implementations make a single best-effort attempt: no retries, no caching
// across invocations. A versioned Query must resolve to exactly that version
// or fail; substituting a different release is never allowed.
type Provider interface {
	Lookup(ctx context.Context, q Query) (*Record, error)
}

// Render writes r to w as one "Label: value" line per populated field, in
// fixed order: Name, Version, Release, Summary, Author-email, Author,
// License, Requires, a Links sub-block (Homepage, Documentation, Source,
// indented two spaces), Dependencies as a set literal, and Optional
// Dependencies grouped by extra.
func Render(w io.Writer, r *Record) error {
	var b strings.Builder

	line := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s: %s\n", label, value)
		}
	}

	line("Name", r.Name)
	line("Version", r.Version)
	line("Release", r.Released)
	line("Summary", r.Summary)
	line("Author-email", r.AuthorEmail)
	line("Author", r.Author)
	line("License", r.License)
	line("Requires", r.Requires)

	links := []struct{ label, url string }{
		{"Homepage", r.Homepage},
		{"Documentation", r.Documentation},
		{"Source", r.Source},
	}
	wroteHeader := false
	for _, l := range links {
		if l.url == "" {
			continue
		}
		if !wroteHeader {
			b.WriteString("Links:\n")
			wroteHeader = true
		}
		fmt.Fprintf(&b, "  %s: %s\n", l.label, l.url)
	}

	if len(r.Dependencies) > 0 {
		line("Dependencies", SetLiteral(r.Dependencies))
	}

	if len(r.OptionalDependencies) > 0 {
		b.WriteString("Optional Dependencies:\n")
		extras := make([]string, 0, len(r.OptionalDependencies))
		for extra := range r.OptionalDependencies {
			extras = append(extras, extra)
		}
		sort.Strings(extras)
		for _, extra := range extras {
			fmt.Fprintf(&b, "    %-10s --> %s\n", "'"+extra+"'", tupleLiteral(r.OptionalDependencies[extra]))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// SetLiteral renders dependency specifiers as a set literal with sorted,
// single-quoted elements: {'a>=1', 'b<2'}. Sorting makes the output
// deterministic regardless of provider ordering.
func SetLiteral(deps []string) string {
	sorted := append([]string(nil), deps...)
	sort.Strings(sorted)
	quoted := make([]string, len(sorted))
	for i, d := range sorted {
		quoted[i] = "'" + d + "'"
	}
	return "{" + strings.Join(quoted, ", ") + "}"
}

func tupleLiteral(deps []string) string {
	sorted := append([]string(nil), deps...)
	sort.Strings(sorted)
	quoted := make([]string, len(sorted))
	for i, d := range sorted {
		quoted[i] = "'" + d + "'"
	}
	return "(" + strings.Join(quoted, ", ") + ")"
}
