// Package pypi implements metadata lookup against the PyPI JSON API.
package pypi

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	pkgerrors "github.com/pipext/pipext/pkg/errors"
	"github.com/pipext/pipext/pkg/registry"
	"github.com/pipext/pipext/pkg/report"
)

// DefaultBaseURL is the production PyPI JSON API endpoint.
const DefaultBaseURL = "https://pypi.org/pypi"

var extraMarkerRE = regexp.MustCompile(`extra\s*==\s*['"]([^'"]+)['"]`)

// SourceResolver supplies dependency specifiers from a package's source
// repository. It is consulted only when the index reports no dependencies
// for the queried release.
type SourceResolver interface {
	Dependencies(ctx context.Context, rec *report.Record, version string) ([]string, map[string][]string, error)
}

// Client provides access to the PyPI package index.
//
// It implements [report.Provider]. Each lookup is a single HTTP attempt;
// nothing is cached between invocations. All methods are safe for concurrent
// use by multiple goroutines.
type Client struct {
	http    *registry.Client
	baseURL string
	source  SourceResolver
	logger  func(msg string, args ...any)
}

// NewClient creates a PyPI client.
//
// source is the optional fallback for dependency discovery when the index
// has no requires_dist data; pass nil to disable the fallback. logger, if
// non-nil, receives warnings about soft failures (e.g. a fallback fetch that
// did not pan out).
func NewClient(httpClient *registry.Client, baseURL string, source SourceResolver, logger func(msg string, args ...any)) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		source:  source,
		logger:  logger,
	}
}

// Lookup retrieves metadata for the queried package release.
//
// The name is passed to the index as given; PyPI applies its own PEP 503
// normalization and never substitutes a different version than the one
// queried — a versioned query for a release that does not exist is a 404.
//
// Returns:
//   - a populated Record on success
//   - a PACKAGE_NOT_FOUND error if the package or version doesn't exist
//   - a NETWORK_ERROR for HTTP and decoding failures, with the cause preserved
func (c *Client) Lookup(ctx context.Context, q report.Query) (*report.Record, error) {
	endpoint := fmt.Sprintf("%s/%s/json", c.baseURL, url.PathEscape(q.Name))
	if q.Version != "" {
		endpoint = fmt.Sprintf("%s/%s/%s/json", c.baseURL, url.PathEscape(q.Name), url.PathEscape(q.Version))
	}

	var data apiResponse
	if err := c.http.Get(ctx, endpoint, &data); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			if q.Version != "" {
				return nil, pkgerrors.Wrap(pkgerrors.ErrCodePackageNotFound, err,
					"no project named %q with version %q was found", q.Name, q.Version)
			}
			return nil, pkgerrors.Wrap(pkgerrors.ErrCodePackageNotFound, err,
				"no project named %q was found", q.Name)
		}
		return nil, pkgerrors.Wrap(pkgerrors.ErrCodeNetwork, err, "pypi lookup for %q failed", q.Name)
	}

	rec := &report.Record{
		Name:          data.Info.Name,
		Version:       data.Info.Version,
		Released:      releaseDate(data.URLs),
		Summary:       data.Info.Summary,
		AuthorEmail:   data.Info.AuthorEmail,
		Author:        data.Info.Author,
		License:       extractLicenseType(data.Info.License, data.Info.Classifiers),
		Requires:      pythonConstraint(data.Info.RequiresPython),
		Homepage:      pickURL(data.Info.ProjectURLs, data.Info.HomePage, "Homepage", "homepage", "Home"),
		Documentation: pickURL(data.Info.ProjectURLs, data.Info.DocsURL, "Documentation", "documentation", "Docs"),
		Source:        pickURL(data.Info.ProjectURLs, "", "Source", "Repository", "Source Code", "Code", "GitHub"),
	}

	rec.Dependencies, rec.OptionalDependencies = extractDeps(data.Info.RequiresDist)
	if len(rec.Dependencies) == 0 && c.source != nil {
		deps, extras, err := c.source.Dependencies(ctx, rec, q.Version)
		switch {
		case err != nil:
			c.warnf("Dependency fallback for %s failed: %v", rec.Name, err)
		default:
			rec.Dependencies = deps
			if len(rec.OptionalDependencies) == 0 {
				rec.OptionalDependencies = extras
			}
		}
	}

	return rec, nil
}

func (c *Client) warnf(msg string, args ...any) {
	if c.logger != nil {
		c.logger(msg, args...)
	}
}

// extractDeps splits requires_dist entries into runtime dependencies and
// extra-gated optional dependencies. Extra markers move the specifier into
// its extra's group; any other environment marker (platform, Python version)
// stays on the specifier verbatim. Parenthesized constraint syntax
// ("chardet (<4,>=3.0.2)") is normalized to the compact form.
func extractDeps(requires []string) ([]string, map[string][]string) {
	seen := make(map[string]bool)
	var deps []string
	extras := make(map[string][]string)

	for _, req := range requires {
		spec, marker, _ := strings.Cut(req, ";")
		spec = cleanSpecifier(spec)
		if spec == "" {
			continue
		}
		marker = strings.TrimSpace(marker)
		if m := extraMarkerRE.FindStringSubmatch(marker); len(m) > 1 {
			extras[m[1]] = append(extras[m[1]], spec)
			continue
		}
		if marker != "" {
			spec += "; " + marker
		}
		if !seen[spec] {
			seen[spec] = true
			deps = append(deps, spec)
		}
	}

	sort.Strings(deps)
	if len(extras) == 0 {
		extras = nil
	}
	return deps, extras
}

var specifierCleaner = strings.NewReplacer("(", "", ")", "", " ", "")

func cleanSpecifier(spec string) string {
	return specifierCleaner.Replace(strings.TrimSpace(spec))
}

func pythonConstraint(requiresPython string) string {
	if requiresPython == "" {
		return ""
	}
	return "Python " + strings.TrimSpace(requiresPython)
}

// pickURL selects a project URL by key priority, falling back to a legacy
// top-level field when project_urls has no match.
func pickURL(urls map[string]any, fallback string, keys ...string) string {
	for _, key := range keys {
		if v, ok := urls[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return fallback
}

func releaseDate(files []apiFile) string {
	var earliest time.Time
	for _, f := range files {
		if f.UploadTime.IsZero() {
			continue
		}
		if earliest.IsZero() || f.UploadTime.Before(earliest) {
			earliest = f.UploadTime
		}
	}
	if earliest.IsZero() {
		return ""
	}
	return earliest.Format("Jan 2, 2006")
}

type apiResponse struct {
	Info apiInfo   `json:"info"`
	URLs []apiFile `json:"urls"`
}

type apiInfo struct {
	Name           string         `json:"name"`
	Version        string         `json:"version"`
	Summary        string         `json:"summary"`
	Author         string         `json:"author"`
	AuthorEmail    string         `json:"author_email"`
	License        string         `json:"license"`
	Classifiers    []string       `json:"classifiers"`
	RequiresDist   []string       `json:"requires_dist"`
	RequiresPython string         `json:"requires_python"`
	ProjectURLs    map[string]any `json:"project_urls"`
	HomePage       string         `json:"home_page"`
	DocsURL        string         `json:"docs_url"`
}

type apiFile struct {
	UploadTime time.Time `json:"upload_time_iso_8601"`
}

// extractLicenseType extracts a short license identifier from PyPI data.
// It prefers the classifier (e.g., "License :: OSI Approved :: MIT License" -> "MIT License")
// and falls back to the license field if it's short enough.
func extractLicenseType(license string, classifiers []string) string {
	for _, c := range classifiers {
		if strings.HasPrefix(c, "License :: ") {
			parts := strings.Split(c, " :: ")
			if len(parts) >= 3 {
				return parts[len(parts)-1]
			}
		}
	}

	// If license field is short (likely just the type), use it
	if license != "" && len(license) < 100 && !strings.Contains(license, "\n") {
		return strings.TrimSpace(license)
	}

	// Otherwise, try to extract type from the beginning of the license text
	if license != "" {
		firstLine := strings.TrimSpace(strings.Split(license, "\n")[0])
		if len(firstLine) < 50 {
			return firstLine
		}
	}

	return ""
}
