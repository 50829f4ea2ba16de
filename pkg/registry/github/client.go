// Package github discovers dependency specifiers from a package's source
// repository on GitHub.
//
// PyPI's requires_dist is authoritative, but older sdist-only releases often
// ship without it. For those, the package's repository manifests are the next
// best source: pyproject.toml when present, a setup.py install_requires list
// otherwise. Unversioned queries read the default branch; versioned queries
// pin to the release tag so the manifest matches the queried release.
package github

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/pipext/pipext/pkg/registry"
	"github.com/pipext/pipext/pkg/report"
)

// Default endpoints for api.github.com and raw file access.
const (
	DefaultAPIBaseURL = "https://api.github.com"
	DefaultRawBaseURL = "https://raw.githubusercontent.com"
)

// maxTagPages bounds the tag search for versioned queries. 100 tags per page
// covers ten years of releases for most projects.
const maxTagPages = 10

var repoRE = regexp.MustCompile(`github\.com/([^/]+)/([^/#?]+)`)

// ErrNoSource is returned when a record carries no usable GitHub URL.
var ErrNoSource = errors.New("no github source repository found")

// Client fetches repository metadata and raw manifest files.
// It implements the pypi.SourceResolver interface.
type Client struct {
	http    *registry.Client
	apiBase string
	rawBase string
	token   string
}

// NewClient creates a GitHub client. Empty base URLs fall back to the public
// GitHub endpoints. The token is optional; when set it is sent as a bearer
// token on API requests to raise the unauthenticated rate limit.
func NewClient(httpClient *registry.Client, apiBase, rawBase, token string) *Client {
	if apiBase == "" {
		apiBase = DefaultAPIBaseURL
	}
	if rawBase == "" {
		rawBase = DefaultRawBaseURL
	}
	return &Client{
		http:    httpClient,
		apiBase: strings.TrimSuffix(apiBase, "/"),
		rawBase: strings.TrimSuffix(rawBase, "/"),
		token:   token,
	}
}

// Dependencies resolves runtime and optional dependencies from the record's
// source repository. When version is empty the repository's default branch is
// used; otherwise the matching release tag.
//
// Returns [ErrNoSource] when the record links to no GitHub repository, and
// [registry.ErrNotFound] when neither pyproject.toml nor setup.py exists at
// the resolved ref.
func (c *Client) Dependencies(ctx context.Context, rec *report.Record, version string) ([]string, map[string][]string, error) {
	owner, repo, ok := repoFromRecord(rec)
	if !ok {
		return nil, nil, ErrNoSource
	}

	ref, err := c.resolveRef(ctx, owner, repo, version)
	if err != nil {
		return nil, nil, err
	}

	content, err := c.rawFile(ctx, owner, repo, ref, "pyproject.toml")
	if err == nil {
		deps, extras, perr := parsePyproject(content)
		if perr == nil && (len(deps) > 0 || len(extras) > 0) {
			return deps, extras, nil
		}
	} else if !errors.Is(err, registry.ErrNotFound) {
		return nil, nil, err
	}

	content, err = c.rawFile(ctx, owner, repo, ref, "setup.py")
	if err != nil {
		return nil, nil, err
	}
	return parseSetupPy(content), nil, nil
}

func (c *Client) resolveRef(ctx context.Context, owner, repo, version string) (string, error) {
	if version == "" {
		return c.defaultBranch(ctx, owner, repo)
	}
	return c.releaseTag(ctx, owner, repo, version)
}

func (c *Client) defaultBranch(ctx context.Context, owner, repo string) (string, error) {
	var data struct {
		DefaultBranch string `json:"default_branch"`
	}
	url := fmt.Sprintf("%s/repos/%s/%s", c.apiBase, owner, repo)
	if err := c.http.GetWithHeaders(ctx, url, c.apiHeaders(), &data); err != nil {
		return "", err
	}
	if data.DefaultBranch == "" {
		return "", fmt.Errorf("repo %s/%s: %w", owner, repo, registry.ErrNotFound)
	}
	return data.DefaultBranch, nil
}

// releaseTag finds the tag for a release version. Exact matches ("v1.2.3" or
// "1.2.3") win; otherwise the first tag containing the version string is used,
// which covers naming schemes like "release-1.2.3".
func (c *Client) releaseTag(ctx context.Context, owner, repo, version string) (string, error) {
	var contains string
	for page := 1; page <= maxTagPages; page++ {
		var tags []struct {
			Name string `json:"name"`
		}
		url := fmt.Sprintf("%s/repos/%s/%s/tags?per_page=100&page=%d", c.apiBase, owner, repo, page)
		if err := c.http.GetWithHeaders(ctx, url, c.apiHeaders(), &tags); err != nil {
			return "", err
		}
		if len(tags) == 0 {
			break
		}
		for _, tag := range tags {
			if tag.Name == version || tag.Name == "v"+version {
				return tag.Name, nil
			}
			if contains == "" && strings.Contains(tag.Name, version) {
				contains = tag.Name
			}
		}
		if contains != "" {
			return contains, nil
		}
	}
	return "", fmt.Errorf("tag for version %s: %w", version, registry.ErrNotFound)
}

func (c *Client) rawFile(ctx context.Context, owner, repo, ref, path string) (string, error) {
	url := fmt.Sprintf("%s/%s/%s/%s/%s", c.rawBase, owner, repo, ref, path)
	return c.http.GetText(ctx, url)
}

func (c *Client) apiHeaders() map[string]string {
	headers := map[string]string{"Accept": "application/vnd.github+json"}
	if c.token != "" {
		headers["Authorization"] = "Bearer " + c.token
	}
	return headers
}

func repoFromRecord(rec *report.Record) (owner, repo string, ok bool) {
	urls := map[string]string{
		"Source":   rec.Source,
		"Homepage": rec.Homepage,
	}
	return registry.ExtractRepoURL(repoRE, urls, rec.Homepage)
}
