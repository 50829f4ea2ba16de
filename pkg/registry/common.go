// Package registry provides shared HTTP plumbing and helpers for the clients
// that talk to package indexes and source hosts.
package registry

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const defaultTimeoutSeconds = 10

var (
	// ErrNotFound is returned when a package or resource doesn't exist in the index.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors, non-2xx responses).
	ErrNetwork = errors.New("network error")
)

// NewHTTPClient creates an HTTP client with the given timeout in seconds.
// A non-positive timeout falls back to a 10 second default.
func NewHTTPClient(timeoutSeconds int) *http.Client {
	if timeoutSeconds <= 0 {
		timeoutSeconds = defaultTimeoutSeconds
	}
	return &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second}
}

var pkgNameSeparatorRE = regexp.MustCompile(`[-_.]+`)

// NormalizePkgName converts a package name to its canonical form.
// Applies lowercase and collapses each run of hyphens, underscores, and dots
// to a single hyphen, following PEP 503 normalization rules used by PyPI.
func NormalizePkgName(name string) string {
	return pkgNameSeparatorRE.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

var repoURLReplacer = strings.NewReplacer(
	"git@github.com:", "https://github.com/",
	"git://github.com/", "https://github.com/",
)

// NormalizeRepoURL converts various repository URL formats to canonical HTTPS
// form. Handles git@, git://, and git+ prefixes, and removes .git suffixes.
// Returns empty string if raw is empty.
func NormalizeRepoURL(raw string) string {
	if raw == "" {
		return ""
	}
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "git+")
	s = repoURLReplacer.Replace(s)
	return strings.TrimSuffix(s, ".git")
}

var repoURLKeys = []string{"Source", "Repository", "Code", "Homepage"}

// ExtractRepoURL finds a source-host owner and repo from package URLs.
// It searches through urls using standard keys (Source, Repository, Code,
// Homepage) and falls back to homepage if no match is found. The re parameter
// should match URLs and capture owner (group 1) and repo name (group 2).
// Returns ok=false if no valid repository URL is found.
func ExtractRepoURL(re *regexp.Regexp, urls map[string]string, homepage string) (owner, repo string, ok bool) {
	match := func(u string) bool {
		if strings.Contains(u, "/sponsors/") {
			return false
		}
		if m := re.FindStringSubmatch(NormalizeRepoURL(u)); len(m) >= 3 {
			owner = m[1]
			repo = strings.TrimSuffix(m[2], ".git")
			ok = true
			return true
		}
		return false
	}

	for _, key := range repoURLKeys {
		if u, exists := urls[key]; exists && match(u) {
			return
		}
	}
	for _, u := range urls {
		if match(u) {
			return
		}
	}
	if homepage != "" {
		match(homepage)
	}
	return
}
