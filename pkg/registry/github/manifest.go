package github

import (
	"regexp"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// pyprojectFile mirrors the PEP 621 [project] table; everything else in the
// file is ignored.
type pyprojectFile struct {
	Project struct {
		Dependencies         []string            `toml:"dependencies"`
		OptionalDependencies map[string][]string `toml:"optional-dependencies"`
	} `toml:"project"`
}

// parsePyproject reads [project] dependencies and optional-dependencies from
// pyproject.toml content.
func parsePyproject(content string) ([]string, map[string][]string, error) {
	var f pyprojectFile
	if err := toml.Unmarshal([]byte(content), &f); err != nil {
		return nil, nil, err
	}

	deps := trimAll(f.Project.Dependencies)
	var extras map[string][]string
	if len(f.Project.OptionalDependencies) > 0 {
		extras = make(map[string][]string, len(f.Project.OptionalDependencies))
		for extra, list := range f.Project.OptionalDependencies {
			extras[extra] = trimAll(list)
		}
	}
	return deps, extras, nil
}

var (
	installRequiresRE = regexp.MustCompile(`(?s)(?:install_requires|requires)\s*=\s*\[(.*?)\]`)
	stringLiteralRE   = regexp.MustCompile(`["']([^"']+)["']`)
)

// parseSetupPy extracts the install_requires (or requires) list from setup.py
// content by regex. setup.py is arbitrary Python, so this only handles the
// common case of an inline list of string literals.
func parseSetupPy(content string) []string {
	m := installRequiresRE.FindStringSubmatch(content)
	if m == nil {
		return nil
	}

	seen := make(map[string]bool)
	var deps []string
	for _, lit := range stringLiteralRE.FindAllStringSubmatch(m[1], -1) {
		spec := strings.TrimSpace(lit[1])
		if spec == "" || seen[spec] {
			continue
		}
		seen[spec] = true
		deps = append(deps, spec)
	}
	sort.Strings(deps)
	return deps
}

func trimAll(specs []string) []string {
	var out []string
	for _, s := range specs {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
