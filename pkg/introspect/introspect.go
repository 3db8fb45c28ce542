package introspect

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"

	"github.com/coveytools/covey/pkg/config"
	"github.com/coveytools/covey/pkg/manifest"
)

// Run discovers the Python requirements of every installed collection
// (plus the local one, if any) and writes the pinned requirement lists
// into the cache directory. The dependency check's pip dry-run reads the
// main list; the uninstaller consumes both.
func Run(cfg *config.Config, universe manifest.Universe, local *manifest.Record, log *logrus.Logger) error {
	if err := cfg.EnsureCacheDir(); err != nil {
		return err
	}

	dirs := make([]string, 0, len(universe)+1)
	for _, record := range universe {
		dirs = append(dirs, record.Path)
	}
	if local != nil && local.Path != "" {
		dirs = append(dirs, local.Path)
	}
	sort.Strings(dirs)

	var main, test []string
	for _, dir := range dirs {
		m, t, err := requirementsFor(dir)
		if err != nil {
			return err
		}
		main = append(main, m...)
		test = append(test, t...)
	}

	if err := writeRequirements(cfg.DiscoveredRequirements(), main); err != nil {
		return err
	}
	if err := writeRequirements(cfg.DiscoveredTestRequirements(), test); err != nil {
		return err
	}
	log.Debugf("Discovered %d python requirements and %d test requirements.", len(dedupe(main)), len(dedupe(test)))
	return nil
}

// requirementsFor gathers requirement specifiers declared by one
// collection directory: requirements.txt, test-requirements.txt, and
// pyproject.toml project dependencies.
func requirementsFor(dir string) (main, test []string, err error) {
	main, err = readRequirementsFile(filepath.Join(dir, config.RequirementsFile))
	if err != nil {
		return nil, nil, err
	}
	test, err = readRequirementsFile(filepath.Join(dir, config.TestRequirementsFile))
	if err != nil {
		return nil, nil, err
	}

	pyMain, pyTest, err := readPyproject(filepath.Join(dir, "pyproject.toml"))
	if err != nil {
		return nil, nil, err
	}
	return append(main, pyMain...), append(test, pyTest...), nil
}

func readRequirementsFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var specs []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		specs = append(specs, line)
	}
	return specs, nil
}

// pyproject is the subset of pyproject.toml this tool cares about.
type pyproject struct {
	Project struct {
		Dependencies         []string            `toml:"dependencies"`
		OptionalDependencies map[string][]string `toml:"optional-dependencies"`
	} `toml:"project"`
}

func readPyproject(path string) (main, test []string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var proj pyproject
	if err := toml.Unmarshal(data, &proj); err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return proj.Project.Dependencies, proj.Project.OptionalDependencies["test"], nil
}

func writeRequirements(path string, specs []string) error {
	specs = dedupe(specs)
	var b strings.Builder
	for _, spec := range specs {
		b.WriteString(spec)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func dedupe(specs []string) []string {
	seen := make(map[string]bool, len(specs))
	var out []string
	for _, spec := range specs {
		if seen[spec] {
			continue
		}
		seen[spec] = true
		out = append(out, spec)
	}
	sort.Strings(out)
	return out
}
