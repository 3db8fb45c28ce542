// Package checker verifies an installed collection tree against its
// declared dependency constraints, and the environment's Python packages
// against the requirements discovered by introspection.
package checker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/sirupsen/logrus"

	"github.com/coveytools/covey/pkg/config"
	"github.com/coveytools/covey/pkg/introspect"
	"github.com/coveytools/covey/pkg/manifest"
	"github.com/coveytools/covey/pkg/output"
	"github.com/coveytools/covey/pkg/runner"
)

// continueOnDryRunFailure keeps the check going when the pip dry-run
// exits non-zero: the report file it leaves behind may still hold usable
// install data. Flip this to abort instead.
const continueOnDryRunFailure = true

// Checker runs the two verification phases: collection-to-collection
// constraints first, Python dependencies second. Findings are advisory;
// only malformed manifests or reports fail the run.
type Checker struct {
	cfg     *config.Config
	local   *manifest.Record
	log     *logrus.Logger
	console *output.Console

	// run is swapped out in tests to avoid invoking pip.
	run func(ctx context.Context, cmd runner.Command) error

	collectionsMissing bool
}

// New creates a checker. local is the collection in the working
// directory, nil when the check is run outside one.
func New(cfg *config.Config, local *manifest.Record, log *logrus.Logger, console *output.Console) *Checker {
	return &Checker{
		cfg:     cfg,
		local:   local,
		log:     log,
		console: console,
		run:     runner.Run,
	}
}

// Run executes both phases in order. The collection phase must complete
// first: the Python phase's output depends on whether collections were
// found missing.
func (c *Checker) Run(ctx context.Context) error {
	universe, err := manifest.Collect(c.cfg.CollectionsRoot, c.cfg.CacheDir, c.log)
	if err != nil {
		return err
	}
	if err := c.collectionDeps(universe); err != nil {
		return err
	}
	return c.pythonDeps(ctx, universe)
}

// collectionDeps validates every installed collection's declared
// dependency constraints against the universe. Findings are logged and
// aggregated; only a malformed constraint or version aborts.
func (c *Checker) collectionDeps(universe manifest.Universe) error {
	missing := false
	for _, name := range universe.Names() {
		details := universe[name]
		c.log.Debugf("Checking dependencies for %s.", name)

		deps := details.CollectionInfo.Dependencies
		if len(deps) == 0 {
			c.log.Debugf("Collection %s has no dependencies.", name)
			continue
		}

		depNames := make([]string, 0, len(deps))
		for dep := range deps {
			depNames = append(depNames, dep)
		}
		sort.Strings(depNames)

		for _, dep := range depNames {
			constraint := deps[dep]
			spec, err := parseConstraint(constraint)
			if err != nil {
				return fmt.Errorf("collection %s declares invalid constraint %q for %s: %w", name, constraint, dep, err)
			}

			installed, ok := universe[dep]
			if !ok {
				c.log.Warnf("Collection %s requires %s %s but it is not installed.", name, dep, constraint)
				c.console.Hint("Try running `covey install %s`", dep)
				missing = true
				continue
			}

			depVersion := installed.CollectionInfo.Version
			version, err := semver.NewVersion(depVersion)
			if err != nil {
				return fmt.Errorf("collection %s has invalid version %q: %w", dep, depVersion, err)
			}

			if spec != nil && !spec.Check(version) {
				c.log.Warnf("Collection %s requires %s %s but %s %s is installed.", name, dep, constraint, dep, depVersion)
				missing = true
			} else {
				c.log.Debugf("✓ Collection %s requires %s %s and %s %s is installed.", name, dep, constraint, dep, depVersion)
			}
		}
	}

	if !missing {
		c.console.Note("✓ All dependent collections are installed.")
	}
	c.collectionsMissing = missing
	return nil
}

// parseConstraint builds the constraint set for one declared dependency.
// An empty or wildcard expression has no clauses and is satisfied by any
// version, reported here as a nil constraint.
func parseConstraint(expr string) (*semver.Constraints, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" || expr == "*" {
		return nil, nil
	}
	return semver.NewConstraint(expr)
}

// pipReport is the machine-readable dry-run report. Entries under
// "install" are packages that would be installed, i.e. are missing.
type pipReport struct {
	Install []struct {
		Metadata struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"metadata"`
	} `json:"install"`
}

// pythonDeps delegates Python resolution to a pip dry-run and reports
// what the resulting report says would be installed.
func (c *Checker) pythonDeps(ctx context.Context, universe manifest.Universe) error {
	if err := introspect.Run(c.cfg, universe, c.local, c.log); err != nil {
		return err
	}

	reportPath := c.cfg.PipReport()
	cmd := runner.Command{
		Name: c.cfg.Interpreter,
		Args: []string{
			"-m", "pip", "install",
			"-r", c.cfg.DiscoveredRequirements(),
			"--dry-run",
			"--report", reportPath,
		},
		Verbose: c.cfg.Verbose,
		Logger:  c.log,
	}
	if err := c.run(ctx, cmd); err != nil {
		c.log.Errorf("Failed to check python dependencies: %v", err)
		if !continueOnDryRunFailure {
			return err
		}
	}

	data, err := os.ReadFile(reportPath)
	if err != nil {
		return fmt.Errorf("reading pip report %s: %w", reportPath, err)
	}
	var report pipReport
	if err := json.Unmarshal(data, &report); err != nil {
		return fmt.Errorf("parsing pip report %s: %w", reportPath, err)
	}

	if len(report.Install) == 0 {
		c.console.Note("✓ All Python dependencies are installed.")
		return nil
	}

	missing := make([]string, 0, len(report.Install))
	for _, pkg := range report.Install {
		missing = append(missing, fmt.Sprintf("%s==%s", pkg.Metadata.Name, pkg.Metadata.Version))
	}

	c.log.Warnf("Missing Python dependencies: %s", output.OxfordJoin(missing))
	c.console.Hint("Try running `pip install %s`.", strings.Join(missing, " "))

	if c.collectionsMissing {
		c.log.Warn("Python packages required by missing collections are not included.")
	}
	return nil
}
