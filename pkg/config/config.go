package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// CollectionContainer is the directory under site-packages that holds
	// all installed collections.
	CollectionContainer = "covey_collections"

	// ManifestFile is the per-collection manifest written at install time.
	ManifestFile = "MANIFEST.json"

	// MetadataFile is the source metadata file at a collection's root.
	MetadataFile = "collection.yml"

	// RequirementsFile and TestRequirementsFile are the fixed names of the
	// pinned Python requirement lists written into the cache directory by
	// introspection.
	RequirementsFile     = "requirements.txt"
	TestRequirementsFile = "test-requirements.txt"

	// PipReportFile is where the pip dry-run writes its JSON report.
	PipReportFile = "pip-report.txt"

	cacheDirName     = ".covey_cache"
	settingsFileName = ".covey.yml"
)

// Settings is the optional on-disk settings file (.covey.yml) in the
// working directory or the user's config dir.
type Settings struct {
	// Venv is the virtual environment directory.
	Venv string `yaml:"venv,omitempty" json:"venv,omitempty" jsonschema:"description=Path to the Python virtual environment"`
	// NoAnsi disables styled terminal output.
	NoAnsi bool `yaml:"no_ansi,omitempty" json:"no_ansi,omitempty" jsonschema:"description=Disable ANSI color output"`
}

// Options are the caller-supplied inputs to Load, normally CLI flags.
// Flags win over the COVEY_VENV environment variable, which wins over the
// settings file.
type Options struct {
	Venv    string
	Verbose bool
	NoAnsi  bool
	WorkDir string // defaults to the current directory
}

// Config is the resolved configuration shared by every component. It is
// built once per invocation and treated as read-only afterward.
type Config struct {
	WorkDir string
	Verbose bool
	NoAnsi  bool

	// VenvDir is the virtual environment root.
	VenvDir string
	// Interpreter is the environment's Python executable.
	Interpreter string
	// CacheDir holds introspection output and the pip dry-run report.
	CacheDir string
	// SitePackages is the environment's site-packages directory.
	SitePackages string
	// CollectionsRoot is <site-packages>/covey_collections.
	CollectionsRoot string
}

// Load resolves the configuration from options, environment, and the
// settings file. Interpreter discovery is deliberately naive: the
// interpreter is <venv>/bin/python and site-packages is located with a
// single glob; anything fancier belongs to the tool that made the venv.
func Load(opts Options) (*Config, error) {
	workDir := opts.WorkDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("determining working directory: %w", err)
		}
		workDir = wd
	}

	settings, err := loadSettings(workDir)
	if err != nil {
		return nil, err
	}

	venv := opts.Venv
	if venv == "" {
		venv = os.Getenv("COVEY_VENV")
	}
	if venv == "" {
		venv = settings.Venv
	}
	if venv == "" {
		venv = filepath.Join(workDir, ".venv")
	}
	if !filepath.IsAbs(venv) {
		venv = filepath.Join(workDir, venv)
	}

	sitePackages, err := findSitePackages(venv)
	if err != nil {
		return nil, err
	}

	return &Config{
		WorkDir:         workDir,
		Verbose:         opts.Verbose,
		NoAnsi:          opts.NoAnsi || settings.NoAnsi,
		VenvDir:         venv,
		Interpreter:     filepath.Join(venv, "bin", "python"),
		CacheDir:        filepath.Join(venv, cacheDirName),
		SitePackages:    sitePackages,
		CollectionsRoot: filepath.Join(sitePackages, CollectionContainer),
	}, nil
}

// DiscoveredRequirements is the path of the introspected main
// requirements file.
func (c *Config) DiscoveredRequirements() string {
	return filepath.Join(c.CacheDir, RequirementsFile)
}

// DiscoveredTestRequirements is the path of the introspected test
// requirements file.
func (c *Config) DiscoveredTestRequirements() string {
	return filepath.Join(c.CacheDir, TestRequirementsFile)
}

// PipReport is the path the pip dry-run report is written to.
func (c *Config) PipReport() string {
	return filepath.Join(c.CacheDir, PipReportFile)
}

// EnsureCacheDir creates the cache directory if needed.
func (c *Config) EnsureCacheDir() error {
	if err := os.MkdirAll(c.CacheDir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory %s: %w", c.CacheDir, err)
	}
	return nil
}

func loadSettings(workDir string) (Settings, error) {
	var settings Settings
	path := filepath.Join(workDir, settingsFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return settings, fmt.Errorf("reading settings file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return settings, fmt.Errorf("parsing settings file %s: %w", path, err)
	}
	return settings, nil
}

// findSitePackages locates <venv>/lib/python*/site-packages. A venv
// without one is tolerated (fresh environment); the path is still
// computed so later installs land in a predictable place.
func findSitePackages(venv string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(venv, "lib", "python*", "site-packages"))
	if err != nil {
		return "", fmt.Errorf("locating site-packages under %s: %w", venv, err)
	}
	if len(matches) == 0 {
		return filepath.Join(venv, "lib", "python3", "site-packages"), nil
	}
	return matches[0], nil
}
