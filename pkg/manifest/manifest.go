package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/coveytools/covey/pkg/config"
)

// Info is the collection_info block of an installed collection's
// MANIFEST.json.
type Info struct {
	Namespace    string            `json:"namespace" yaml:"namespace"`
	Name         string            `json:"name" yaml:"name"`
	Version      string            `json:"version" yaml:"version"`
	Dependencies map[string]string `json:"dependencies" yaml:"dependencies"`
}

// Record is one collection's manifest as found on disk.
type Record struct {
	CollectionInfo Info `json:"collection_info"`

	// Path is the collection's install directory. Not part of the wire
	// format; filled in during collection.
	Path string `json:"-"`
}

// FullName returns the namespace.name identifier.
func (r Record) FullName() string {
	return r.CollectionInfo.Namespace + "." + r.CollectionInfo.Name
}

// Universe maps collection full names to their manifest records. It
// represents everything currently installed and is read-only once built.
type Universe map[string]Record

// Names returns the collection names in sorted order.
func (u Universe) Names() []string {
	names := make([]string, 0, len(u))
	for name := range u {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SplitName splits namespace.name into its two parts. Collection names
// always carry exactly one separator.
func SplitName(name string) (namespace, leaf string, err error) {
	parts := strings.Split(name, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid collection name %q: expected namespace.name", name)
	}
	return parts[0], parts[1], nil
}

// Collect walks the collections root and loads every installed
// collection's manifest. The merged universe is cached as a single JSON
// document under the cache directory for later inspection.
func Collect(root, cacheDir string, log *logrus.Logger) (Universe, error) {
	universe := Universe{}

	namespaces, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debugf("Collections root %s does not exist, nothing installed.", root)
			return universe, nil
		}
		return nil, fmt.Errorf("reading collections root %s: %w", root, err)
	}

	for _, ns := range namespaces {
		if !ns.IsDir() {
			continue
		}
		nsPath := filepath.Join(root, ns.Name())
		entries, err := os.ReadDir(nsPath)
		if err != nil {
			return nil, fmt.Errorf("reading namespace directory %s: %w", nsPath, err)
		}
		for _, entry := range entries {
			// Collections installed editable are symlinks to a source
			// tree; follow them.
			if !entry.IsDir() && !isSymlinkedDir(filepath.Join(nsPath, entry.Name())) {
				continue
			}
			manifestPath := filepath.Join(nsPath, entry.Name(), config.ManifestFile)
			record, err := loadManifest(manifestPath)
			if err != nil {
				if os.IsNotExist(err) {
					log.Debugf("No manifest at %s, skipping.", manifestPath)
					continue
				}
				return nil, err
			}
			record.Path = filepath.Join(nsPath, entry.Name())
			universe[record.FullName()] = record
			log.Debugf("Collected manifest for %s version %s.", record.FullName(), record.CollectionInfo.Version)
		}
	}

	if err := writeCache(universe, cacheDir); err != nil {
		log.Debugf("Could not cache collected manifests: %v", err)
	}

	return universe, nil
}

func isSymlinkedDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func loadManifest(path string) (Record, error) {
	var record Record
	data, err := os.ReadFile(path)
	if err != nil {
		return record, err
	}
	if err := json.Unmarshal(data, &record); err != nil {
		return record, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	if record.CollectionInfo.Namespace == "" || record.CollectionInfo.Name == "" {
		return record, fmt.Errorf("manifest %s is missing namespace or name", path)
	}
	return record, nil
}

func writeCache(universe Universe, cacheDir string) error {
	if cacheDir == "" {
		return nil
	}
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(universe, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cacheDir, "collections.json"), data, 0o644)
}

// LoadLocal reads the collection.yml of the collection in dir. This is
// how the tool identifies the one locally-addressable collection.
func LoadLocal(dir string) (Record, error) {
	path := filepath.Join(dir, config.MetadataFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, fmt.Errorf("reading %s: %w", path, err)
	}
	var info Info
	if err := yaml.Unmarshal(data, &info); err != nil {
		return Record{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	if info.Namespace == "" || info.Name == "" {
		return Record{}, fmt.Errorf("%s is missing namespace or name", path)
	}
	return Record{CollectionInfo: info, Path: dir}, nil
}
