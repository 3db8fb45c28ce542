// Package uninstaller removes a collection, its dependency collections,
// and their pinned Python requirements from the environment.
package uninstaller

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/coveytools/covey/pkg/config"
	"github.com/coveytools/covey/pkg/deptree"
	"github.com/coveytools/covey/pkg/manifest"
	"github.com/coveytools/covey/pkg/output"
	"github.com/coveytools/covey/pkg/runner"
)

// SelfTarget addresses the collection in the working directory.
const SelfTarget = "."

// Uninstaller removes the local collection from the environment. Python
// requirement uninstalls are hard failures; filesystem cleanup tolerates
// anything already absent so re-running after an interruption is safe.
type Uninstaller struct {
	cfg     *config.Config
	local   manifest.Record
	log     *logrus.Logger
	console *output.Console

	// run is swapped out in tests to avoid invoking pip.
	run func(ctx context.Context, cmd runner.Command) error
}

// New creates an uninstaller for the locally-resolvable collection.
func New(cfg *config.Config, local manifest.Record, log *logrus.Logger, console *output.Console) *Uninstaller {
	return &Uninstaller{
		cfg:     cfg,
		local:   local,
		log:     log,
		console: console,
		run:     runner.Run,
	}
}

// Run uninstalls the target collection. Only the local collection (or
// the "." self reference) can be uninstalled; anything else is rejected
// before any mutation happens.
func (u *Uninstaller) Run(ctx context.Context, target string) error {
	localName := u.local.FullName()
	if target != SelfTarget && target != localName {
		u.log.Errorf("Only uninstallation of the local collection %s is supported at this time.", localName)
		return fmt.Errorf("cannot uninstall %q: only the local collection %s can be uninstalled", target, localName)
	}

	if err := u.pipUninstall(ctx, u.cfg.DiscoveredRequirements()); err != nil {
		return err
	}
	if err := u.pipUninstall(ctx, u.cfg.DiscoveredTestRequirements()); err != nil {
		return err
	}
	return u.removeCollections()
}

// pipUninstall removes the packages pinned in one requirements file. A
// missing or empty file means there is nothing to do; a pip failure
// aborts the whole uninstall.
func (u *Uninstaller) pipUninstall(ctx context.Context, requirementsFile string) error {
	info, err := os.Stat(requirementsFile)
	if err != nil {
		if os.IsNotExist(err) {
			u.log.Infof("Requirements file %s does not exist, skipping", requirementsFile)
			return nil
		}
		return fmt.Errorf("checking requirements file %s: %w", requirementsFile, err)
	}
	if info.Size() == 0 {
		u.log.Infof("Requirements file %s is empty, skipping", requirementsFile)
		return nil
	}

	u.log.Infof("Uninstalling python requirements from %s", requirementsFile)
	cmd := runner.Command{
		Name:    u.cfg.Interpreter,
		Args:    []string{"-m", "pip", "uninstall", "-r", requirementsFile, "-y"},
		Verbose: u.cfg.Verbose,
		Logger:  u.log,
	}
	if err := u.run(ctx, cmd); err != nil {
		return fmt.Errorf("failed to uninstall requirements from %s: %w", requirementsFile, err)
	}
	return nil
}

// removeCollections deletes the target collection, its transitive
// dependency collections, and their install-metadata directories, then
// prunes namespace directories left empty.
func (u *Uninstaller) removeCollections() error {
	universe, err := manifest.Collect(u.cfg.CollectionsRoot, u.cfg.CacheDir, u.log)
	if err != nil {
		return err
	}

	localName := u.local.FullName()
	dependencies, err := deptree.Build(universe).Transitive(localName)
	if err != nil {
		return err
	}
	names := append(dependencies, localName)

	collectionRoot := u.cfg.CollectionsRoot
	var namespaceRoots []string

	for _, name := range names {
		namespace, leaf, err := manifest.SplitName(name)
		if err != nil {
			return err
		}
		namespaceRoot := filepath.Join(collectionRoot, namespace)
		namespaceRoots = append(namespaceRoots, namespaceRoot)

		collectionPath := filepath.Join(namespaceRoot, leaf)
		u.log.Debugf("Checking %s at %s", name, collectionPath)

		info, err := os.Lstat(collectionPath)
		switch {
		case err == nil:
			u.log.Debugf("Exists: %s", collectionPath)
			if info.Mode()&os.ModeSymlink != 0 {
				// Unlink only: never follow into the link target.
				if err := os.Remove(collectionPath); err != nil {
					return fmt.Errorf("removing symlink %s: %w", collectionPath, err)
				}
			} else {
				if err := os.RemoveAll(collectionPath); err != nil {
					return fmt.Errorf("removing %s: %w", collectionPath, err)
				}
			}
			u.log.Infof("Removed %s: %s", name, collectionPath)
		case os.IsNotExist(err):
			u.log.Debugf("Failed to find %s: %s", name, collectionPath)
		default:
			return fmt.Errorf("inspecting %s: %w", collectionPath, err)
		}

		if err := u.removeInfoDirs(collectionRoot, name); err != nil {
			return err
		}
	}

	for _, namespaceRoot := range namespaceRoots {
		if err := os.Remove(namespaceRoot); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			u.log.Warnf("Failed to remove collection namespace root: %v", err)
			continue
		}
		u.log.Infof("Removed collection namespace root: %s", namespaceRoot)
	}

	// Quieter than the namespace case: the collections root commonly
	// still holds unrelated collections.
	if err := os.Remove(collectionRoot); err != nil {
		if !os.IsNotExist(err) {
			u.log.Debugf("Failed to remove collection root: %v", err)
		}
		return nil
	}
	u.log.Infof("Removed collection root: %s", collectionRoot)
	return nil
}

// removeInfoDirs deletes sibling install-metadata directories, e.g.
// "<namespace>.<name>-1.2.3.info" next to the namespace directories.
func (u *Uninstaller) removeInfoDirs(collectionRoot, name string) error {
	entries, err := os.ReadDir(collectionRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading collection root %s: %w", collectionRoot, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if !strings.HasPrefix(entry.Name(), name) || filepath.Ext(entry.Name()) != ".info" {
			continue
		}
		path := filepath.Join(collectionRoot, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("removing %s: %w", path, err)
		}
		u.log.Infof("Removed %s*.info: %s", name, path)
	}
	return nil
}
