package uninstaller

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coveytools/covey/pkg/config"
	"github.com/coveytools/covey/pkg/manifest"
	"github.com/coveytools/covey/pkg/output"
	"github.com/coveytools/covey/pkg/runner"
)

func newTestUninstaller(t *testing.T) (*Uninstaller, *logtest.Hook) {
	t.Helper()

	venv := t.TempDir()
	sitePackages := filepath.Join(venv, "lib", "python3", "site-packages")
	cfg := &config.Config{
		WorkDir:         t.TempDir(),
		VenvDir:         venv,
		Interpreter:     filepath.Join(venv, "bin", "python"),
		CacheDir:        filepath.Join(venv, ".covey_cache"),
		SitePackages:    sitePackages,
		CollectionsRoot: filepath.Join(sitePackages, config.CollectionContainer),
	}

	log, hook := logtest.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	local := manifest.Record{
		CollectionInfo: manifest.Info{
			Namespace:    "ns1",
			Name:         "app",
			Version:      "1.0.0",
			Dependencies: map[string]string{"ns2.lib": ">=1.0"},
		},
		Path: cfg.WorkDir,
	}

	u := New(cfg, local, log, output.New(output.Options{Writer: &bytes.Buffer{}}))
	return u, hook
}

// installCollection lays down a collection directory with its manifest.
func installCollection(t *testing.T, root, namespace, name, version string, deps map[string]string) string {
	t.Helper()
	dir := filepath.Join(root, namespace, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	record := manifest.Record{
		CollectionInfo: manifest.Info{
			Namespace:    namespace,
			Name:         name,
			Version:      version,
			Dependencies: deps,
		},
	}
	data, err := json.Marshal(record)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ManifestFile), data, 0o644))
	return dir
}

func TestRunRejectsForeignTarget(t *testing.T) {
	u, hook := newTestUninstaller(t)

	installed := installCollection(t, u.cfg.CollectionsRoot, "ns1", "app", "1.0.0", nil)

	var pipCalls int
	u.run = func(ctx context.Context, cmd runner.Command) error {
		pipCalls++
		return nil
	}

	err := u.Run(context.Background(), "other.collection")
	require.Error(t, err)

	criticals := messagesAt(hook, logrus.ErrorLevel)
	require.Len(t, criticals, 1)
	assert.Contains(t, criticals[0], "ns1.app")

	// No mutation of any kind happened.
	assert.Zero(t, pipCalls)
	assert.DirExists(t, installed)
}

func TestRunAcceptsSelfReference(t *testing.T) {
	u, _ := newTestUninstaller(t)
	installCollection(t, u.cfg.CollectionsRoot, "ns1", "app", "1.0.0", nil)

	u.run = func(ctx context.Context, cmd runner.Command) error { return nil }

	require.NoError(t, u.Run(context.Background(), "."))
	assert.NoDirExists(t, filepath.Join(u.cfg.CollectionsRoot, "ns1"))
}

func TestPipUninstall(t *testing.T) {
	ctx := context.Background()

	t.Run("MissingFileSkips", func(t *testing.T) {
		u, hook := newTestUninstaller(t)
		var calls int
		u.run = func(ctx context.Context, cmd runner.Command) error {
			calls++
			return nil
		}

		require.NoError(t, u.pipUninstall(ctx, filepath.Join(u.cfg.CacheDir, "nope.txt")))
		assert.Zero(t, calls)
		assert.Contains(t, messagesAt(hook, logrus.InfoLevel)[0], "does not exist, skipping")
	})

	t.Run("EmptyFileSkips", func(t *testing.T) {
		u, hook := newTestUninstaller(t)
		reqs := filepath.Join(t.TempDir(), config.RequirementsFile)
		require.NoError(t, os.WriteFile(reqs, nil, 0o644))

		var calls int
		u.run = func(ctx context.Context, cmd runner.Command) error {
			calls++
			return nil
		}

		require.NoError(t, u.pipUninstall(ctx, reqs))
		assert.Zero(t, calls)
		assert.Contains(t, messagesAt(hook, logrus.InfoLevel)[0], "is empty, skipping")
	})

	t.Run("InvokesPipNonInteractively", func(t *testing.T) {
		u, _ := newTestUninstaller(t)
		reqs := filepath.Join(t.TempDir(), config.RequirementsFile)
		require.NoError(t, os.WriteFile(reqs, []byte("somepkg==1.0\n"), 0o644))

		var got runner.Command
		u.run = func(ctx context.Context, cmd runner.Command) error {
			got = cmd
			return nil
		}

		require.NoError(t, u.pipUninstall(ctx, reqs))
		assert.Equal(t, u.cfg.Interpreter, got.Name)
		assert.Equal(t, []string{"-m", "pip", "uninstall", "-r", reqs, "-y"}, got.Args)
	})

	t.Run("PipFailureIsFatal", func(t *testing.T) {
		u, _ := newTestUninstaller(t)
		reqs := filepath.Join(t.TempDir(), config.RequirementsFile)
		require.NoError(t, os.WriteFile(reqs, []byte("somepkg==1.0\n"), 0o644))

		u.run = func(ctx context.Context, cmd runner.Command) error {
			return &runner.ExitError{Cmd: "pip", Code: 2}
		}

		err := u.pipUninstall(ctx, reqs)
		require.Error(t, err)
		assert.Contains(t, err.Error(), reqs)
	})
}

func TestRemoveCollections(t *testing.T) {
	t.Run("RemovesTargetDependenciesAndMetadata", func(t *testing.T) {
		u, _ := newTestUninstaller(t)
		root := u.cfg.CollectionsRoot

		installCollection(t, root, "ns1", "app", "1.0.0", map[string]string{"ns2.lib": ">=1.0"})
		installCollection(t, root, "ns2", "lib", "1.5.0", nil)
		installCollection(t, root, "ns3", "other", "1.0.0", nil)

		infoDir := filepath.Join(root, "ns2.lib-1.5.0.info")
		require.NoError(t, os.MkdirAll(infoDir, 0o755))

		require.NoError(t, u.removeCollections())

		assert.NoDirExists(t, filepath.Join(root, "ns1"))
		assert.NoDirExists(t, filepath.Join(root, "ns2"))
		assert.NoDirExists(t, infoDir)

		// Unrelated collections and the shared root survive.
		assert.DirExists(t, filepath.Join(root, "ns3", "other"))
		assert.DirExists(t, root)
	})

	t.Run("SymlinkedCollectionIsUnlinkedNotFollowed", func(t *testing.T) {
		u, _ := newTestUninstaller(t)
		root := u.cfg.CollectionsRoot

		// The collection is a symlink into a source checkout.
		source := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(source, "keep.txt"), []byte("x"), 0o644))
		record := manifest.Record{CollectionInfo: manifest.Info{Namespace: "ns1", Name: "app", Version: "1.0.0"}}
		data, err := json.Marshal(record)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(source, config.ManifestFile), data, 0o644))

		nsDir := filepath.Join(root, "ns1")
		require.NoError(t, os.MkdirAll(nsDir, 0o755))
		require.NoError(t, os.Symlink(source, filepath.Join(nsDir, "app")))

		require.NoError(t, u.removeCollections())

		assert.NoDirExists(t, nsDir)
		// Link target contents are untouched.
		assert.FileExists(t, filepath.Join(source, "keep.txt"))
	})

	t.Run("Idempotent", func(t *testing.T) {
		u, hook := newTestUninstaller(t)
		installCollection(t, u.cfg.CollectionsRoot, "ns1", "app", "1.0.0", nil)

		require.NoError(t, u.removeCollections())
		hook.Reset()
		require.NoError(t, u.removeCollections())

		// Second run found nothing, and nothing was an error.
		assert.Empty(t, messagesAt(hook, logrus.WarnLevel))
		assert.Empty(t, messagesAt(hook, logrus.ErrorLevel))
	})

	t.Run("EmptyCollectionsRootIsRemovedQuietly", func(t *testing.T) {
		u, hook := newTestUninstaller(t)
		installCollection(t, u.cfg.CollectionsRoot, "ns1", "app", "1.0.0", nil)

		require.NoError(t, u.removeCollections())

		// Only the target existed, so the root itself is gone too.
		assert.NoDirExists(t, u.cfg.CollectionsRoot)
		assert.Empty(t, messagesAt(hook, logrus.WarnLevel))
	})
}

func messagesAt(hook *logtest.Hook, level logrus.Level) []string {
	var msgs []string
	for _, entry := range hook.AllEntries() {
		if entry.Level == level {
			msgs = append(msgs, entry.Message)
		}
	}
	return msgs
}
