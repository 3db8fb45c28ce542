package runner

import (
	"context"
	"errors"
	"testing"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	ctx := context.Background()
	log, _ := logtest.NewNullLogger()

	t.Run("Success", func(t *testing.T) {
		err := Run(ctx, Command{Name: "true", Logger: log})
		assert.NoError(t, err)
	})

	t.Run("NonZeroExit", func(t *testing.T) {
		err := Run(ctx, Command{Name: "false", Logger: log})
		require.Error(t, err)

		var exitErr *ExitError
		require.True(t, errors.As(err, &exitErr))
		assert.Equal(t, 1, exitErr.Code)
	})

	t.Run("StderrIsCaptured", func(t *testing.T) {
		err := Run(ctx, Command{
			Name:   "sh",
			Args:   []string{"-c", "echo boom >&2; exit 3"},
			Logger: log,
		})
		require.Error(t, err)

		var exitErr *ExitError
		require.True(t, errors.As(err, &exitErr))
		assert.Equal(t, 3, exitErr.Code)
		assert.Contains(t, exitErr.Error(), "boom")
	})

	t.Run("MissingExecutable", func(t *testing.T) {
		err := Run(ctx, Command{Name: "definitely-not-a-real-binary", Logger: log})
		require.Error(t, err)

		var exitErr *ExitError
		assert.False(t, errors.As(err, &exitErr))
	})

	t.Run("ArgumentsAreNotShellInterpreted", func(t *testing.T) {
		// A metacharacter-laden argument reaches the process verbatim.
		err := Run(ctx, Command{
			Name:   "sh",
			Args:   []string{"-c", `test "$1" = 'a;b|c'`, "sh", "a;b|c"},
			Logger: log,
		})
		assert.NoError(t, err)
	})

	t.Run("WorkingDirectory", func(t *testing.T) {
		dir := t.TempDir()
		err := Run(ctx, Command{
			Name:   "sh",
			Args:   []string{"-c", `test "$(pwd)" = "$1"`, "sh", dir},
			Dir:    dir,
			Logger: log,
		})
		assert.NoError(t, err)
	})
}
