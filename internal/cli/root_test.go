package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/leapseed/internal/cli/commands"
	"github.com/leapstack-labs/leapseed/internal/cli/config"
	"github.com/leapstack-labs/leapseed/internal/cli/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Cleanup(config.ResetConfig)
	root := NewRootCmd()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestNewRootCmd_Subcommands(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"version", "generate", "dag", "models", "history", "completion"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
	for _, flag := range []string{"config", "target", "datamodel", "generators", "dialect", "seed", "state", "no-history", "verbose", "output"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestRoot_GenerateWithFlags(t *testing.T) {
	path := testutil.SetupTestProject(t)

	stdout, _, err := run(t, "--config", path, "--seed", "flagged", "--dialect", "sqlite", "-o", "json", "generate")
	require.NoError(t, err)

	var got commands.GenerateOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, "flagged", got.Seed)
	assert.Equal(t, "sqlite", got.Dialect)
	assert.Len(t, got.Statements, 5, "sqlite has no sequence fixers")
}

func TestRoot_DotEnvExpandsTarget(t *testing.T) {
	path := testutil.SetupTestProjectWith(t, testutil.ProjectConfig+`
target:
  type: sqlite
  path: ${LEAPSEED_TEST_DB}
`)
	dir := filepath.Dir(path)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LEAPSEED_TEST_DB=seeded.db\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("LEAPSEED_TEST_DB") })

	_, _, err := run(t, "--config", path, "--no-history", "dag")
	require.NoError(t, err)

	cfg := config.GetCurrentConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, filepath.Join(dir, "seeded.db"), cfg.Target.Path)
}

func TestRoot_Errors(t *testing.T) {
	path := testutil.SetupTestProject(t)

	_, _, err := run(t, "--config", path, "-o", "yaml", "dag")
	assert.ErrorContains(t, err, "invalid output format")

	_, _, err = run(t, "--config", path, "-t", "staging", "dag")
	assert.ErrorContains(t, err, `unknown environment "staging"`)
}

func TestCompletionCommand(t *testing.T) {
	stdout, _, err := run(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, stdout, "leapseed")

	_, _, err = run(t, "completion", "tcsh")
	assert.Error(t, err)
}

func TestGetConfigDefaults(t *testing.T) {
	cfg := GetConfig(t.Context())
	assert.Equal(t, config.DefaultStateFile, cfg.StatePath)
	assert.Equal(t, config.DefaultDataModelFile, cfg.DataModel)
	assert.NotNil(t, GetRenderer(t.Context()))
}
