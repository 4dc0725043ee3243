// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapseed/internal/cli/output"
)

// DataModel is a small blog schema: users, posts requiring a user, and
// comments with a nullable self-reference.
const DataModel = `
models:
  - id: users
    fields:
      - {name: id, type: integer, id: true, sequence: users_id_seq}
      - {name: email, type: text, required: true, unique: true}
      - {name: handle, type: text}
  - id: posts
    fields:
      - {name: id, type: integer, id: true, sequence: posts_id_seq}
      - {name: title, type: text}
      - {name: user_id, type: integer, required: true}
      - {name: user, target: users, from: [user_id], to: [id], required: true}
`

// Generators defines the Starlark functions the project config refers to.
const Generators = `
def handle(ctx):
    return "@" + ctx.row["email"].split("@")[0]
`

// ProjectConfig is the leapseed.yaml of the test project.
const ProjectConfig = `
seed: cli-test
dialect: postgres
models:
  users:
    fields:
      email: {builtin: email}
      handle: {starlark: handle}
plan:
  - model: users
    count: 2
  - model: posts
    count: 3
    connect: [users]
    fields:
      title: {value: hello}
`

// SetupTestProject creates a temporary project and returns the path of its
// leapseed.yaml.
func SetupTestProject(t *testing.T) string {
	t.Helper()
	return SetupTestProjectWith(t, ProjectConfig)
}

// SetupTestProjectWith creates a temporary project with the given config.
func SetupTestProjectWith(t *testing.T, projectConfig string) string {
	t.Helper()

	tmpDir := t.TempDir()
	files := map[string]string{
		"leapseed.yaml":   projectConfig,
		"datamodel.yaml":  DataModel,
		"generators.star": Generators,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte(content), 0o600); err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
	}
	return filepath.Join(tmpDir, "leapseed.yaml")
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.Mode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown performs basic markdown validation.
// It checks for unclosed code fences and empty headers.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	if fenceCount := strings.Count(md, "```"); fenceCount%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", fenceCount)
	}

	for i, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}
