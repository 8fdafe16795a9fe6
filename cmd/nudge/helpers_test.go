package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/nudgekit/nudge/internal/sysfacts"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testPolicyYAML = `minimum_os_version: "14.0"
cut_off_date: "2024-01-10-12:00:00"
dual_close_trigger_threshold: 5
more_info_url: https://support.example.com/updates
`

// runCommand executes the root command with args and returns its output.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func writeDir(t *testing.T, dir string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	return dir
}

// workspace creates a temp directory with a UTC host config, changes into
// it, and returns it.
func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, ".nudge.yaml", "evaluation:\n  location: UTC\n")
	t.Chdir(dir)
	return dir
}

// useProvider swaps the system facts provider for the duration of the test.
func useProvider(t *testing.T, p sysfacts.Provider) {
	t.Helper()
	old := newSystemProvider
	newSystemProvider = func() sysfacts.Provider { return p }
	t.Cleanup(func() { newSystemProvider = old })
}

// strictProvider fails the test if any system fact is read.
func strictProvider(t *testing.T) {
	t.Helper()
	useProvider(t, sysfacts.NewMockProvider(gomock.NewController(t)))
}
