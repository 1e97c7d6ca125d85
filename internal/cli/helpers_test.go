package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const schemaDir = "testdata/schema"

// runCLI executes the root command with args against a database in a
// fresh temp dir and returns stdout.
func runCLI(t *testing.T, db string, args ...string) (string, error) {
	t.Helper()

	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--db", db, "--schema", schemaDir}, args...))

	err := cmd.Execute()
	return buf.String(), err
}

// tempDB returns a database path in a temp dir.
func tempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "health.db")
}

// writeFile writes content under dir and returns its path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

const heartRateRows = `
- {timestamp: "2024-03-01 08:00:00", heart_rate: 60}
- {timestamp: "2024-03-01 09:00:00", heart_rate: 0}
- {timestamp: "2024-03-01 10:00:00", heart_rate: 80}
`
