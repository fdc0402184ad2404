package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineDiff(t *testing.T) {
	from := "{\n  \"a\": 1,\n  \"b\": 2\n}"
	to := "{\n  \"a\": 1,\n  \"c\": 2\n}"

	got := lineDiff(from, to)
	assert.Contains(t, got, "-  \"b\": 2\n")
	assert.Contains(t, got, "+  \"c\": 2\n")
	assert.Contains(t, got, "   \"a\": 1,\n")
	assert.Equal(t, " {\n   \"a\": 1,\n", got[:len(" {\n   \"a\": 1,\n")])
}

func TestLineDiff_Identical(t *testing.T) {
	got := lineDiff("{}\n", "{}\n")
	assert.Equal(t, " {}\n", got)
}

func TestReadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"f":1}`), 0o600))

	got, err := readInput(nil, []string{path})
	require.NoError(t, err)
	assert.Equal(t, `{"f":1}`, string(got))

	got, err = readInput(strings.NewReader(`{"s":1}`), []string{"-"})
	require.NoError(t, err)
	assert.Equal(t, `{"s":1}`, string(got))

	_, err = readInput(nil, []string{filepath.Join(t.TempDir(), "missing.json")})
	assert.Error(t, err)
}

func TestTransformCommand(t *testing.T) {
	dir := t.TempDir()
	rulesPath := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(rulesPath, []byte(`
rules:
  - name: rename
    path: $
    params:
      oldKey: first
      newKey: given
`), 0o600))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetIn(strings.NewReader(`{"first":"Ada"}`))
	rootCmd.SetArgs([]string{"transform", "--rules", rulesPath, "--log-level", "error"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.JSONEq(t, `{"given":"Ada"}`, out.String())
}
