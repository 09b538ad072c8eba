package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunSingleFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "story.txt")
	content := []byte("she sells sea shells by the sea shore")
	require.NoError(t, os.WriteFile(in, content, 0644))

	require.NoError(t, run(options{args: []string{in}}))
	require.FileExists(t, in+".huf")

	restored := filepath.Join(dir, "restored.txt")
	require.NoError(t, run(options{decode: true, output: restored, args: []string{in + ".huf"}}))

	got, err := os.ReadFile(restored)
	require.NoError(t, err)
	require.Equal(t, content, got)
}

func TestRunGlob(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"a.txt":         "alpha",
		"sub/b.txt":     "bravo bravo",
		"sub/deep/c.md": "not matched",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}

	require.NoError(t, run(options{glob: filepath.ToSlash(dir) + "/**/*.txt"}))
	require.FileExists(t, filepath.Join(dir, "a.txt.huf"))
	require.FileExists(t, filepath.Join(dir, "sub/b.txt.huf"))
	require.NoFileExists(t, filepath.Join(dir, "sub/deep/c.md.huf"))

	require.NoError(t, os.Remove(filepath.Join(dir, "a.txt")))
	require.NoError(t, run(options{decode: true, glob: filepath.ToSlash(dir) + "/**/a.txt.huf"}))
	got, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	require.Equal(t, "alpha", string(got))
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()

	require.ErrorIs(t, run(options{}), errUsage)
	require.ErrorIs(t, run(options{args: []string{"a", "b"}}), errUsage)
	require.ErrorIs(t, run(options{glob: "*.txt", output: "x"}), errUsage)
	require.Error(t, run(options{glob: filepath.ToSlash(dir) + "/*.nothing"}))
	require.Error(t, run(options{args: []string{filepath.Join(dir, "missing.txt")}}))

	bogus := filepath.Join(dir, "bogus.huf")
	require.NoError(t, os.WriteFile(bogus, []byte{0, 0, 0, 1}, 0644))
	require.Error(t, run(options{decode: true, args: []string{bogus}}))
}
