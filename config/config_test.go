package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBuildConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParseArgsDefaults(t *testing.T) {
	opts, err := ParseArgs([]string{"/seeds"})
	require.NoError(t, err)

	assert.Equal(t, "/seeds", opts.Args.SeedDir)
	assert.Empty(t, opts.Args.Targets)
	assert.Equal(t, "INFO", opts.LogLevel)
	assert.False(t, opts.Valgrind)
	assert.Empty(t, opts.MergeDir)
}

func TestParseArgsFull(t *testing.T) {
	opts, err := ParseArgs([]string{
		"--loglevel", "DEBUG",
		"--valgrind",
		"-x", "alpha,beta",
		"--m_dir", "/merge",
		"/seeds", "gamma", "delta",
	})
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", opts.LogLevel)
	assert.True(t, opts.Valgrind)
	assert.Equal(t, "alpha,beta", opts.Exclude)
	assert.Equal(t, "/merge", opts.MergeDir)
	assert.Equal(t, "/seeds", opts.Args.SeedDir)
	assert.Equal(t, []string{"gamma", "delta"}, opts.Args.Targets)
}

func TestParseArgsRequiresSeedDir(t *testing.T) {
	_, err := ParseArgs(nil)
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	path := writeBuildConfig(t, `
components:
  enable_fuzz: true
environment:
  srcdir: /work/src
  builddir: /work/build
`)

	opts := &Options{LogLevel: "INFO", Exclude: "alpha, beta,", BuildConfig: path}
	opts.Args.SeedDir = "/seeds"
	opts.Args.Targets = []string{"gamma"}

	cfg, err := LoadConfig(opts)
	require.NoError(t, err)

	assert.True(t, cfg.EnableFuzz)
	assert.Equal(t, "/work/src", cfg.SrcDir)
	assert.Equal(t, "/work/build", cfg.BuildDir)
	assert.Equal(t, "/seeds", cfg.SeedDir)
	assert.Equal(t, []string{"gamma"}, cfg.Targets)
	assert.Equal(t, []string{"alpha", "beta"}, cfg.Excluded)
	assert.NotEmpty(t, cfg.RunID)
}

func TestLoadConfigFuzzDisabled(t *testing.T) {
	path := writeBuildConfig(t, "components:\n  enable_fuzz: false\n")

	opts := &Options{BuildConfig: path}
	opts.Args.SeedDir = "/seeds"

	cfg, err := LoadConfig(opts)
	require.NoError(t, err)
	assert.False(t, cfg.EnableFuzz)
}

func TestLoadConfigMissingFile(t *testing.T) {
	opts := &Options{BuildConfig: filepath.Join(t.TempDir(), "nope.yaml")}
	opts.Args.SeedDir = "/seeds"

	_, err := LoadConfig(opts)
	assert.Error(t, err)
}

func TestPaths(t *testing.T) {
	cfg := &AppConfig{SrcDir: "/work/src", BuildDir: "/work/build"}

	assert.Equal(t, "/work/src/src/Makefile.test.include", cfg.ManifestPath())
	assert.Equal(t, "/work/build/src/test/fuzz/asmap", cfg.TargetPath("asmap"))
}
