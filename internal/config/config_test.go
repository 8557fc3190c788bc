package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaowei-guan/pigeon/internal/backend"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
copyright_header = ["Copyright 2026 Example", "All rights reserved."]

[input]
dir = "api"

[channel]
prefix = "com.example.search"

[store]
db = ".pigeon/ledger.db"

[kotlin]
out = "android/Messages.g.kt"
package = "com.example.search"

[go]
out = "/abs/messages.g.go"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	root, err := filepath.Abs(dir)
	require.NoError(t, err)
	assert.Equal(t, root, cfg.Root)
	assert.Equal(t, []string{"kotlin", "go"}, cfg.Backends(), "only configured backends, in generation order")
	assert.Equal(t, filepath.Join(root, "api"), cfg.InputDir())
	assert.Equal(t, filepath.Join(root, ".pigeon/ledger.db"), cfg.DBPath())
	assert.Equal(t, backend.PlanOptions{Prefix: "com.example.search"}, cfg.PlanOptions())

	assert.Equal(t, backend.Options{
		Package:         "com.example.search",
		Out:             "android/Messages.g.kt",
		CopyrightHeader: []string{"Copyright 2026 Example", "All rights reserved."},
	}, cfg.Options("kotlin"))
	assert.Equal(t, "/abs/messages.g.go", cfg.Resolve(cfg.Options("go").Out))
	assert.Equal(t, filepath.Join(root, "android/Messages.g.kt"), cfg.Resolve(cfg.Options("kotlin").Out))
}

func TestLoad_NoBackendSections(t *testing.T) {
	cfg, err := Load(writeConfig(t, t.TempDir(), "[channel]\nprefix = \"x.y\"\n"))
	require.NoError(t, err)
	assert.Equal(t, BackendNames, cfg.Backends())
	assert.Empty(t, cfg.DBPath())
	assert.Equal(t, filepath.Join(cfg.Root, DefaultInputDir), cfg.InputDir())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		msg     string
	}{
		{"syntax", "[dart\nout = 1", "failed to parse TOML"},
		{"unknown key", "[dart]\noutput = \"x.dart\"\n", "unknown keys: dart.output"},
		{"unknown section", "[swift]\nout = \"x.swift\"\n", "unknown keys: swift"},
		{"empty prefix segment", "[channel]\nprefix = \"com..example\"\n", "empty segment"},
		{"directory out", "[dart]\nout = \"lib/\"\n", "must be a file path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, t.TempDir(), tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestFind(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	_, ok, err := Find(nested)
	require.NoError(t, err)
	assert.False(t, ok)

	want := writeConfig(t, root, "")
	got, ok, err := Find(nested)
	require.NoError(t, err)
	require.True(t, ok)
	wantAbs, err := filepath.Abs(want)
	require.NoError(t, err)
	assert.Equal(t, wantAbs, got)
}

func TestDefault(t *testing.T) {
	cfg := Default("/work")
	assert.Equal(t, BackendNames, cfg.Backends())
	assert.Equal(t, "/work/pigeons", cfg.InputDir())
	assert.Equal(t, backend.Options{}, cfg.Options("dart"))
	assert.Equal(t, backend.Options{}, cfg.Options("swift"))
}
