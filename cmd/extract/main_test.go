package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_UnknownSourceReturnsError(t *testing.T) {
	root := t.TempDir()
	t.Setenv("RAW_DATA_DIR", filepath.Join(root, "raw"))
	t.Setenv("PROCESSED_DATA_DIR", filepath.Join(root, "processed"))
	t.Setenv("LOG_LEVEL", "error")

	err := run("nowhere", filepath.Join(root, "manifest.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown source "nowhere"`)
	assert.NoFileExists(t, filepath.Join(root, "manifest.yaml"))
}
