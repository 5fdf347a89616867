package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"defi-bi-etl/internal/collector"
)

func setDataDirs(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	processed := filepath.Join(root, "processed")
	t.Setenv("RAW_DATA_DIR", filepath.Join(root, "raw"))
	t.Setenv("PROCESSED_DATA_DIR", processed)
	t.Setenv("LOG_LEVEL", "error")
	return processed
}

func TestRun_CombineWithoutCheckpointsReturnsError(t *testing.T) {
	setDataDirs(t)

	err := run(true, -1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no checkpoints found")
}

func TestRun_CombineCheckpoints(t *testing.T) {
	processed := setDataDirs(t)
	require.NoError(t, os.MkdirAll(processed, 0o755))
	body := "date,protocol_name,protocol_slug,chain,tvl_usd,tvl_billion,data_type\n" +
		"2024-06-01,Aave,aave,Ethereum,1000000000.00,1.00,historical\n"
	require.NoError(t, os.WriteFile(filepath.Join(processed, collector.CheckpointName(50)), []byte(body), 0o644))

	require.NoError(t, run(true, -1))
	assert.FileExists(t, filepath.Join(processed, collector.AllFile))
}
