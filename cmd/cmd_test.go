package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netops-tools/welcome-wizard/pkg/storage"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in   string
		want storage.Category
	}{
		{"locations", storage.CategoryLocations},
		{"circuit-types", storage.CategoryCircuitTypes},
		{"Cluster_Types", storage.CategoryClusterTypes},
		{" rirs ", storage.CategoryRIRs},
	}
	for _, tt := range tests {
		got, err := parseCategory(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := parseCategory("racks")
	assert.Error(t, err)
}

func TestCommandsRegistered(t *testing.T) {
	for _, path := range [][]string{
		{"serve"},
		{"sync"},
		{"dashboard"},
		{"inventory", "add"},
		{"jobs", "list"},
		{"db", "stats"},
		{"db", "shell"},
		{"hash-password"},
	} {
		c, _, err := rootCmd.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], c.Name())
	}
}

func TestDBStatsCommand(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "welcome-wizard.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("jobs:\n  workers: 1\n"), 0o600))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"db", "stats", "--config", cfg, "--dbpath", filepath.Join(dir, "data", "ww.sqlite")})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "status_entries")
	assert.Contains(t, out.String(), "TOTAL")
	assert.FileExists(t, filepath.Join(dir, "data", "ww.sqlite"))
}
