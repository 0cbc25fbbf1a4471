package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupFile_MissingFile_NoBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	backup, err := BackupFile(path)

	require.NoError(t, err)
	assert.Empty(t, backup)
}

func TestBackupFile_CopiesContent(t *testing.T) {
	// Given: an existing config
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "version: 1\n")

	// When: backing it up
	backup, err := BackupFile(path)

	// Then: the backup is a sibling with identical content
	require.NoError(t, err)
	assert.Equal(t, filepath.Dir(path), filepath.Dir(backup))
	data, err := os.ReadFile(backup)
	require.NoError(t, err)
	assert.Equal(t, "version: 1\n", string(data))
}

func TestBackupFile_KeepsMaxBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "version: 1\n")

	for range MaxBackups + 2 {
		_, err := BackupFile(path)
		require.NoError(t, err)
	}

	backups, err := ListBackups(path)
	require.NoError(t, err)
	assert.Len(t, backups, MaxBackups)
}

func TestRestoreBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "index:\n  page_size: 5\n")
	backup, err := BackupFile(path)
	require.NoError(t, err)
	writeFile(t, path, "index:\n  page_size: 9\n")

	require.NoError(t, RestoreBackup(backup, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "index:\n  page_size: 5\n", string(data))
}

func TestWriteYAML_RoundTripsThroughLoad(t *testing.T) {
	isolate(t)

	// Given: a config with repositories written as the project config
	cfg := NewConfig()
	cfg.Index.PageSize = 33
	cfg.Repositories = []RepositoryConfig{{ID: "releases", Format: "maven", Path: "/srv/m2"}}
	dir := t.TempDir()
	require.NoError(t, cfg.WriteYAML(filepath.Join(dir, ProjectConfigName)))

	// When: loading it back
	loaded, err := Load(dir)

	// Then: the values survive
	require.NoError(t, err)
	assert.Equal(t, 33, loaded.Index.PageSize)
	assert.Equal(t, cfg.Repositories, loaded.Repositories)
}
