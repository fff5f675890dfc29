package migrations

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindLatestMigrationVersion(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"000001_create_episodes.up.sql",
		"000001_create_episodes.down.sql",
		"000003_operator_audit.up.sql",
		"000002_operators.up.sql",
		"README.md",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "000009_dir"), 0o700))

	assert.Equal(t, int64(3), findLatestMigrationVersion(dir))
	assert.Equal(t, int64(0), findLatestMigrationVersion(filepath.Join(dir, "missing")))
}

func TestRunMigrationsNeedsURL(t *testing.T) {
	assert.Error(t, RunMigrations(""))
}
