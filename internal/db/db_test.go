package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/stabilizer/internal/monitoring"
)

func init() {
	monitoring.SetLogger(nil)
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func tableExists(t *testing.T, d *DB, name string) bool {
	t.Helper()
	var n int
	require.NoError(t, d.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n))
	return n == 1
}

func TestOpen_MigratesToLatest(t *testing.T) {
	t.Parallel()
	d := openTestDB(t)

	latest, err := LatestMigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), latest)

	version, dirty, err := d.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, latest, version)
	assert.False(t, dirty)

	assert.True(t, tableExists(t, d, "stabilize_runs"))
	assert.True(t, tableExists(t, d, "stabilize_frame_samples"))
}

func TestOpen_Pragmas(t *testing.T) {
	t.Parallel()
	d := openTestDB(t)

	var mode string
	require.NoError(t, d.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var fk int
	require.NoError(t, d.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)

	var timeout int
	require.NoError(t, d.QueryRow("PRAGMA busy_timeout").Scan(&timeout))
	assert.Equal(t, 5000, timeout)
}

func TestOpen_ReopenIsNoChange(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "runs.db")

	d, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, path, d.Path())
	_, err = d.Exec(`INSERT INTO stabilize_runs (run_id, created_at, solver, window_size, max_iter, num_levels)
		VALUES ('r1', 1, 'dense', 5, 5, 5)`)
	require.NoError(t, err)
	require.NoError(t, d.Close())

	d, err = Open(path)
	require.NoError(t, err)
	defer d.Close()

	var n int
	require.NoError(t, d.QueryRow(`SELECT COUNT(*) FROM stabilize_runs`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestMigrateDownAndUp(t *testing.T) {
	t.Parallel()
	d := openTestDB(t)

	require.NoError(t, d.MigrateDown())
	version, dirty, err := d.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
	assert.False(t, tableExists(t, d, "stabilize_frame_samples"))
	assert.True(t, tableExists(t, d, "stabilize_runs"))

	require.NoError(t, d.MigrateUp())
	version, _, err = d.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.True(t, tableExists(t, d, "stabilize_frame_samples"))

	// Already at latest.
	require.NoError(t, d.MigrateUp())
}

func TestOpen_BadPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "runs.db"))
	assert.Error(t, err)
}
