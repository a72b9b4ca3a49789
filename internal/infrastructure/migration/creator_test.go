package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add payout index", "add_payout_index"},
		{"Add-Payout-Index", "add_payout_index"},
		{"ADD__PAYOUT__INDEX", "add_payout_index"},
		{"widen amounts 18 6", "widen_amounts_18_6"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"_leading and trailing_", "leading_and_trailing"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("-- test"), 0o644))
	}
}

func TestCreateMigration_NumbersAfterExisting(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir,
		"000001_create_ledger.up.sql", "000001_create_ledger.down.sql",
		"000004_create_settlement.up.sql", "000004_create_settlement.down.sql",
	)

	mf, err := CreateMigration(dir, "Add payout index", "Speeds up due-partner scans")
	require.NoError(t, err)
	assert.Equal(t, "000005", mf.Version)
	assert.Equal(t, "000005_add_payout_index.up.sql", filepath.Base(mf.UpPath))
	assert.Equal(t, "000005_add_payout_index.down.sql", filepath.Base(mf.DownPath))

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "-- Add payout index")
	assert.Contains(t, string(up), "Speeds up due-partner scans")

	down, err := os.ReadFile(mf.DownPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(down), "-- Rollback of Add payout index"))
}

func TestCreateMigration_EmptyDirectoryStartsAtOne(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "migrations")

	mf, err := CreateMigration(dir, "init", "")
	require.NoError(t, err)
	assert.Equal(t, "000001", mf.Version)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	up, err := os.ReadFile(mf.UpPath)
	require.NoError(t, err)
	assert.NotContains(t, string(up), "-- \n")
}

func TestCreateMigration_RejectsEmptyName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "")
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir,
		"000002_create_banking.up.sql", "000002_create_banking.down.sql",
		"000001_create_ledger.up.sql", "000001_create_ledger.down.sql",
		"README.md", ".gitkeep",
	)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir.up.sql"), 0o755))

	migrations, err := ListMigrations(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"000001_create_ledger", "000002_create_banking"}, migrations)
}

func TestListMigrations_NonexistentDirectory(t *testing.T) {
	migrations, err := ListMigrations(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.Empty(t, migrations)
}

func TestEmbeddedMigrations(t *testing.T) {
	migrations, err := EmbeddedMigrations()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"000001_create_ledger",
		"000002_create_banking",
		"000003_create_settlement",
	}, migrations)

	for _, base := range migrations {
		_, err := embedded.ReadFile("sql/" + base + ".down.sql")
		assert.NoError(t, err, base)
	}
}

func TestEmbeddedSchema_PayoutClaimIsPartialUnique(t *testing.T) {
	up, err := embedded.ReadFile("sql/000003_create_settlement.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(up), "ON payout_items(commission_id) WHERE released = FALSE")
}
