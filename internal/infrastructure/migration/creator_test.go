package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/sellerboard/backend/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add leaderboard table", "add_leaderboard_table"},
		{"Add-Leaderboard-Index", "add_leaderboard_index"},
		{"ADD_RANK_INDEX", "add_rank_index"},
		{"add__rank__index", "add_rank_index"},
		{"Seller Metrics 2", "seller_metrics_2"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	t.Run("numbers sequentially after existing files", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "000001_create_leaderboard.up.sql"), nil, 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "000001_create_leaderboard.down.sql"), nil, 0o644))

		mf, err := CreateMigration(dir, "add seller region", "Region column for filtering")
		require.NoError(t, err)

		assert.Equal(t, "000002", mf.Version)
		assert.Equal(t, filepath.Join(dir, "000002_add_seller_region.up.sql"), mf.UpPath)
		assert.Equal(t, filepath.Join(dir, "000002_add_seller_region.down.sql"), mf.DownPath)

		up, err := os.ReadFile(mf.UpPath)
		require.NoError(t, err)
		assert.Contains(t, string(up), "-- Migration: add seller region")
		assert.Contains(t, string(up), "Region column for filtering")

		down, err := os.ReadFile(mf.DownPath)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(down), "-- Migration: add seller region (rollback)"))
	})

	t.Run("starts at one in an empty directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "new")

		mf, err := CreateMigration(dir, "init", "")
		require.NoError(t, err)
		assert.Equal(t, "000001", mf.Version)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := CreateMigration(t.TempDir(), "!!!", "")
		require.Error(t, err)
	})
}

func TestListMigrations(t *testing.T) {
	t.Run("groups pairs and sorts by version", func(t *testing.T) {
		fsys := fstest.MapFS{
			"000010_late.up.sql":     {},
			"000002_second.up.sql":   {},
			"000002_second.down.sql": {},
			"000001_first.up.sql":    {},
			"000001_first.down.sql":  {},
			"README.md":              {},
			"notanumber_x.up.sql":    {},
		}

		list, err := ListMigrations(fsys)
		require.NoError(t, err)

		require.Len(t, list, 3)
		assert.Equal(t, MigrationInfo{Version: 1, Name: "first", HasDown: true}, list[0])
		assert.Equal(t, MigrationInfo{Version: 2, Name: "second", HasDown: true}, list[1])
		assert.Equal(t, MigrationInfo{Version: 10, Name: "late", HasDown: false}, list[2])
	})

	t.Run("missing directory is empty", func(t *testing.T) {
		list, err := ListMigrations(os.DirFS(filepath.Join(t.TempDir(), "absent")))
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("embedded migrations all have rollbacks", func(t *testing.T) {
		list, err := ListMigrations(migrations.FS)
		require.NoError(t, err)

		require.NotEmpty(t, list)
		assert.Equal(t, uint(1), list[0].Version)
		assert.Equal(t, "create_leaderboard", list[0].Name)
		for _, m := range list {
			assert.True(t, m.HasDown, "migration %d has no down file", m.Version)
		}
	})
}
