package database

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_Collect(t *testing.T) {
	goose.SetBaseFS(migrations)
	t.Cleanup(func() { goose.SetBaseFS(nil) })

	ms, err := goose.CollectMigrations("migrations", 0, goose.MaxVersion)
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, int64(1), ms[0].Version)
	assert.Equal(t, int64(2), ms[1].Version)
}

func TestMigrations_NotifyTriggersCoverWatchedTables(t *testing.T) {
	raw, err := fs.ReadFile(migrations, "migrations/00001_init.sql")
	require.NoError(t, err)
	sql := string(raw)

	assert.Contains(t, sql, "pg_notify('table_changes', TG_TABLE_NAME)")
	for _, table := range []string{"rsvps", "gifts", "gift_reservations"} {
		assert.Contains(t, sql, "ON "+table+"\n    FOR EACH STATEMENT EXECUTE FUNCTION notify_table_change()", table)
	}
}

func TestMigrations_AdminReadsRequireAuthenticatedRole(t *testing.T) {
	raw, err := fs.ReadFile(migrations, "migrations/00002_row_level_security.sql")
	require.NoError(t, err)
	sql := string(raw)

	assert.Contains(t, sql, "GRANT SELECT ON rsvps TO authenticated;")
	assert.Contains(t, sql, "GRANT SELECT ON gift_reservations TO authenticated;")
	assert.False(t, strings.Contains(sql, "GRANT SELECT ON rsvps TO anon"))
}
