package migration

import (
	"io/fs"
	"sort"
	"strings"
	"testing"

	"github.com/smallbiznis/masstrack/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(embeddedMigrations, migrationsDir)
	require.NoError(t, err)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Fatalf("unexpected file %s", name)
		}
	}
	require.NotEmpty(t, ups)
	assert.Equal(t, ups, downs)
}

func TestEveryTableHasAMigration(t *testing.T) {
	var all strings.Builder
	entries, err := fs.ReadDir(embeddedMigrations, migrationsDir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	for _, name := range names {
		body, err := fs.ReadFile(embeddedMigrations, migrationsDir+"/"+name)
		require.NoError(t, err)
		all.Write(body)
	}

	conn := db.NewTest(t)
	for _, m := range Models() {
		stmt := conn.Model(m).Statement
		require.NoError(t, stmt.Parse(m))
		assert.Contains(t, all.String(), "CREATE TABLE IF NOT EXISTS "+stmt.Schema.Table+" (")
	}
}

func TestApplyAutoMigratesOutsidePostgres(t *testing.T) {
	conn := db.NewTest(t)
	require.NoError(t, Apply(conn))
	for _, m := range Models() {
		assert.True(t, conn.Migrator().HasTable(m))
	}
}
