package schema

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForVersion(t *testing.T) {
	g, err := ForVersion(VersionLegacy)
	require.NoError(t, err)
	assert.IsType(t, legacyGrammar{}, g)

	g, err = ForVersion(VersionCurrent)
	require.NoError(t, err)
	assert.IsType(t, currentGrammar{}, g)

	_, err = ForVersion(Version(0))
	assert.Error(t, err)
}

func TestRewriteCatalog(t *testing.T) {
	g, _ := ForVersion(VersionCurrent)

	got := g.RewriteCatalog("select * from sqlite_master where type = 'index'; select * from main.sqlite_master")

	assert.Equal(t, "select * from sqlite_schema where type = 'index'; select * from main.sqlite_schema", got)
}

func TestCompileTableExists(t *testing.T) {
	legacy, _ := ForVersion(VersionLegacy)
	q, args := legacy.CompileTableExists("", "users")
	assert.Equal(t, "select * from sqlite_schema where type = 'table' and name = ?", q)
	assert.Equal(t, []any{"users"}, args)

	current, _ := ForVersion(VersionCurrent)
	q, args = current.CompileTableExists("", "o'brien")
	assert.Equal(t, `select exists (select 1 from "main".sqlite_schema where name = 'o''brien' and type = 'table') as "exists"`, q)
	assert.Nil(t, args)
}

func TestCompiledQueriesDoNotMentionSqliteMaster(t *testing.T) {
	for _, v := range []Version{VersionLegacy, VersionCurrent} {
		g, _ := ForVersion(v)
		q, _ := g.CompileTableExists("main", "t")
		for _, sql := range []string{q, g.CompileTables(""), g.CompileViews("")} {
			assert.NotContains(t, sql, "sqlite_master")
		}
	}
}

func TestCompileDropAll(t *testing.T) {
	g, _ := ForVersion(VersionCurrent)

	assert.Equal(t,
		[]string{`drop table if exists "users"`, `drop table if exists "we""ird"`},
		g.CompileDropAllTables([]string{"users", `we"ird`}))
	assert.Equal(t, []string{`drop view if exists "active_users"`}, g.CompileDropAllViews([]string{"active_users"}))
	assert.Empty(t, g.CompileDropAllTables(nil))
}

// The compiled queries must run on a real SQLite engine, which is what D1 is.
func TestCompiledQueriesRunOnSQLite(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL DEFAULT 'anon');
		CREATE VIEW named AS SELECT name FROM users;`)
	require.NoError(t, err)

	g, _ := ForVersion(VersionCurrent)

	var exists bool
	q, _ := g.CompileTableExists("", "users")
	require.NoError(t, db.QueryRow(q).Scan(&exists))
	assert.True(t, exists)

	q, _ = g.CompileTableExists("", "ghosts")
	require.NoError(t, db.QueryRow(q).Scan(&exists))
	assert.False(t, exists)

	legacy, _ := ForVersion(VersionLegacy)
	q, args := legacy.CompileTableExists("", "users")
	rows, err := db.Query(q, args...)
	require.NoError(t, err)
	assert.True(t, rows.Next())
	rows.Close()

	var tables []string
	rows, err = db.Query(g.CompileTables(""))
	require.NoError(t, err)
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		tables = append(tables, name)
	}
	rows.Close()
	assert.Equal(t, []string{"users"}, tables)

	rows, err = db.Query(g.CompileColumns("", "users"))
	require.NoError(t, err)
	var columns []string
	for rows.Next() {
		var (
			name, typ string
			nullable  bool
			dflt      sql.NullString
			primary   int
		)
		require.NoError(t, rows.Scan(&name, &typ, &nullable, &dflt, &primary))
		columns = append(columns, name)
	}
	rows.Close()
	assert.Equal(t, []string{"id", "name"}, columns)

	for _, stmt := range append(g.CompileDropAllViews([]string{"named"}), g.CompileDropAllTables(tables)...) {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	q, _ = g.CompileTableExists("", "users")
	require.NoError(t, db.QueryRow(q).Scan(&exists))
	assert.False(t, exists)
}
