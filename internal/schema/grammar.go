// Package schema compiles the catalog queries a host needs to introspect a D1 database.
//
// D1 exposes the SQLite catalog as sqlite_schema and rejects some statements that
// mention sqlite_master, so every compiled query goes through RewriteCatalog.
// Hosts pick the adapter matching their calling convention with ForVersion.
package schema

import (
	"fmt"
	"strings"
)

// Version selects the calling convention of the host's schema builder.
type Version int

const (
	// VersionLegacy compiles table-exists as a placeholder query taking the table name.
	VersionLegacy Version = iota + 1
	// VersionCurrent compiles table-exists as a self-contained schema-qualified query.
	VersionCurrent
)

const defaultSchema = "main"

// Grammar compiles catalog queries.
type Grammar interface {
	// RewriteCatalog replaces references to sqlite_master with sqlite_schema.
	RewriteCatalog(sql string) string

	// CompileTableExists returns a query and its arguments that yield a row
	// (legacy) or a truthy "exists" column (current) when the table exists.
	CompileTableExists(schema, table string) (string, []any)

	CompileTables(schema string) string
	CompileViews(schema string) string
	CompileColumns(schema, table string) string

	// CompileDropAllTables returns one DROP statement per table, in order.
	CompileDropAllTables(tables []string) []string
	CompileDropAllViews(views []string) []string
}

// ForVersion returns the Grammar for a host version.
func ForVersion(v Version) (Grammar, error) {
	switch v {
	case VersionLegacy:
		return legacyGrammar{}, nil
	case VersionCurrent:
		return currentGrammar{}, nil
	default:
		return nil, fmt.Errorf("unknown schema grammar version %d", v)
	}
}

// baseGrammar holds the queries both conventions share.
type baseGrammar struct{}

func (baseGrammar) RewriteCatalog(sql string) string {
	return strings.ReplaceAll(sql, "sqlite_master", "sqlite_schema")
}

func (g baseGrammar) CompileTables(schema string) string {
	return g.RewriteCatalog(fmt.Sprintf(
		`select name from %s.sqlite_master where type = 'table' and name not like 'sqlite_%%' and name not like '\_cf\_%%' escape '\' order by name`,
		wrapValue(schemaOrDefault(schema)),
	))
}

func (g baseGrammar) CompileViews(schema string) string {
	return g.RewriteCatalog(fmt.Sprintf(
		`select name, sql as definition from %s.sqlite_master where type = 'view' order by name`,
		wrapValue(schemaOrDefault(schema)),
	))
}

func (baseGrammar) CompileColumns(schema, table string) string {
	return fmt.Sprintf(
		`select name, type, not "notnull" as "nullable", dflt_value as "default", pk as "primary" from pragma_table_info(%s, %s) order by cid`,
		quoteString(table),
		quoteString(schemaOrDefault(schema)),
	)
}

func (baseGrammar) CompileDropAllTables(tables []string) []string {
	out := make([]string, 0, len(tables))
	for _, t := range tables {
		out = append(out, "drop table if exists "+wrapValue(t))
	}
	return out
}

func (baseGrammar) CompileDropAllViews(views []string) []string {
	out := make([]string, 0, len(views))
	for _, v := range views {
		out = append(out, "drop view if exists "+wrapValue(v))
	}
	return out
}

type legacyGrammar struct {
	baseGrammar
}

func (legacyGrammar) CompileTableExists(_, table string) (string, []any) {
	return "select * from sqlite_schema where type = 'table' and name = ?", []any{table}
}

type currentGrammar struct {
	baseGrammar
}

func (currentGrammar) CompileTableExists(schema, table string) (string, []any) {
	return fmt.Sprintf(
		`select exists (select 1 from %s.sqlite_schema where name = %s and type = 'table') as "exists"`,
		wrapValue(schemaOrDefault(schema)),
		quoteString(table),
	), nil
}

func schemaOrDefault(schema string) string {
	if schema == "" {
		return defaultSchema
	}
	return schema
}

func wrapValue(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
