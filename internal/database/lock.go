package database

import "github.com/jmoiron/sqlx"

// Row lock clauses are only emitted for Postgres. SQLite has no row locks and
// already serializes writers for the whole database.

func ForUpdate(q sqlx.ExtContext, tables ...string) string {
	return lockClause(q, "FOR UPDATE", tables)
}

func lockClause(q sqlx.ExtContext, mode string, tables []string) string {
	if q.DriverName() != DriverPostgres {
		return ""
	}
	clause := " " + mode
	for i, t := range tables {
		if i == 0 {
			clause += " OF " + t
		} else {
			clause += ", " + t
		}
	}
	return clause
}
