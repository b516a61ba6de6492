// Package migrator manages database schema migrations.
//
// Migrations are SQL files named `{id}-{name}.{up|down}.sql`, usually loaded
// from an embedded filesystem. Applied migrations are tracked in the
// _migrations table, so a plan can be run to a target migration or "all" of
// them, in either direction.
package migrator
