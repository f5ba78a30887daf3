// Package database provides the PostgreSQL connection pool, startup
// migrations and the repository implementations behind the domain interfaces.
//
// Tables are created automatically on first boot: the migration list is an
// ordered set of idempotent DDL statements, so a fresh database and an
// already-migrated one both converge to the same schema.
package database
