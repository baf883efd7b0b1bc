// Package postgres provides PostgreSQL-specific implementations for the data
// storage interfaces defined in the internal/store package. It handles
// connections through the pgx database/sql driver, schema migrations with
// goose, and mapping between domain entities and database records. Memory
// state and session snapshots are stored as JSONB documents next to the
// columns the scheduler filters on.
package postgres
