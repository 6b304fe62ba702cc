// Package migration applies versioned schema migrations to a SQLite
// database.
//
// Migration files are embedded in the binary and follow the naming
// convention {version}_{description}.sql (e.g. "0001_initial_schema.sql").
// Applied versions are tracked in a schema_migrations table; each pending
// migration runs inside its own transaction and a failure rolls that
// migration back without touching earlier ones.
package migration
