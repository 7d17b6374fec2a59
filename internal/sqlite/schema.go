package sqlite

// Schema DDL. Statements are idempotent because the database persists
// across runs.
const (
	createLocalStorage = `CREATE TABLE IF NOT EXISTS local_storage (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

	idxLocalStorageUpdated = `CREATE INDEX IF NOT EXISTS idx_local_storage_updated ON local_storage(updated_at);`
)

// pragmas run on every Attach. The busy timeout lets two CLI processes share
// one data dir without SQLITE_BUSY failures.
var pragmas = []string{
	`PRAGMA journal_mode = WAL;`,
	`PRAGMA busy_timeout = 5000;`,
}

// schemaDDL lists all statements in the order they run.
var schemaDDL = []string{
	createLocalStorage,
	idxLocalStorageUpdated,
}
