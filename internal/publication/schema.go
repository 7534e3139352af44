package publication

import (
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const createTable = `
	CREATE TABLE IF NOT EXISTS publications (
		id                      TEXT PRIMARY KEY,
		file_path               TEXT NOT NULL,
		platform_id             TEXT NOT NULL,
		platform_name           TEXT NOT NULL,
		last_local_submitted_at TEXT NOT NULL DEFAULT '0000-00-00T00:00:00.000Z',
		metadata_json           TEXT NOT NULL DEFAULT '{}',
		remote_url              TEXT NOT NULL DEFAULT ''
	);
`

const createIndexes = `
	CREATE INDEX IF NOT EXISTS publications_file_path_idx ON publications(file_path);
	CREATE INDEX IF NOT EXISTS publications_platform_id_idx ON publications(platform_id);
`

// column is a column that may be missing from databases written by
// earlier releases.
type column struct {
	name string
	decl string
}

var addedColumns = []column{
	{"platform_name", "TEXT NOT NULL DEFAULT ''"},
	{"last_local_submitted_at", "TEXT NOT NULL DEFAULT '" + EpochSentinel + "'"},
	{"metadata_json", "TEXT NOT NULL DEFAULT '{}'"},
	{"remote_url", "TEXT NOT NULL DEFAULT ''"},
}

// migrate creates the publications table or upgrades an older one in
// place. Columns are only ever added.
func migrate(conn *sqlite.Conn) (added []string, err error) {
	endFn, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return nil, fmt.Errorf("begin schema transaction: %w", err)
	}
	defer endFn(&err)

	if err := sqlitex.ExecuteScript(conn, createTable, nil); err != nil {
		return nil, fmt.Errorf("create publications table: %w", err)
	}

	existing := make(map[string]bool)
	err = sqlitex.Execute(conn, "PRAGMA table_info(publications)", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			existing[stmt.GetText("name")] = true
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("inspect publications table: %w", err)
	}

	for _, c := range addedColumns {
		if existing[c.name] {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE publications ADD COLUMN %s %s", c.name, c.decl)
		if err := sqlitex.ExecuteTransient(conn, stmt, nil); err != nil {
			return nil, fmt.Errorf("add column %s: %w", c.name, err)
		}
		added = append(added, c.name)
	}

	if err := sqlitex.ExecuteScript(conn, createIndexes, nil); err != nil {
		return nil, fmt.Errorf("create publications indexes: %w", err)
	}
	return added, nil
}
