package storage

import "github.com/lychee-technology/docbase"

const maxNameBytes = 255

// validName reports whether name passes key validation (spec.md
// §4.1: non-empty, ≤255 bytes, ASCII [A-Za-z0-9_-]).
func validName(name string) bool {
	if len(name) == 0 || len(name) > maxNameBytes {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_' || c == '-':
		default:
			return false
		}
	}
	return true
}

func checkDatabaseName(name string) error {
	if !validName(name) {
		return docbase.NewInvalidDatabaseName(name)
	}
	return nil
}

func checkTableName(name string) error {
	if !validName(name) {
		return docbase.NewInvalidTableName(name)
	}
	return nil
}

// checkDatabaseMutable rejects create/drop on a reserved namespace
// (spec.md §3: "Reserved database name prefix `__system__` ... MUST NOT
// be creatable/droppable by clients").
func checkDatabaseMutable(name string) error {
	if err := checkDatabaseName(name); err != nil {
		return err
	}
	if docbase.IsReservedDatabase(name) {
		return docbase.NewReservedNamespaceError(name)
	}
	return nil
}

// checkTableMutable rejects create/drop of a reserved system table.
func checkTableMutable(db, table string) error {
	if err := checkDatabaseName(db); err != nil {
		return err
	}
	if err := checkTableName(table); err != nil {
		return err
	}
	if docbase.IsReservedTable(table) {
		return docbase.NewReservedNamespaceError(table)
	}
	return nil
}

// partitionID returns the key-prefix identifier for a table's partition
// (spec.md §4.1: `"{db}:{table}"`).
func partitionID(db, table string) string {
	return db + ":" + table
}

// tableKeyPrefix is the raw badger key prefix for documents in (db,
// table): the partition id plus a NUL separator so prefix scans cannot
// bleed across a table whose name is a prefix of another (e.g. "a:b" vs
// "a:bc").
func tableKeyPrefix(db, table string) []byte {
	return append([]byte(partitionID(db, table)), 0x00)
}

func databasePartitionPrefix(db string) string {
	return db + ":"
}
