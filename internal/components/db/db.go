// Package db opens the local sqlite (or remote libsql) database shared by the
// session store and the match history.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Schema is applied every time the database is opened.
const Schema = `
create table if not exists session_credential (
	account text primary key,
	session_id text not null,
	saved_at integer not null
);

create table if not exists match_history (
	id integer primary key autoincrement,
	rule text not null,
	order_id integer not null,
	sell_price integer not null,
	drift real,
	message text not null,
	matched_at integer not null
);

create index if not exists match_history_matched_at on match_history(matched_at);
`

func isRemote(file string) bool {
	return strings.HasPrefix(file, "libsql://") ||
		strings.HasPrefix(file, "http://") ||
		strings.HasPrefix(file, "https://")
}

// Open opens the database at `file`. Remote urls go through libsql, anything
// else is a local sqlite file which is created when missing. `:memory:` works too.
func Open(file string) (*sql.DB, error) {
	if file == "" {
		return nil, fmt.Errorf("a path was not specified")
	}

	var (
		db  *sql.DB
		err error
	)
	if isRemote(file) {
		db, err = sql.Open("libsql", file)
		if err != nil {
			return nil, err
		}
	} else {
		if file != ":memory:" {
			err = os.MkdirAll(filepath.Dir(file), 0755)
			if err != nil {
				return nil, err
			}
		}
		db, err = sql.Open("sqlite", file)
		if err != nil {
			return nil, err
		}
		// see this stackoverflow post for information on why the following
		// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
		db.SetMaxOpenConns(1)
		if file != ":memory:" {
			_, err = db.Exec("PRAGMA journal_mode=WAL")
			if err != nil {
				db.Close()
				return nil, err
			}
		}
	}

	_, err = db.Exec(Schema)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}
