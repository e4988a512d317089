package snapshot

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Database selects where the SQL store lives, a local sqlite file or a remote libsql server.
type Database struct {
	File      string `json:"file"`
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

func (d Database) Enabled() bool {
	return d.File != "" || d.Url != ""
}

func wrapOpenDB(err error) error {
	return fmt.Errorf("open db: %w", err)
}

// OpenDB opens the configured database, a `:memory:` file opens an in-memory sqlite database.
func (d Database) OpenDB() (*sql.DB, error) {
	if d.Url != "" {
		values := url.Values{}
		if d.AuthToken != "" {
			values.Add("authToken", d.AuthToken)
		}
		dsn := d.Url
		if len(values) > 0 {
			dsn += "?" + values.Encode()
		}
		db, err := sql.Open("libsql", dsn)
		if err != nil {
			return nil, wrapOpenDB(err)
		}
		return db, nil
	}

	if d.File == "" {
		return nil, wrapOpenDB(fmt.Errorf("neither a file nor a url was specified"))
	}
	if d.File != ":memory:" {
		err := os.MkdirAll(filepath.Dir(d.File), 0755)
		if err != nil {
			return nil, wrapOpenDB(err)
		}
	}

	db, err := sql.Open("sqlite", d.File)
	if err != nil {
		return nil, wrapOpenDB(err)
	}

	// sqlite only allows a single writer, an in-memory database is also private to its connection.
	db.SetMaxOpenConns(1)
	if d.File != ":memory:" {
		_, err = db.Exec("PRAGMA journal_mode=WAL")
		if err != nil {
			db.Close()
			return nil, wrapOpenDB(err)
		}
	}

	return db, nil
}
