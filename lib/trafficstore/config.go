package trafficstore

import (
	"database/sql"
	"fmt"
	"fritzy-backend/lib/trafficstore/db"
	"net/url"
	"os"
	"path/filepath"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Config selects a local sqlite file, or a remote libsql database when Url is set.
type Config struct {
	File      string `json:"file"`
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

func wrapOpenDB(err error) error {
	return fmt.Errorf("open db: %w", err)
}

func openSqlite(path string) (*sql.DB, error) {
	if path != ":memory:" {
		err := os.MkdirAll(filepath.Dir(path), 0777)
		if err != nil {
			return nil, wrapOpenDB(err)
		}
	}

	database, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, wrapOpenDB(err)
	}

	// see this stackoverflow post for information on why the following
	// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	database.SetMaxOpenConns(1)
	_, err = database.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		return nil, wrapOpenDB(err)
	}
	return database, nil
}

func openLibsql(dbUrl, authToken string) (*sql.DB, error) {
	values := url.Values{}
	if authToken != "" {
		values.Add("authToken", authToken)
	}
	if len(values) > 0 {
		dbUrl = dbUrl + "?" + values.Encode()
	}
	database, err := sql.Open("libsql", dbUrl)
	if err != nil {
		return nil, wrapOpenDB(err)
	}
	return database, nil
}

// OpenDB opens the configured database and applies the schema.
func (config Config) OpenDB() (*sql.DB, error) {
	var database *sql.DB
	var err error
	switch {
	case config.Url != "":
		database, err = openLibsql(config.Url, config.AuthToken)
	case config.File != "":
		database, err = openSqlite(config.File)
	default:
		return nil, wrapOpenDB(fmt.Errorf("neither a file nor an url was specified"))
	}
	if err != nil {
		return nil, err
	}

	_, err = database.Exec(db.Schema)
	if err != nil {
		database.Close()
		return nil, wrapOpenDB(fmt.Errorf("apply schema: %w", err))
	}
	return database, nil
}
