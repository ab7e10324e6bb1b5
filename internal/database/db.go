package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and verifies the connection.
func Open(ctx context.Context, user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	return OpenDSN(ctx, fmt.Sprintf("%s@tcp(%s:%s)/%s", auth, host, port, name))
}

// OpenDSN opens a pool for a base DSN and appends the options the
// repositories depend on.
//
// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
// clientFoundRows=true -> UPDATE reports matched rows, not changed rows; the
// terra level refresh relies on this to tell "no match" from "same value".
func OpenDSN(ctx context.Context, base string) (*sql.DB, error) {
	dsn := base + "?charset=utf8mb4&parseTime=true&loc=UTC&clientFoundRows=true"

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
