package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Table names are part of the external contract; viewers read these
// collections directly.
var schema = []struct {
	table string
	ddl   string
}{
	{"user", "CREATE TABLE IF NOT EXISTS `user` (" +
		"id CHAR(36) NOT NULL PRIMARY KEY," +
		"username VARCHAR(255) NOT NULL," +
		"avatar_url VARCHAR(2048) NULL," +
		"created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)" +
		") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4"},
	{"business", "CREATE TABLE IF NOT EXISTS `business` (" +
		"id CHAR(36) NOT NULL PRIMARY KEY," +
		"name VARCHAR(255) NOT NULL," +
		"category VARCHAR(128) NOT NULL," +
		"location VARCHAR(255) NOT NULL," +
		"website VARCHAR(2048) NULL," +
		"description TEXT NULL," +
		"logo_url VARCHAR(2048) NULL," +
		"hero_image VARCHAR(2048) NULL," +
		"eco_checks JSON NOT NULL," +
		"eco_score TINYINT UNSIGNED NOT NULL DEFAULT 80," +
		"created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)," +
		"KEY idx_business_category (category)" +
		") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4"},
	{"visit", "CREATE TABLE IF NOT EXISTS `visit` (" +
		"id CHAR(36) NOT NULL PRIMARY KEY," +
		"seq BIGINT UNSIGNED NOT NULL AUTO_INCREMENT," +
		"user_id VARCHAR(191) NOT NULL," +
		"business_id CHAR(36) NOT NULL," +
		"business_name VARCHAR(255) NOT NULL," +
		"category VARCHAR(128) NOT NULL," +
		"location VARCHAR(255) NOT NULL," +
		"eco_points INT NOT NULL DEFAULT 10," +
		"created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)," +
		"UNIQUE KEY uq_visit_seq (seq)," +
		"KEY idx_visit_user_created (user_id, created_at, seq)" +
		") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4"},
	{"impact", "CREATE TABLE IF NOT EXISTS `impact` (" +
		"id CHAR(36) NOT NULL PRIMARY KEY," +
		"user_id VARCHAR(191) NOT NULL," +
		"username VARCHAR(255) NOT NULL," +
		"visits INT NOT NULL DEFAULT 0," +
		"eco_points INT NOT NULL DEFAULT 0," +
		"community_impact INT NOT NULL DEFAULT 0," +
		"terra_level TINYINT NOT NULL DEFAULT 0," +
		"created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)," +
		"updated_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6) ON UPDATE CURRENT_TIMESTAMP(6)," +
		"UNIQUE KEY uq_impact_user (user_id)" +
		") ENGINE=InnoDB DEFAULT CHARSET=utf8mb4"},
}

// Migrate creates any missing collection tables.  It is safe to run on
// every start.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, t := range schema {
		if _, err := db.ExecContext(ctx, t.ddl); err != nil {
			return fmt.Errorf("create table %s: %w", t.table, err)
		}
	}
	return nil
}

// Tables lists the tables present in the connected database.
func Tables(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}
