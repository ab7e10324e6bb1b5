package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/terra-tranquil-api/internal/database"
	"github.com/iliyamo/terra-tranquil-api/internal/model"
)

// MySQLInfo reports connectivity for the diagnostics endpoint.
type MySQLInfo struct {
	DB *sql.DB
}

func (MySQLInfo) Driver() string { return "mysql" }

func (i MySQLInfo) Tables(ctx context.Context) ([]string, error) {
	if err := i.DB.PingContext(ctx); err != nil {
		return nil, unavailable("ping", err)
	}
	tables, err := database.Tables(ctx, i.DB)
	if err != nil {
		return nil, unavailable("list tables", err)
	}
	return tables, nil
}

func (*MemoryStore) Driver() string { return "memory" }

func (*MemoryStore) Tables(context.Context) ([]string, error) {
	return append([]string(nil), model.Collections...), nil
}
