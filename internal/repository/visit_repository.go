package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/terra-tranquil-api/internal/model"
)

// VisitRepo appends to and reads from the visit table.  Rows are never
// updated or deleted.
type VisitRepo struct {
	db *sql.DB
}

func NewVisitRepo(db *sql.DB) *VisitRepo { return &VisitRepo{db: db} }

// Create inserts v and fills in its ID and CreatedAt.
func (r *VisitRepo) Create(ctx context.Context, v *model.Visit) error {
	id := newID()
	created := time.Now().UTC().Truncate(time.Microsecond)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO visit (id, user_id, business_id, business_name, category, location, eco_points, created_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		id, v.UserID, v.BusinessID, v.BusinessName, v.Category, v.Location, v.EcoPoints, created)
	if err != nil {
		return unavailable("insert visit", err)
	}
	v.ID = id
	v.CreatedAt = created
	return nil
}

// ListByUser returns the user's visits, newest first.  Visits sharing a
// timestamp come back in reverse insertion order (seq), as in the memory
// store.
func (r *VisitRepo) ListByUser(ctx context.Context, userID string, limit int) ([]model.Visit, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, business_id, business_name, category, location, eco_points, created_at
		 FROM visit WHERE user_id = ? ORDER BY created_at DESC, seq DESC LIMIT ?`,
		userID, clampLimit(limit))
	if err != nil {
		return nil, unavailable("list visits", err)
	}
	defer rows.Close()
	out := []model.Visit{}
	for rows.Next() {
		var v model.Visit
		if err := rows.Scan(&v.ID, &v.UserID, &v.BusinessID, &v.BusinessName, &v.Category,
			&v.Location, &v.EcoPoints, &v.CreatedAt); err != nil {
			return nil, unavailable("scan visit", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list visits", err)
	}
	return out, nil
}
