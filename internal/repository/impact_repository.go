package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/terra-tranquil-api/internal/model"
)

// ImpactRepo maintains the per-user counters in the impact table.  The
// UNIQUE key on user_id is what makes Increment and CreateIfAbsent single
// atomic statements.
type ImpactRepo struct {
	db *sql.DB
}

func NewImpactRepo(db *sql.DB) *ImpactRepo { return &ImpactRepo{db: db} }

// Get returns the impact record for userID or ErrNotFound.
func (r *ImpactRepo) Get(ctx context.Context, userID string) (model.Impact, error) {
	var imp model.Impact
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, username, visits, eco_points, community_impact, terra_level, created_at, updated_at
		 FROM impact WHERE user_id = ? LIMIT 1`, userID).
		Scan(&imp.ID, &imp.UserID, &imp.Username, &imp.Visits, &imp.EcoPoints,
			&imp.CommunityImpact, &imp.TerraLevel, &imp.CreatedAt, &imp.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Impact{}, ErrNotFound
	}
	if err != nil {
		return model.Impact{}, unavailable("get impact", err)
	}
	return imp, nil
}

// CreateIfAbsent inserts a zero-valued record unless one already exists.
func (r *ImpactRepo) CreateIfAbsent(ctx context.Context, userID, username string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO impact (id, user_id, username) VALUES (?,?,?)
		 ON DUPLICATE KEY UPDATE user_id = user_id`,
		newID(), userID, username)
	if err != nil {
		return unavailable("init impact", err)
	}
	return nil
}

// Increment records one visit worth points.  A missing record is created
// with username; an existing one keeps its username.
func (r *ImpactRepo) Increment(ctx context.Context, userID, username string, points int) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO impact (id, user_id, username, visits, eco_points, community_impact, terra_level)
		 VALUES (?,?,?,1,?,1,0)
		 ON DUPLICATE KEY UPDATE
		   visits = visits + 1,
		   eco_points = eco_points + ?,
		   community_impact = community_impact + 1`,
		newID(), userID, username, points, points)
	if err != nil {
		return unavailable("increment impact", err)
	}
	return nil
}

// SetLevel writes level only if the stored visit count still equals visits.
// It reports false when the count has moved on since it was read.
func (r *ImpactRepo) SetLevel(ctx context.Context, userID string, visits, level int) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE impact SET terra_level = ? WHERE user_id = ? AND visits = ?`,
		level, userID, visits)
	if err != nil {
		return false, unavailable("set terra level", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, unavailable("set terra level", err)
	}
	return n == 1, nil
}
