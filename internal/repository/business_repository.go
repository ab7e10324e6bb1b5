package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/terra-tranquil-api/internal/model"
)

// BusinessFilter narrows a directory listing.  Search is a case-insensitive
// substring of the name; Category is an exact match and empty means all.
type BusinessFilter struct {
	Search   string
	Category string
	Limit    int
}

// BusinessRepo provides data access to the business table.
type BusinessRepo struct {
	db *sql.DB
}

// NewBusinessRepo returns a new BusinessRepo bound to the provided database.
func NewBusinessRepo(db *sql.DB) *BusinessRepo { return &BusinessRepo{db: db} }

const businessColumns = `id, name, category, location, website, description, logo_url, hero_image, eco_checks, eco_score, created_at`

// Create inserts b, assigning its ID and CreatedAt.
func (r *BusinessRepo) Create(ctx context.Context, b *model.Business) error {
	checks := b.EcoChecks
	if checks == nil {
		checks = []bool{}
	}
	raw, err := json.Marshal(checks)
	if err != nil {
		return err
	}
	id := newID()
	created := time.Now().UTC().Truncate(time.Microsecond)
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO business (`+businessColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		id, b.Name, b.Category, b.Location, b.Website, b.Description, b.LogoURL, b.HeroImage,
		string(raw), b.EcoScore, created)
	if err != nil {
		return unavailable("insert business", err)
	}
	b.ID = id
	b.EcoChecks = checks
	b.CreatedAt = created
	return nil
}

// GetByID fetches one business.  Malformed ids fail with ErrInvalidID
// before the database is touched.
func (r *BusinessRepo) GetByID(ctx context.Context, id string) (model.Business, error) {
	id, err := ParseID(id)
	if err != nil {
		return model.Business{}, err
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+businessColumns+` FROM business WHERE id = ? LIMIT 1`, id)
	b, err := scanBusiness(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Business{}, ErrNotFound
	}
	if err != nil {
		return model.Business{}, unavailable("get business", err)
	}
	return b, nil
}

// List returns businesses matching f in storage order.
func (r *BusinessRepo) List(ctx context.Context, f BusinessFilter) ([]model.Business, error) {
	where := []string{}
	args := []any{}
	if f.Category != "" {
		where = append(where, "category = ? COLLATE utf8mb4_bin")
		args = append(args, f.Category)
	}
	if f.Search != "" {
		where = append(where, "LOWER(name) LIKE ?")
		args = append(args, "%"+escapeLike(strings.ToLower(f.Search))+"%")
	}
	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}
	args = append(args, clampLimit(f.Limit))

	rows, err := r.db.QueryContext(ctx, `SELECT `+businessColumns+` FROM business WHERE `+cond+` LIMIT ?`, args...)
	if err != nil {
		return nil, unavailable("list businesses", err)
	}
	defer rows.Close()
	out := []model.Business{}
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, unavailable("scan business", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list businesses", err)
	}
	return out, nil
}

// Count returns the number of registered businesses.
func (r *BusinessRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM business`).Scan(&n); err != nil {
		return 0, unavailable("count businesses", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBusiness(s rowScanner) (model.Business, error) {
	var (
		b                                      model.Business
		website, description, logoURL, heroImg sql.NullString
		checks                                 []byte
	)
	if err := s.Scan(&b.ID, &b.Name, &b.Category, &b.Location, &website, &description,
		&logoURL, &heroImg, &checks, &b.EcoScore, &b.CreatedAt); err != nil {
		return model.Business{}, err
	}
	b.Website = nullString(website)
	b.Description = nullString(description)
	b.LogoURL = nullString(logoURL)
	b.HeroImage = nullString(heroImg)
	b.EcoChecks = []bool{}
	if len(checks) > 0 {
		if err := json.Unmarshal(checks, &b.EcoChecks); err != nil {
			return model.Business{}, err
		}
	}
	return b, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// escapeLike makes LIKE wildcards in user input match literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func clampLimit(n int) int {
	if n <= 0 || n > ListLimit {
		return ListLimit
	}
	return n
}
