package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/terra-tranquil-api/internal/model"
)

// MemoryStore holds all collections in process memory.  It is used when
// STORE_DRIVER=memory and by tests.  Each collection has its own lock; every
// method is atomic with respect to its collection, matching what the MySQL
// statements guarantee.
type MemoryStore struct {
	Businesses *MemoryBusinessRepo
	Visits     *MemoryVisitRepo
	Impacts    *MemoryImpactRepo
}

// NewMemoryStore creates a MemoryStore with empty state.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		Businesses: &MemoryBusinessRepo{byID: map[string]int{}},
		Visits:     &MemoryVisitRepo{},
		Impacts:    &MemoryImpactRepo{byUser: map[string]*model.Impact{}},
	}
}

// MemoryBusinessRepo keeps businesses in insertion order.
type MemoryBusinessRepo struct {
	mu    sync.RWMutex
	items []model.Business
	byID  map[string]int
}

func (r *MemoryBusinessRepo) Create(_ context.Context, b *model.Business) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b.ID = newID()
	b.CreatedAt = time.Now().UTC()
	if b.EcoChecks == nil {
		b.EcoChecks = []bool{}
	}
	stored := *b
	stored.EcoChecks = append([]bool(nil), b.EcoChecks...)
	r.byID[b.ID] = len(r.items)
	r.items = append(r.items, stored)
	return nil
}

func (r *MemoryBusinessRepo) GetByID(_ context.Context, id string) (model.Business, error) {
	id, err := ParseID(id)
	if err != nil {
		return model.Business{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.byID[id]
	if !ok {
		return model.Business{}, ErrNotFound
	}
	return copyBusiness(r.items[i]), nil
}

func (r *MemoryBusinessRepo) List(_ context.Context, f BusinessFilter) ([]model.Business, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	limit := clampLimit(f.Limit)
	search := strings.ToLower(f.Search)
	out := []model.Business{}
	for _, b := range r.items {
		if f.Category != "" && b.Category != f.Category {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(b.Name), search) {
			continue
		}
		out = append(out, copyBusiness(b))
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *MemoryBusinessRepo) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.items)), nil
}

func copyBusiness(b model.Business) model.Business {
	b.EcoChecks = append([]bool{}, b.EcoChecks...)
	return b
}

// MemoryVisitRepo is an append-only visit log.
type MemoryVisitRepo struct {
	mu    sync.RWMutex
	items []model.Visit
}

func (r *MemoryVisitRepo) Create(_ context.Context, v *model.Visit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v.ID = newID()
	v.CreatedAt = time.Now().UTC()
	r.items = append(r.items, *v)
	return nil
}

func (r *MemoryVisitRepo) ListByUser(_ context.Context, userID string, limit int) ([]model.Visit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []model.Visit{}
	// walk backwards so equal timestamps still come out newest first
	for i := len(r.items) - 1; i >= 0; i-- {
		if r.items[i].UserID == userID {
			out = append(out, r.items[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if n := clampLimit(limit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// MemoryImpactRepo keys impact records by user id.
type MemoryImpactRepo struct {
	mu     sync.Mutex
	byUser map[string]*model.Impact
}

func (r *MemoryImpactRepo) Get(_ context.Context, userID string) (model.Impact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	imp, ok := r.byUser[userID]
	if !ok {
		return model.Impact{}, ErrNotFound
	}
	return *imp, nil
}

func (r *MemoryImpactRepo) CreateIfAbsent(_ context.Context, userID, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byUser[userID]; !ok {
		r.insertLocked(userID, username)
	}
	return nil
}

func (r *MemoryImpactRepo) Increment(_ context.Context, userID, username string, points int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	imp, ok := r.byUser[userID]
	if !ok {
		imp = r.insertLocked(userID, username)
	}
	imp.Visits++
	imp.EcoPoints += points
	imp.CommunityImpact++
	imp.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryImpactRepo) SetLevel(_ context.Context, userID string, visits, level int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	imp, ok := r.byUser[userID]
	if !ok || imp.Visits != visits {
		return false, nil
	}
	imp.TerraLevel = level
	imp.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *MemoryImpactRepo) insertLocked(userID, username string) *model.Impact {
	now := time.Now().UTC()
	imp := &model.Impact{
		ID:        newID(),
		UserID:    userID,
		Username:  username,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.byUser[userID] = imp
	return imp
}
