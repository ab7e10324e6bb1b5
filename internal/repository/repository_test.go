package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/terra-tranquil-api/internal/database"
	"github.com/iliyamo/terra-tranquil-api/internal/model"
)

type businessStore interface {
	Create(ctx context.Context, b *model.Business) error
	GetByID(ctx context.Context, id string) (model.Business, error)
	List(ctx context.Context, f BusinessFilter) ([]model.Business, error)
	Count(ctx context.Context) (int64, error)
}

type visitStore interface {
	Create(ctx context.Context, v *model.Visit) error
	ListByUser(ctx context.Context, userID string, limit int) ([]model.Visit, error)
}

type impactStore interface {
	Get(ctx context.Context, userID string) (model.Impact, error)
	CreateIfAbsent(ctx context.Context, userID, username string) error
	Increment(ctx context.Context, userID, username string, points int) error
	SetLevel(ctx context.Context, userID string, visits, level int) (bool, error)
}

type stores struct {
	businesses businessStore
	visits     visitStore
	impacts    impactStore
}

var (
	mysqlOnce sync.Once
	mysqlDB   *sql.DB
	mysqlErr  error
)

// mysqlStores connects to TEST_MYSQL_DSN (e.g. "root:pw@tcp(localhost:3306)/terra_test")
// and empties every collection.  Tests are skipped when it is unset.
func mysqlStores(tb testing.TB) stores {
	tb.Helper()
	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		tb.Skip("set TEST_MYSQL_DSN to run repository integration tests")
	}
	mysqlOnce.Do(func() {
		ctx := context.Background()
		mysqlDB, mysqlErr = database.OpenDSN(ctx, dsn)
		if mysqlErr == nil {
			mysqlErr = database.Migrate(ctx, mysqlDB)
		}
	})
	require.NoError(tb, mysqlErr)
	for _, t := range model.Collections {
		_, err := mysqlDB.Exec(fmt.Sprintf("DELETE FROM `%s`", t))
		require.NoError(tb, err)
	}
	return stores{
		businesses: NewBusinessRepo(mysqlDB),
		visits:     NewVisitRepo(mysqlDB),
		impacts:    NewImpactRepo(mysqlDB),
	}
}

func memoryStores(testing.TB) stores {
	m := NewMemoryStore()
	return stores{businesses: m.Businesses, visits: m.Visits, impacts: m.Impacts}
}

func eachStore(t *testing.T, fn func(t *testing.T, s stores)) {
	t.Run("memory", func(t *testing.T) { fn(t, memoryStores(t)) })
	t.Run("mysql", func(t *testing.T) { fn(t, mysqlStores(t)) })
}

func strPtr(s string) *string { return &s }

func TestBusiness_CreateAndGet(t *testing.T) {
	eachStore(t, func(t *testing.T, s stores) {
		ctx := context.Background()
		b := &model.Business{
			Name:      "Leaf & Latte Café",
			Category:  "Cafés",
			Location:  "Downtown",
			Website:   strPtr("https://leaflatte.example"),
			EcoChecks: []bool{true, true, true, true, false},
			EcoScore:  92,
		}
		require.NoError(t, s.businesses.Create(ctx, b))
		require.NotEmpty(t, b.ID)

		got, err := s.businesses.GetByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, b.Name, got.Name)
		assert.Equal(t, []bool{true, true, true, true, false}, got.EcoChecks)
		assert.Equal(t, 92, got.EcoScore)
		require.NotNil(t, got.Website)
		assert.Equal(t, "https://leaflatte.example", *got.Website)
		assert.Nil(t, got.LogoURL)

		again, err := s.businesses.GetByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, got, again)
	})
}

func TestBusiness_GetErrors(t *testing.T) {
	eachStore(t, func(t *testing.T, s stores) {
		ctx := context.Background()
		_, err := s.businesses.GetByID(ctx, "not-an-id")
		assert.ErrorIs(t, err, ErrInvalidID)

		_, err = s.businesses.GetByID(ctx, newID())
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestBusiness_ListFilters(t *testing.T) {
	eachStore(t, func(t *testing.T, s stores) {
		ctx := context.Background()
		for _, b := range []model.Business{
			{Name: "Green Grove Grocers", Category: "Groceries", Location: "Riverside"},
			{Name: "Leaf & Latte Café", Category: "Cafés", Location: "Downtown"},
			{Name: "Local Loop Shop", Category: "Local Shops", Location: "Market Street"},
			{Name: "100% Organic", Category: "Groceries", Location: "Old Town"},
		} {
			b := b
			require.NoError(t, s.businesses.Create(ctx, &b))
		}

		all, err := s.businesses.List(ctx, BusinessFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 4)

		groceries, err := s.businesses.List(ctx, BusinessFilter{Category: "Groceries"})
		require.NoError(t, err)
		assert.Len(t, groceries, 2)

		lower, err := s.businesses.List(ctx, BusinessFilter{Category: "groceries"})
		require.NoError(t, err)
		assert.Empty(t, lower)

		byName, err := s.businesses.List(ctx, BusinessFilter{Search: "LOOP"})
		require.NoError(t, err)
		require.Len(t, byName, 1)
		assert.Equal(t, "Local Loop Shop", byName[0].Name)

		literal, err := s.businesses.List(ctx, BusinessFilter{Search: "0%"})
		require.NoError(t, err)
		require.Len(t, literal, 1)
		assert.Equal(t, "100% Organic", literal[0].Name)

		limited, err := s.businesses.List(ctx, BusinessFilter{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, limited, 2)

		n, err := s.businesses.Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 4, n)
	})
}

func TestVisit_ListByUserNewestFirst(t *testing.T) {
	eachStore(t, func(t *testing.T, s stores) {
		ctx := context.Background()
		for i := 0; i < 3; i++ {
			v := model.Visit{UserID: "u1", BusinessID: newID(), BusinessName: fmt.Sprintf("b%d", i), Category: "c", Location: "l", EcoPoints: 10}
			require.NoError(t, s.visits.Create(ctx, &v))
			time.Sleep(2 * time.Millisecond)
		}
		other := model.Visit{UserID: "u2", BusinessID: newID(), BusinessName: "x", Category: "c", Location: "l", EcoPoints: 10}
		require.NoError(t, s.visits.Create(ctx, &other))

		got, err := s.visits.ListByUser(ctx, "u1", ListLimit)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []string{"b2", "b1", "b0"}, []string{got[0].BusinessName, got[1].BusinessName, got[2].BusinessName})

		none, err := s.visits.ListByUser(ctx, "nobody", ListLimit)
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)
	})
}

func TestImpact_IncrementKeepsFirstUsername(t *testing.T) {
	eachStore(t, func(t *testing.T, s stores) {
		ctx := context.Background()
		require.NoError(t, s.impacts.Increment(ctx, "u1", "alice", 10))
		require.NoError(t, s.impacts.Increment(ctx, "u1", "bob", 10))

		imp, err := s.impacts.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "alice", imp.Username)
		assert.Equal(t, 2, imp.Visits)
		assert.Equal(t, 20, imp.EcoPoints)
		assert.Equal(t, 2, imp.CommunityImpact)
	})
}

func TestImpact_CreateIfAbsentIsIdempotent(t *testing.T) {
	eachStore(t, func(t *testing.T, s stores) {
		ctx := context.Background()
		_, err := s.impacts.Get(ctx, "u1")
		require.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, s.impacts.CreateIfAbsent(ctx, "u1", "Guest"))
		first, err := s.impacts.Get(ctx, "u1")
		require.NoError(t, err)

		require.NoError(t, s.impacts.CreateIfAbsent(ctx, "u1", "someone-else"))
		second, err := s.impacts.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, "Guest", second.Username)
		assert.Zero(t, second.Visits)
	})
}

func TestImpact_SetLevelIsConditional(t *testing.T) {
	eachStore(t, func(t *testing.T, s stores) {
		ctx := context.Background()
		for i := 0; i < 3; i++ {
			require.NoError(t, s.impacts.Increment(ctx, "u1", "alice", 10))
		}

		ok, err := s.impacts.SetLevel(ctx, "u1", 2, 0)
		require.NoError(t, err)
		assert.False(t, ok, "stale visit count must not match")

		ok, err = s.impacts.SetLevel(ctx, "u1", 3, 1)
		require.NoError(t, err)
		assert.True(t, ok)

		// same value again still counts as a match
		ok, err = s.impacts.SetLevel(ctx, "u1", 3, 1)
		require.NoError(t, err)
		assert.True(t, ok)

		imp, err := s.impacts.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 1, imp.TerraLevel)
	})
}

func TestImpact_ConcurrentIncrements(t *testing.T) {
	eachStore(t, func(t *testing.T, s stores) {
		ctx := context.Background()
		const n = 25
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- s.impacts.Increment(ctx, "u1", "alice", 10)
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}
		imp, err := s.impacts.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, n, imp.Visits)
		assert.Equal(t, n*10, imp.EcoPoints)
	})
}

func TestParseID(t *testing.T) {
	id := newID()
	got, err := ParseID(id)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = ParseID("507f1f77bcf86cd799439011")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\% off\_now\\`, escapeLike(`50% off_now\`))
}

// Both backends break created_at ties by reverse insertion order.
func TestVisit_ListByUserTiesNewestInsertFirst(t *testing.T) {
	at := time.Date(2026, 5, 1, 9, 30, 0, 123456000, time.UTC)
	ids := []string{newID(), newID(), newID()}

	t.Run("memory", func(t *testing.T) {
		m := NewMemoryStore()
		for _, id := range ids {
			m.Visits.items = append(m.Visits.items, model.Visit{ID: id, UserID: "u1", EcoPoints: 10, CreatedAt: at})
		}
		got, err := m.Visits.ListByUser(context.Background(), "u1", 10)
		require.NoError(t, err)
		assert.Equal(t, []string{ids[2], ids[1], ids[0]}, visitIDs(got))
	})

	t.Run("mysql", func(t *testing.T) {
		s := mysqlStores(t)
		for _, id := range ids {
			_, err := mysqlDB.Exec(
				`INSERT INTO visit (id, user_id, business_id, business_name, category, location, eco_points, created_at)
				 VALUES (?,?,?,?,?,?,?,?)`,
				id, "u1", newID(), "Leaf & Latte Café", "Cafés", "Downtown", 10, at)
			require.NoError(t, err)
		}
		got, err := s.visits.ListByUser(context.Background(), "u1", 10)
		require.NoError(t, err)
		assert.Equal(t, []string{ids[2], ids[1], ids[0]}, visitIDs(got))
	})
}

func visitIDs(vs []model.Visit) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.ID)
	}
	return out
}
