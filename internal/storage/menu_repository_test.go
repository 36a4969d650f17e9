package storage

import (
	"context"
	"testing"

	errs "github.com/garyellow/komida-linebot-go/internal/errors"
	"github.com/garyellow/komida-linebot-go/internal/menu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, db *DB, date menu.Date, campus menu.Campus, items ...menu.Item) {
	t.Helper()
	if err := db.SaveItems(context.Background(), date, campus, items); err != nil {
		t.Fatalf("seed %s/%s: %v", date, campus, err)
	}
}

func TestFetchMenu_ProductAndAbsence(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	tomorrow := testDate.AddDays(1)

	seed(t, db, testDate, menu.CampusMiddelheim,
		menu.Item{Category: "soup", Description: "Tomato", PriceStudent: 0.8, PriceStaff: 1.2},
		menu.Item{Category: "meat", Description: "Chicken", PriceStudent: 3.8, PriceStaff: 5.1},
	)
	seed(t, db, tomorrow, menu.CampusStad,
		menu.Item{Category: "pasta", Description: "Carbonara", PriceStudent: 3.2, PriceStaff: 4.5},
	)

	repo := NewMenuRepository(db)
	result, err := repo.FetchMenu(ctx,
		[]menu.Campus{menu.CampusMiddelheim, menu.CampusStad},
		[]menu.Date{testDate, tomorrow},
	)
	require.NoError(t, err)

	// Four pairs requested, two have rows.
	require.Equal(t, 2, result.Len())
	assert.Equal(t, []menu.Key{
		{Date: testDate, Campus: menu.CampusMiddelheim},
		{Date: tomorrow, Campus: menu.CampusStad},
	}, result.Keys())

	_, ok := result.Get(menu.Key{Date: testDate, Campus: menu.CampusStad})
	assert.False(t, ok, "pair without rows must be absent")

	entry, _ := result.Get(menu.Key{Date: testDate, Campus: menu.CampusMiddelheim})
	assert.Equal(t, 2, entry.Len())
	meat, ok := entry.Get("meat")
	require.True(t, ok)
	assert.Equal(t, "Chicken", meat.Description)
	assert.InDelta(t, 5.1, meat.PriceStaff, 1e-9)
}

func TestFetchMenu_NoRows(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)

	result, err := NewMenuRepository(db).FetchMenu(context.Background(),
		[]menu.Campus{menu.CampusDrieEiken}, []menu.Date{testDate})
	require.NoError(t, err)
	assert.True(t, result.IsEmpty())
	for _, key := range result.Keys() {
		e, _ := result.Get(key)
		assert.NotZero(t, e.Len())
	}
}

func TestFetchMenu_ClosedStore(t *testing.T) {
	t.Parallel()

	db, err := NewTestDB()
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = NewMenuRepository(db).FetchMenu(context.Background(),
		[]menu.Campus{menu.CampusMiddelheim}, []menu.Date{testDate})
	require.Error(t, err)
	assert.True(t, errs.IsStorage(err), "expected StorageError, got %T", err)
}

func TestFetchMenu_CanceledContext(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMenuRepository(db).FetchMenu(ctx,
		[]menu.Campus{menu.CampusMiddelheim}, []menu.Date{testDate})
	require.Error(t, err)
	assert.True(t, errs.IsStorage(err))
}

func TestCountItemsAndLatestDate(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	repo := NewMenuRepository(db)

	_, ok, err := repo.LatestDate(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	seed(t, db, testDate, menu.CampusMiddelheim, menu.Item{Category: "soup"}, menu.Item{Category: "meat"})
	seed(t, db, testDate.AddDays(3), menu.CampusDrieEiken, menu.Item{Category: "grill"})

	count, err := repo.CountItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	latest, ok, err := repo.LatestDate(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, testDate.AddDays(3), latest)
}
