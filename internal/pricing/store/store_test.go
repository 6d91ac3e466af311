package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/ugobe007/merlin-quote/internal/faults"
	"github.com/ugobe007/merlin-quote/internal/pricing"
)

func newStoreTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// A fresh pool connection would see an empty in-memory database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
		CREATE TABLE pricing_tiers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			category TEXT NOT NULL,
			unit TEXT NOT NULL,
			capacity REAL NOT NULL,
			unit_price REAL NOT NULL,
			source TEXT,
			active BOOLEAN NOT NULL DEFAULT TRUE
		);
		CREATE TABLE pricing_markups (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			bop_percent REAL NOT NULL,
			epc_percent REAL NOT NULL,
			tariff_percent REAL NOT NULL,
			shipping_per_kwh REAL NOT NULL,
			version TEXT NOT NULL
		);
	`)
	require.NoError(t, err)

	seed := []struct {
		category  string
		capacity  float64
		unitPrice float64
	}{
		{"battery", 2000, 155},
		{"battery", 15000, 105},
		{"inverter", 100, 90},
		{"inverter", 10000, 60},
	}
	for _, row := range seed {
		_, err = db.Exec(`
			INSERT INTO pricing_tiers (category, unit, capacity, unit_price, source, active)
			VALUES (?, ?, ?, ?, 'test catalog', TRUE)
		`, row.category, "kWh", row.capacity, row.unitPrice)
		require.NoError(t, err)
	}
	_, err = db.Exec(`
		INSERT INTO pricing_markups (id, bop_percent, epc_percent, tariff_percent, shipping_per_kwh, version)
		VALUES (1, 10, 15, 5, 2, 'markups-v1')
	`)
	require.NoError(t, err)

	return db
}

func TestStoreRefreshAndLookup(t *testing.T) {
	db := newStoreTestDB(t)
	s := New(db, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, s.Refresh(ctx))

	tier, err := s.Tier(ctx, pricing.Battery)
	require.NoError(t, err)
	require.Len(t, tier.Breakpoints, 2)
	assert.Equal(t, 155.0, tier.Breakpoints[0].UnitPrice)
	assert.Equal(t, "test catalog", tier.Source)

	markups, err := s.Markups(ctx)
	require.NoError(t, err)
	assert.Equal(t, "markups-v1", markups.Version)
	assert.Equal(t, 10.0, markups.BOPPercent)
}

func TestStoreLazyRefreshOnFirstUse(t *testing.T) {
	db := newStoreTestDB(t)
	s := New(db, zerolog.Nop())

	tier, err := s.Tier(context.Background(), pricing.Inverter)
	require.NoError(t, err)
	assert.Len(t, tier.Breakpoints, 2)
}

func TestStoreUnknownCategory(t *testing.T) {
	db := newStoreTestDB(t)
	s := New(db, zerolog.Nop())

	_, err := s.Tier(context.Background(), pricing.Wind)
	var lerr *faults.LookupError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, "wind", lerr.Category)
}

func TestStoreSnapshotIsStableUntilRefresh(t *testing.T) {
	db := newStoreTestDB(t)
	s := New(db, zerolog.Nop())
	ctx := context.Background()
	require.NoError(t, s.Refresh(ctx))

	_, err := db.Exec(`UPDATE pricing_tiers SET unit_price = 999 WHERE category = 'battery'`)
	require.NoError(t, err)

	tier, err := s.Tier(ctx, pricing.Battery)
	require.NoError(t, err)
	assert.Equal(t, 155.0, tier.Breakpoints[0].UnitPrice, "reads must serve the old snapshot until an explicit refresh")

	require.NoError(t, s.Refresh(ctx))
	tier, err = s.Tier(ctx, pricing.Battery)
	require.NoError(t, err)
	assert.Equal(t, 999.0, tier.Breakpoints[0].UnitPrice)
}

func TestStoreFailedRefreshKeepsServingOldSnapshot(t *testing.T) {
	db := newStoreTestDB(t)
	s := New(db, zerolog.Nop())
	ctx := context.Background()
	require.NoError(t, s.Refresh(ctx))

	// Duplicate capacity makes the battery tier non-ascending.
	_, err := db.Exec(`
		INSERT INTO pricing_tiers (category, unit, capacity, unit_price, active)
		VALUES ('battery', 'kWh', 2000, 10, TRUE)
	`)
	require.NoError(t, err)

	require.Error(t, s.Refresh(ctx))

	tier, err := s.Tier(ctx, pricing.Battery)
	require.NoError(t, err)
	assert.Len(t, tier.Breakpoints, 2, "failed refresh must not replace the snapshot")
}
