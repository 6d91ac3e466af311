package seed

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/ugobe007/merlin-quote/internal/migrations"
)

func newSeedTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// A fresh pool connection would see an empty in-memory database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, migrations.Up(db))
	return db
}

func TestRunSeedsAllCategories(t *testing.T) {
	db := newSeedTestDB(t)

	stats, err := Run(db)
	require.NoError(t, err)
	assert.Positive(t, stats.Inserts)

	var categories int
	require.NoError(t, db.QueryRow(`SELECT COUNT(DISTINCT category) FROM pricing_tiers`).Scan(&categories))
	assert.Equal(t, len(defaultTiers), categories)

	var version string
	require.NoError(t, db.QueryRow(`SELECT version FROM pricing_markups WHERE id = 1`).Scan(&version))
	assert.Equal(t, markupVersion, version)
}

func TestRunIsIdempotent(t *testing.T) {
	db := newSeedTestDB(t)

	first, err := Run(db)
	require.NoError(t, err)
	assert.Positive(t, first.Inserts)

	second, err := Run(db)
	require.NoError(t, err)
	assert.Zero(t, second.Inserts)
}

func TestRunPreservesAdminEdits(t *testing.T) {
	db := newSeedTestDB(t)

	_, err := Run(db)
	require.NoError(t, err)

	_, err = db.Exec(`UPDATE pricing_tiers SET unit_price = 99 WHERE category = 'battery'`)
	require.NoError(t, err)

	_, err = Run(db)
	require.NoError(t, err)

	var price float64
	require.NoError(t, db.QueryRow(`
		SELECT unit_price FROM pricing_tiers WHERE category = 'battery' ORDER BY capacity LIMIT 1
	`).Scan(&price))
	assert.Equal(t, 99.0, price)
}

func TestSeededTiersAreAscendingInCapacityAndDescendingInPrice(t *testing.T) {
	for _, tier := range defaultTiers {
		prevCap, prevPrice := -1.0, 1e18
		for _, row := range tier.rows {
			assert.Greater(t, row.capacity, prevCap, tier.category)
			assert.LessOrEqual(t, row.unitPrice, prevPrice, tier.category)
			prevCap, prevPrice = row.capacity, row.unitPrice
		}
	}
}
