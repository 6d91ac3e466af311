// Package seed installs the default pricing catalog on first startup.
//
// Seeding is idempotent: a category that already has tier rows is left
// untouched, so administrative edits survive restarts.
package seed

import (
	"database/sql"
	"fmt"
)

const markupVersion = "markups-2025.08"

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
}

type tierRow struct {
	capacity  float64
	unitPrice float64
}

type tierSeed struct {
	category string
	unit     string
	source   string
	rows     []tierRow
}

// Default tier tables. Unit prices fall as systems grow: small systems pay
// the ceiling price, utility-scale systems the floor.
var defaultTiers = []tierSeed{
	{
		category: "battery", unit: "kWh",
		source: "NREL ATB 2024, LFP turnkey pack price by project size",
		rows: []tierRow{
			{500, 210}, {2000, 155}, {15000, 105}, {100000, 95},
		},
	},
	{
		category: "inverter", unit: "kW",
		source: "NREL ATB 2024, bidirectional PCS by rating",
		rows: []tierRow{
			{100, 120}, {1000, 90}, {10000, 60},
		},
	},
	{
		category: "transformer", unit: "kW",
		source: "Vendor RFQ medians, pad-mount step-up by rating",
		rows: []tierRow{
			{100, 60}, {1000, 45}, {10000, 35},
		},
	},
	{
		category: "solar", unit: "kW",
		source: "NREL ATB 2024, commercial PV installed cost",
		rows: []tierRow{
			{100, 1400}, {1000, 1100}, {10000, 900},
		},
	},
	{
		category: "wind", unit: "kW",
		source: "NREL ATB 2024, distributed wind installed cost",
		rows: []tierRow{
			{500, 1800}, {5000, 1400},
		},
	},
	{
		category: "generator", unit: "kW",
		source: "Vendor RFQ medians, natural-gas genset installed cost",
		rows: []tierRow{
			{100, 700}, {1000, 550}, {10000, 450},
		},
	},
}

// Run executes the startup seed in an idempotent way.
func Run(db *sql.DB) (Stats, error) {
	tx, err := db.Begin()
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}

	for _, tier := range defaultTiers {
		if err := ensureTier(tx, tier, &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}
	if err := ensureMarkups(tx, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	return stats, nil
}

func ensureTier(tx *sql.Tx, tier tierSeed, stats *Stats) error {
	var exists bool
	if err := tx.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM pricing_tiers WHERE category = ? LIMIT 1)
	`, tier.category).Scan(&exists); err != nil {
		return fmt.Errorf("check %s tier existence: %w", tier.category, err)
	}
	if exists {
		return nil
	}

	for _, row := range tier.rows {
		if _, err := tx.Exec(`
			INSERT INTO pricing_tiers (category, unit, capacity, unit_price, source, active)
			VALUES (?, ?, ?, ?, ?, TRUE)
		`, tier.category, tier.unit, row.capacity, row.unitPrice, tier.source); err != nil {
			return fmt.Errorf("insert %s tier breakpoint: %w", tier.category, err)
		}
		stats.Inserts++
	}
	return nil
}

func ensureMarkups(tx *sql.Tx, stats *Stats) error {
	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM pricing_markups WHERE id = 1)`).Scan(&exists); err != nil {
		return fmt.Errorf("check markups existence: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := tx.Exec(`
		INSERT INTO pricing_markups (id, bop_percent, epc_percent, tariff_percent, shipping_per_kwh, version)
		VALUES (1, ?, ?, ?, ?, ?)
	`, 12.0, 15.0, 5.5, 2.5, markupVersion); err != nil {
		return fmt.Errorf("insert markups singleton: %w", err)
	}
	stats.Inserts++
	return nil
}
