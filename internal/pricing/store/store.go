// Package store is the sqlite-backed pricing.Repository.
//
// All reads are served from an immutable snapshot that Refresh swaps
// atomically, so in-flight quote computations never observe a partially
// updated table. Refresh runs outside the per-quote path (startup, admin
// endpoint, periodic timer).
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/ugobe007/merlin-quote/internal/faults"
	"github.com/ugobe007/merlin-quote/internal/pricing"
)

type snapshot struct {
	tiers   map[pricing.Category]pricing.Tier
	markups pricing.Markups
}

// Store implements pricing.Repository over sqlite reference tables.
type Store struct {
	db   *sql.DB
	log  zerolog.Logger
	snap atomic.Pointer[snapshot]
}

// New returns a Store. Call Refresh before serving quotes.
func New(db *sql.DB, log zerolog.Logger) *Store {
	return &Store{db: db, log: log.With().Str("component", "pricing_store").Logger()}
}

// Refresh loads every tier table and the markup singleton, validates them,
// and atomically replaces the serving snapshot. On any error the previous
// snapshot stays in place.
func (s *Store) Refresh(ctx context.Context) error {
	tiers, err := s.loadTiers(ctx)
	if err != nil {
		return err
	}
	markups, err := s.loadMarkups(ctx)
	if err != nil {
		return err
	}

	s.snap.Store(&snapshot{tiers: tiers, markups: markups})
	s.log.Info().
		Str("operation", "refresh").
		Int("tier_tables", len(tiers)).
		Str("markup_version", markups.Version).
		Msg("pricing snapshot refreshed")
	return nil
}

// Tier returns the tier table for a category from the current snapshot.
func (s *Store) Tier(ctx context.Context, category pricing.Category) (pricing.Tier, error) {
	snap, err := s.current(ctx)
	if err != nil {
		return pricing.Tier{}, err
	}
	tier, ok := snap.tiers[category]
	if !ok {
		return pricing.Tier{}, &faults.LookupError{
			Category: string(category),
			Reason:   "no pricing tier configured",
		}
	}
	return tier, nil
}

// Markups returns the markup configuration from the current snapshot.
func (s *Store) Markups(ctx context.Context) (pricing.Markups, error) {
	snap, err := s.current(ctx)
	if err != nil {
		return pricing.Markups{}, err
	}
	return snap.markups, nil
}

func (s *Store) current(ctx context.Context) (*snapshot, error) {
	if snap := s.snap.Load(); snap != nil {
		return snap, nil
	}
	// First use before an explicit Refresh.
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	return s.snap.Load(), nil
}

func (s *Store) loadTiers(ctx context.Context) (map[pricing.Category]pricing.Tier, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, unit, capacity, unit_price, COALESCE(source, '')
		FROM pricing_tiers
		WHERE active
		ORDER BY category, capacity ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query pricing tiers: %w", err)
	}
	defer rows.Close()

	tiers := make(map[pricing.Category]pricing.Tier)
	for rows.Next() {
		var (
			category, unit, source string
			capacity, unitPrice    float64
		)
		if err := rows.Scan(&category, &unit, &capacity, &unitPrice, &source); err != nil {
			return nil, fmt.Errorf("scan pricing tier row: %w", err)
		}
		cat := pricing.Category(category)
		tier := tiers[cat]
		tier.Category = cat
		tier.Unit = unit
		if source != "" {
			tier.Source = source
		}
		tier.Breakpoints = append(tier.Breakpoints, pricing.Breakpoint{
			Capacity:  capacity,
			UnitPrice: unitPrice,
		})
		tiers[cat] = tier
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pricing tiers: %w", err)
	}

	for cat, tier := range tiers {
		if err := tier.Validate(); err != nil {
			return nil, fmt.Errorf("pricing tier %s failed validation: %w", cat, err)
		}
	}
	return tiers, nil
}

func (s *Store) loadMarkups(ctx context.Context) (pricing.Markups, error) {
	var m pricing.Markups
	err := s.db.QueryRowContext(ctx, `
		SELECT bop_percent, epc_percent, tariff_percent, shipping_per_kwh, version
		FROM pricing_markups
		WHERE id = 1
	`).Scan(&m.BOPPercent, &m.EPCPercent, &m.TariffPercent, &m.ShippingPerKWh, &m.Version)
	if err != nil {
		return pricing.Markups{}, fmt.Errorf("query pricing markups singleton: %w", err)
	}
	return m, nil
}
