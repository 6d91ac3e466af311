package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ugobe007/merlin-quote/internal/pricing"
)

// Admin endpoints edit the pricing reference tables. Edits only become
// visible to quote computations after a refresh swaps in a new snapshot.

func parseCategory(raw string) (pricing.Category, bool) {
	for _, category := range pricing.EquipmentCategories() {
		if string(category) == raw {
			return category, true
		}
	}
	return "", false
}

func (s *server) handleAdminTierGet(w http.ResponseWriter, r *http.Request) {
	category, ok := parseCategory(chi.URLParam(r, "category"))
	if !ok {
		http.Error(w, "unknown equipment category", http.StatusNotFound)
		return
	}

	tier, err := s.pricing.Tier(r.Context(), category)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, tier)
}

type tierUpdateRequest struct {
	Unit        string               `json:"unit"`
	Source      string               `json:"source"`
	Breakpoints []pricing.Breakpoint `json:"breakpoints"`
}

func (s *server) handleAdminTierPut(w http.ResponseWriter, r *http.Request) {
	category, ok := parseCategory(chi.URLParam(r, "category"))
	if !ok {
		http.Error(w, "unknown equipment category", http.StatusNotFound)
		return
	}

	var req tierUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.Unit == "" {
		http.Error(w, "unit is required", http.StatusBadRequest)
		return
	}

	proposed := pricing.Tier{
		Category:    category,
		Unit:        req.Unit,
		Breakpoints: req.Breakpoints,
		Source:      req.Source,
	}
	if err := proposed.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.replaceTier(r.Context(), proposed); err != nil {
		s.log.Error().Err(err).Str("category", string(category)).Msg("failed to update pricing tier")
		http.Error(w, "failed to update pricing tier", http.StatusInternalServerError)
		return
	}

	if err := s.pricing.Refresh(r.Context()); err != nil {
		s.log.Error().Err(err).Msg("failed to refresh pricing snapshot after tier update")
		http.Error(w, "tier saved but snapshot refresh failed", http.StatusInternalServerError)
		return
	}

	s.respondJSON(w, http.StatusOK, proposed)
}

func (s *server) replaceTier(ctx context.Context, tier pricing.Tier) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tier update transaction: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM pricing_tiers WHERE category = ?`, string(tier.Category)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete old tier rows: %w", err)
	}
	for _, bp := range tier.Breakpoints {
		if _, err := tx.Exec(`
			INSERT INTO pricing_tiers (category, unit, capacity, unit_price, source, active)
			VALUES (?, ?, ?, ?, ?, TRUE)
		`, string(tier.Category), tier.Unit, bp.Capacity, bp.UnitPrice, tier.Source); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert tier breakpoint: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tier update: %w", err)
	}
	return nil
}

func (s *server) handleAdminMarkupsGet(w http.ResponseWriter, r *http.Request) {
	markups, err := s.pricing.Markups(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, markups)
}

func (s *server) handleAdminMarkupsPut(w http.ResponseWriter, r *http.Request) {
	var req pricing.Markups
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.BOPPercent < 0 || req.EPCPercent < 0 || req.TariffPercent < 0 || req.ShippingPerKWh < 0 {
		http.Error(w, "markup rates must be non-negative", http.StatusBadRequest)
		return
	}
	if req.Version == "" {
		http.Error(w, "version is required", http.StatusBadRequest)
		return
	}

	_, err := s.db.ExecContext(r.Context(), `
		UPDATE pricing_markups
		SET
			bop_percent = ?,
			epc_percent = ?,
			tariff_percent = ?,
			shipping_per_kwh = ?,
			version = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
	`, req.BOPPercent, req.EPCPercent, req.TariffPercent, req.ShippingPerKWh, req.Version)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to update markups")
		http.Error(w, "failed to update markups", http.StatusInternalServerError)
		return
	}

	if err := s.pricing.Refresh(r.Context()); err != nil {
		s.log.Error().Err(err).Msg("failed to refresh pricing snapshot after markup update")
		http.Error(w, "markups saved but snapshot refresh failed", http.StatusInternalServerError)
		return
	}

	s.respondJSON(w, http.StatusOK, req)
}

func (s *server) handleAdminRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.pricing.Refresh(r.Context()); err != nil {
		s.log.Error().Err(err).Msg("pricing snapshot refresh failed")
		http.Error(w, "refresh failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}
