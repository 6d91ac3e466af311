package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ugobe007/merlin-quote/internal/faults"
	"github.com/ugobe007/merlin-quote/internal/finance"
	"github.com/ugobe007/merlin-quote/internal/pricing"
	"github.com/ugobe007/merlin-quote/internal/quote"
	"github.com/ugobe007/merlin-quote/internal/sizing"
)

const (
	// defaultDiscountRate is the WACC applied when the request does not
	// specify one. Source: Lazard LCOS, commercial storage cost of capital.
	defaultDiscountRate = 0.06

	// defaultDegradationRate is the annual savings fade from battery
	// capacity loss. Source: NREL battery lifetime studies, LFP chemistry.
	defaultDegradationRate = 0.02
)

type financialOptions struct {
	AnnualSavings          float64  `json:"annualSavings"`
	DemandChargePerKWMonth float64  `json:"demandChargePerKWMonth"`
	DiscountRate           *float64 `json:"discountRate"`
	HorizonYears           int      `json:"horizonYears"`
	DegradationRate        *float64 `json:"degradationRate"`
}

type quoteRequest struct {
	FacilityType string                   `json:"facilityType"`
	Answers      map[string]any           `json:"answers"`
	Title        string                   `json:"title"`
	Notes        string                   `json:"notes"`
	Renewables   pricing.RenewablesConfig `json:"renewables"`
	Financial    financialOptions         `json:"financial"`
}

// handleCreateQuote runs the full pipeline: sizing, pricing, financial
// metrics, assembly, then persists the document for later audit.
func (s *server) handleCreateQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	profile, err := sizing.NewProfile(req.FacilityType, req.Answers)
	if err != nil {
		s.writeError(w, err)
		return
	}

	siz, err := s.calculator.Size(profile)
	if err != nil {
		s.writeError(w, err)
		return
	}

	// When the grid cannot carry the facility and the caller did not pick a
	// generator size, quote one that covers the gap.
	renewables := req.Renewables
	if siz.GenerationRequired && renewables.GeneratorKW == 0 {
		renewables.GeneratorKW = siz.GenerationGapKW
	}

	priced, err := s.resolver.Price(r.Context(), siz, renewables)
	if err != nil {
		s.writeError(w, err)
		return
	}

	opts := req.Financial
	savings := opts.AnnualSavings
	if savings == 0 {
		demandCharge := opts.DemandChargePerKWMonth
		if demandCharge == 0 {
			demandCharge = finance.DefaultDemandChargePerKWMonth
		}
		savings = finance.EstimateAnnualSavings(siz.BESSPowerKW, demandCharge)
	}
	discountRate := defaultDiscountRate
	if opts.DiscountRate != nil {
		discountRate = *opts.DiscountRate
	}
	degradation := defaultDegradationRate
	if opts.DegradationRate != nil {
		degradation = *opts.DegradationRate
	}

	flow := finance.BuildCashFlow(priced.TotalCost, savings, opts.HorizonYears, degradation)
	fin, err := finance.Evaluate(priced.TotalCost, savings, flow, discountRate)
	if err != nil {
		s.writeError(w, err)
		return
	}

	q := quote.Assemble(profile, siz, priced, fin)
	if err := s.insertQuote(r.Context(), q, req.Title, req.Notes); err != nil {
		s.log.Error().Err(err).Str("quote_id", q.ID).Msg("failed to persist quote")
		http.Error(w, "failed to store quote", http.StatusInternalServerError)
		return
	}

	s.respondJSON(w, http.StatusCreated, q)
}

func (s *server) insertQuote(ctx context.Context, q quote.Quote, title, notes string) error {
	document, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("marshal quote document: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO quotes (id, created_at, facility_type, title, notes, total_cost, document_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, q.ID, q.CalculatedAt.Format("2006-01-02 15:04:05"), q.Facility.FacilityType,
		title, notes, q.Pricing.Result.TotalCost, string(document))
	if err != nil {
		return fmt.Errorf("insert quote: %w", err)
	}
	return nil
}

type quoteListItem struct {
	ID           string  `json:"id"`
	CreatedAt    string  `json:"createdAt"`
	FacilityType string  `json:"facilityType"`
	Title        string  `json:"title"`
	TotalCost    float64 `json:"totalCost"`
}

func (s *server) handleListQuotes(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	quotes, err := s.listQuotes(query)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list quotes")
		http.Error(w, "failed to load quotes", http.StatusInternalServerError)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"quotes": quotes})
}

func (s *server) listQuotes(query string) ([]quoteListItem, error) {
	search := "%" + query + "%"
	rows, err := s.db.Query(`
		SELECT id, created_at, facility_type, COALESCE(title, ''), total_cost
		FROM quotes
		WHERE (? = '' OR facility_type LIKE ? OR COALESCE(title, '') LIKE ? OR COALESCE(notes, '') LIKE ?)
		ORDER BY datetime(created_at) DESC, id DESC
	`, query, search, search, search)
	if err != nil {
		return nil, fmt.Errorf("query quotes: %w", err)
	}
	defer rows.Close()

	quotes := make([]quoteListItem, 0)
	for rows.Next() {
		var item quoteListItem
		if err := rows.Scan(&item.ID, &item.CreatedAt, &item.FacilityType, &item.Title, &item.TotalCost); err != nil {
			return nil, fmt.Errorf("scan quote row: %w", err)
		}
		quotes = append(quotes, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quotes: %w", err)
	}
	return quotes, nil
}

// handleGetQuote returns the stored quote document verbatim, so an exported
// quote is byte-for-byte reproducible regardless of later pricing changes.
func (s *server) handleGetQuote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var document string
	err := s.db.QueryRow(`SELECT document_json FROM quotes WHERE id = ?`, id).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("quote_id", id).Msg("failed to load quote")
		http.Error(w, "failed to load quote", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write([]byte(document))
}

func (s *server) handleFacilityTypes(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"facilityTypes": s.calculator.Metadata(),
	})
}

// writeError maps pipeline errors onto HTTP statuses. Configuration and
// validation problems are the caller's to fix; a pricing lookup failure is a
// data-integrity fault and is never blamed on the user.
func (s *server) writeError(w http.ResponseWriter, err error) {
	var (
		cerr *faults.ConfigurationError
		verr *faults.ValidationError
		lerr *faults.LookupError
	)
	switch {
	case errors.As(err, &cerr):
		s.respondJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error": cerr.Reason,
			"field": cerr.Field,
		})
	case errors.As(err, &verr):
		s.respondJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error": verr.Reason,
			"field": verr.Field,
		})
	case errors.As(err, &lerr):
		s.log.Error().Err(err).Str("category", lerr.Category).Msg("pricing table integrity failure")
		http.Error(w, "pricing data unavailable", http.StatusInternalServerError)
	default:
		s.log.Error().Err(err).Msg("quote computation failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (s *server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("failed to encode response")
	}
}
