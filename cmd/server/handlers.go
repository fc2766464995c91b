package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/heyimjames/penang-growth-lab-sub002/casestrength"
	"github.com/heyimjames/penang-growth-lab-sub002/growthtools"
	"github.com/heyimjames/penang-growth-lab-sub002/heuristics"
	"github.com/heyimjames/penang-growth-lab-sub002/internal/logger"
	"github.com/heyimjames/penang-growth-lab-sub002/letters"
	"github.com/heyimjames/penang-growth-lab-sub002/protection"
	"github.com/heyimjames/penang-growth-lab-sub002/smallclaims"
	"github.com/heyimjames/penang-growth-lab-sub002/spam"
)

const defaultFlaggedMin = 50

func (s *Server) handleCaseStrength(w http.ResponseWriter, r *http.Request) {
	var req casestrength.QuizState
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	respondJSON(w, http.StatusOK, casestrength.Analyze(req))
}

func (s *Server) handlePaymentProtection(w http.ResponseWriter, r *http.Request) {
	var req PaymentProtectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if req.Country == "" || req.PaymentMethod == "" {
		respondError(w, http.StatusBadRequest, "country and paymentMethod are required", nil)
		return
	}
	if req.Amount < 0 {
		respondError(w, http.StatusBadRequest, "amount cannot be negative", nil)
		return
	}

	purchased, err := parseDate(req.PurchaseDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid purchaseDate", err)
		return
	}

	result := protection.Calculate(protection.Input{
		Country:       strings.ToLower(req.Country),
		PaymentMethod: strings.ToLower(req.PaymentMethod),
		Amount:        req.Amount,
		PurchaseDate:  purchased,
		IssueType:     req.IssueType,
	}, s.now())

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleSmallClaims(w http.ResponseWriter, r *http.Request) {
	var req SmallClaimsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if req.Country == "" {
		respondError(w, http.StatusBadRequest, "country is required", nil)
		return
	}
	if req.ClaimAmount < 0 {
		respondError(w, http.StatusBadRequest, "claimAmount cannot be negative", nil)
		return
	}

	incident, err := parseDate(req.IncidentDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid incidentDate", err)
		return
	}

	result := smallclaims.Calculate(smallclaims.Input{
		Country:          strings.ToLower(req.Country),
		ClaimAmount:      req.ClaimAmount,
		IncidentDate:     incident,
		SentDemandLetter: req.SentDemandLetter,
		CompanyResponded: req.CompanyResponded,
	}, s.now())

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleMER(w http.ResponseWriter, r *http.Request) {
	var req growthtools.Input
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	report, err := growthtools.Evaluate(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid marketing figures", err)
		return
	}

	respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleDraftLetter(w http.ResponseWriter, r *http.Request) {
	var req letters.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	letter, err := s.drafter.Draft(r.Context(), req)
	if errors.Is(err, letters.ErrInvalidRequest) {
		respondError(w, http.StatusBadRequest, "invalid letter request", err)
		return
	}
	if err != nil {
		logger.ErrorContext(r.Context(), "letter drafting failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to draft letter", err)
		return
	}

	respondJSON(w, http.StatusCreated, letter)
}

func (s *Server) handleSpamAnalysis(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	caller := r.Header.Get(adminHeader)

	analysis, err := s.analyzer.AnalyzeUser(r.Context(), caller, userID)
	switch {
	case errors.Is(err, spam.ErrUnauthorized):
		respondJSON(w, http.StatusForbidden, SpamAnalysisResponse{Error: "Unauthorized"})
	case errors.Is(err, spam.ErrUserNotFound):
		respondJSON(w, http.StatusNotFound, SpamAnalysisResponse{Error: "User not found"})
	case err != nil:
		logger.ErrorContext(r.Context(), "spam analysis failed", "user_id", userID, "error", err)
		respondJSON(w, http.StatusInternalServerError, SpamAnalysisResponse{Error: err.Error()})
	default:
		respondJSON(w, http.StatusOK, SpamAnalysisResponse{Success: true, Analysis: analysis})
	}
}

func (s *Server) handleListFlagged(w http.ResponseWriter, r *http.Request) {
	minScore := defaultFlaggedMin
	if raw := r.URL.Query().Get("min"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "min must be an integer", err)
			return
		}
		minScore = v
	}

	flagged, err := s.analyzer.ListFlagged(r.Context(), r.Header.Get(adminHeader), minScore)
	if errors.Is(err, spam.ErrUnauthorized) {
		respondError(w, http.StatusForbidden, "unauthorized", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list flagged users", err)
		return
	}

	respondJSON(w, http.StatusOK, FlaggedResponse{
		MinScore: heuristics.Clamp(minScore),
		Users:    flagged,
	})
}

// requireAdmin rejects callers whose header email is not the admin
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.analyzer.Authorize(r.Header.Get(adminHeader)); err != nil {
			respondError(w, http.StatusForbidden, "unauthorized", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleListHeuristics(w http.ResponseWriter, r *http.Request) {
	list, err := s.engine.List()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list heuristics", err)
		return
	}
	if list == nil {
		list = []*heuristics.Heuristic{}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"heuristics": list,
	})
}

func (s *Server) handleCreateHeuristic(w http.ResponseWriter, r *http.Request) {
	var req HeuristicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	h := req.toHeuristic()
	if h.ID == "" {
		h.ID = uuid.NewString()
	}

	err := s.engine.AddHeuristic(h)
	if errors.Is(err, heuristics.ErrAlreadyExists) {
		respondError(w, http.StatusConflict, "heuristic already exists", err)
		return
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to add heuristic", err)
		return
	}

	logger.InfoContext(r.Context(), "heuristic added", "id", h.ID, "flag", h.Flag, "points", h.Points)
	respondJSON(w, http.StatusCreated, h)
}

func (s *Server) handleUpdateHeuristic(w http.ResponseWriter, r *http.Request) {
	var req HeuristicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	h := req.toHeuristic()
	h.ID = chi.URLParam(r, "heuristicId")

	err := s.engine.UpdateHeuristic(h)
	if errors.Is(err, heuristics.ErrNotFound) {
		respondError(w, http.StatusNotFound, "heuristic not found", err)
		return
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to update heuristic", err)
		return
	}

	logger.InfoContext(r.Context(), "heuristic updated", "id", h.ID)
	respondJSON(w, http.StatusOK, h)
}

func (s *Server) handleDeleteHeuristic(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "heuristicId")

	if err := s.engine.DeleteHeuristic(id); err != nil {
		if errors.Is(err, heuristics.ErrNotFound) {
			respondError(w, http.StatusNotFound, "heuristic not found", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to delete heuristic", err)
		return
	}

	logger.InfoContext(r.Context(), "heuristic deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (req HeuristicRequest) toHeuristic() *heuristics.Heuristic {
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return &heuristics.Heuristic{
		ID:          strings.TrimSpace(req.ID),
		Flag:        req.Flag,
		Description: req.Description,
		Expression:  req.Expression,
		Points:      req.Points,
		Active:      active,
	}
}
