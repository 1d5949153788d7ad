package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"bilancio/internal/core"
	"bilancio/internal/ledger"
)

type splitRequest struct {
	Payer        string   `json:"payer"`
	Participants []string `json:"participants"`
	Total        string   `json:"total"`
	Description  string   `json:"description"`
	Date         string   `json:"date"`
}

type splitResponse struct {
	Share       string   `json:"share"`
	ExpenseID   string   `json:"expenseId"`
	TransferIDs []string `json:"transferIds"`
}

func (s *Server) handleSplit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var req splitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	total, err := core.ParseAmount(req.Total)
	if err != nil {
		writeError(w, r, err)
		return
	}
	date, err := parseDate(strings.TrimSpace(req.Date))
	if err != nil {
		writeError(w, r, core.ErrInvalidDate)
		return
	}

	participants := make([]string, 0, len(req.Participants))
	for _, p := range req.Participants {
		if p = strings.TrimSpace(p); p != "" {
			participants = append(participants, p)
		}
	}

	result, err := s.ledger.Split(r.Context(), ledger.SplitRequest{
		Payer:        strings.TrimSpace(req.Payer),
		Participants: participants,
		Total:        total,
		Description:  sanitizeInput(req.Description),
		Date:         date,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateReportCaches()
	writeJSON(w, http.StatusCreated, splitResponse{
		Share:       result.Share.String(),
		ExpenseID:   result.ExpenseID,
		TransferIDs: result.TransferIDs,
	})
}
