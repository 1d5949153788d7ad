package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"bilancio/internal/core"
)

type transactionRequest struct {
	ID          string `json:"id,omitempty"`
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Date        string `json:"date"`
	User        string `json:"user"`
	To          string `json:"to,omitempty"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

func (req transactionRequest) toTransaction() (core.Transaction, error) {
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("amount %q: %w", req.Amount, err)
	}
	date, err := parseDate(strings.TrimSpace(req.Date))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("date %q: %w", req.Date, core.ErrInvalidDate)
	}
	return core.Transaction{
		Type:        core.TransactionType(strings.TrimSpace(req.Type)),
		Amount:      amount,
		Date:        date,
		User:        strings.TrimSpace(req.User),
		To:          strings.TrimSpace(req.To),
		Description: sanitizeInput(req.Description),
		Category:    sanitizeInput(req.Category),
	}, nil
}

type transactionResponse struct {
	ID          string            `json:"id"`
	Type        string            `json:"type"`
	Amount      string            `json:"amount"`
	Date        string            `json:"date"`
	User        string            `json:"user"`
	To          string            `json:"to,omitempty"`
	Description string            `json:"description"`
	Category    string            `json:"category"`
	Comments    []commentResponse `json:"comments,omitempty"`
}

type commentResponse struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName,omitempty"`
	At         time.Time `json:"at"`
}

func toTransactionResponse(tx core.Transaction) transactionResponse {
	resp := transactionResponse{
		ID:          tx.ID,
		Type:        string(tx.Type),
		Amount:      tx.Amount.String(),
		Date:        tx.Date.Format("2006-01-02"),
		User:        tx.User,
		To:          tx.To,
		Description: tx.DisplayDescription(),
		Category:    tx.Category,
	}
	for _, c := range tx.Comments {
		resp.Comments = append(resp.Comments, commentResponse{
			ID:         c.ID,
			Text:       c.Text,
			AuthorID:   c.AuthorID,
			AuthorName: c.AuthorName,
			At:         c.At,
		})
	}
	return resp
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createTransaction(w, r)
	case http.MethodPut:
		s.updateTransaction(w, r)
	case http.MethodDelete:
		s.deleteTransaction(w, r)
	default:
		methodNotAllowed(w, "POST, PUT, DELETE")
	}
}

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	tx, err := req.toTransaction()
	if err != nil {
		writeError(w, r, err)
		return
	}

	id, err := s.ledger.Create(r.Context(), tx)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateReportCaches()
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) updateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.ID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing transaction id"})
		return
	}

	tx, err := req.toTransaction()
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.ledger.Update(r.Context(), req.ID, tx); err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateReportCaches()
	writeJSON(w, http.StatusOK, map[string]string{"id": req.ID})
}

func (s *Server) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing transaction id"})
		return
	}

	if err := s.ledger.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateReportCaches()
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

type commentRequest struct {
	TransactionID string `json:"transactionId"`
	Text          string `json:"text"`
	AuthorID      string `json:"authorId"`
	AuthorName    string `json:"authorName,omitempty"`
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.TransactionID) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing transaction id"})
		return
	}

	comment, err := s.ledger.AddComment(r.Context(), req.TransactionID, core.Comment{
		Text:       sanitizeInput(req.Text),
		AuthorID:   strings.TrimSpace(req.AuthorID),
		AuthorName: sanitizeInput(req.AuthorName),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, commentResponse{
		ID:         comment.ID,
		Text:       comment.Text,
		AuthorID:   comment.AuthorID,
		AuthorName: comment.AuthorName,
		At:         comment.At,
	})
}
