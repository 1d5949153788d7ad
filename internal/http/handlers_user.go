package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"bilancio/internal/core"
	"bilancio/internal/report"
	"bilancio/internal/store"
)

type userResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Balance string `json:"balance"`
	Role    string `json:"role"`
	Email   string `json:"email,omitempty"`
}

type createUserRequest struct {
	Name  string `json:"name"`
	Role  string `json:"role,omitempty"`
	Email string `json:"email,omitempty"`
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listUsers(w, r)
	case http.MethodPost:
		s.createUser(w, r)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	docs, err := s.store.Query(r.Context(), store.CollectionUsers, store.Query{OrderBy: core.FieldName})
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]userResponse, 0, len(docs))
	for _, doc := range docs {
		u := core.UserFromDoc(doc.ID, doc.Fields)
		out = append(out, userResponse{
			ID:      u.ID,
			Name:    u.Name,
			Balance: u.Balance.String(),
			Role:    u.Role,
			Email:   u.Email,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	name := sanitizeInput(req.Name)
	if name == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "missing user name"})
		return
	}
	role := strings.TrimSpace(req.Role)
	if role == "" {
		role = core.RoleMember
	}

	u := core.User{Name: name, Role: role, Email: strings.TrimSpace(req.Email)}
	id, err := s.store.Add(r.Context(), store.CollectionUsers, u.Doc())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// handleUserHistory lists every transaction a user appears in, as the
// origin or as a transfer destination, newest first.
func (s *Server) handleUserHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	userID := strings.TrimSpace(r.URL.Query().Get("user"))
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing user parameter"})
		return
	}

	history := report.UserHistory(s.feed.Transactions(), userID)
	out := make([]transactionResponse, 0, len(history))
	for _, tx := range history {
		out = append(out, toTransactionResponse(tx))
	}
	writeJSON(w, http.StatusOK, out)
}
