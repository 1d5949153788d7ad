package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/report"
)

type categoryRow struct {
	Name  string `json:"name"`
	Total string `json:"total"`
}

type userRow struct {
	UserID  string `json:"userId"`
	Name    string `json:"name"`
	Expense string `json:"expense"`
	Income  string `json:"income"`
}

type trendRow struct {
	Key     string `json:"key"`
	Label   string `json:"label"`
	Income  string `json:"income"`
	Expense string `json:"expense"`
	Net     string `json:"net"`
}

func (s *Server) reportRange(r *http.Request) (from, to time.Time) {
	period := strings.TrimSpace(r.URL.Query().Get("range"))
	return report.PeriodRange(time.Now(), period)
}

func (s *Server) handleCategoryReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	period := strings.TrimSpace(r.URL.Query().Get("range"))
	if cached, found := s.categoryCache.Get(period); found {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	from, to := report.PeriodRange(time.Now(), period)
	rows := report.CategoryBreakdown(s.feed.Transactions(), from, to)

	out := make([]categoryRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, categoryRow{Name: row.Name, Total: row.Total.String()})
	}
	s.categoryCache.Set(period, out)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUserReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	from, to := s.reportRange(r)
	rows := report.UserBreakdown(s.feed.Transactions(), s.feed.Users(), from, to)

	out := make([]userRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, userRow{
			UserID:  row.UserID,
			Name:    row.Name,
			Expense: row.Expense.String(),
			Income:  row.Income.String(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTrendReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	months := s.trendMonths
	if v := strings.TrimSpace(r.URL.Query().Get("months")); v != "" {
		if m, err := strconv.Atoi(v); err == nil && m >= 1 && m <= 60 {
			months = m
		}
	}

	key := strconv.Itoa(months)
	if cached, found := s.trendCache.Get(key); found {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	rows := report.MonthlyTrend(s.feed.Transactions(), time.Now(), months)
	out := make([]trendRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, trendRow{
			Key:     row.Key,
			Label:   row.Label,
			Income:  row.Income.String(),
			Expense: row.Expense.String(),
			Net:     row.Net.String(),
		})
	}
	s.trendCache.Set(key, out)
	writeJSON(w, http.StatusOK, out)
}

type budgetRequest struct {
	Range   string `json:"range,omitempty"`
	Budgets []struct {
		Category string `json:"category"`
		Amount   string `json:"amount"`
	} `json:"budgets"`
}

type budgetRow struct {
	Category string `json:"category"`
	Budget   string `json:"budget"`
	Spent    string `json:"spent"`
}

// handleBudgetReport evaluates caller-supplied category budgets against
// recorded spending. Budgets live client-side, so this is a pure
// calculation endpoint.
func (s *Server) handleBudgetReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var req budgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	budgets := make([]report.Budget, 0, len(req.Budgets))
	for _, b := range req.Budgets {
		amount, err := core.ParseAmount(b.Amount)
		if err != nil {
			writeError(w, r, err)
			return
		}
		budgets = append(budgets, report.Budget{Category: sanitizeInput(b.Category), Amount: amount})
	}

	from, to := report.PeriodRange(time.Now(), strings.TrimSpace(req.Range))
	rows := report.BudgetUsage(budgets, s.feed.Transactions(), from, to)

	out := make([]budgetRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, budgetRow{
			Category: row.Category,
			Budget:   row.Budget.String(),
			Spent:    row.Spent.String(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	from, to := s.reportRange(r)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)
	if err := report.WriteCSV(w, s.feed.Transactions(), s.feed.Users(), from, to); err != nil {
		writeError(w, r, err)
		return
	}
}
