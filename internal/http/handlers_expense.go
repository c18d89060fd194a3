package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"ledgerchat/internal/core"
	"ledgerchat/internal/storage"
)

type expenseRequest struct {
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Date        string  `json:"date"` // YYYY-MM-DD, defaults to today
}

type expenseResponse struct {
	ID          int64   `json:"id"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Date        string  `json:"date"`
	ReceiptID   string  `json:"receipt_id,omitempty"`
	CreatedAt   string  `json:"created_at,omitempty"`
}

func toExpenseResponse(e core.Expense) expenseResponse {
	resp := expenseResponse{
		ID:          e.ID,
		Amount:      e.Amount.Dollars(),
		Description: e.Description,
		Category:    e.Category,
		Date:        e.Date.Format(storage.DateLayout),
		ReceiptID:   e.ReceiptID,
	}
	if !e.CreatedAt.IsZero() {
		resp.CreatedAt = e.CreatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

// expenseFromRequest builds a domain expense, leaving validation to the
// service layer. Only the amount and date need conversion up front.
func (s *Server) expenseFromRequest(w http.ResponseWriter, req expenseRequest, userID int64) (core.Expense, bool) {
	cents, err := core.CentsFromFloat(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid amount")
		return core.Expense{}, false
	}

	date := s.now().UTC().Truncate(24 * time.Hour)
	if req.Date != "" {
		if date = core.ParseDateFlexible(req.Date); date.IsZero() {
			respondError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return core.Expense{}, false
		}
	}

	return core.Expense{
		UserID:      userID,
		Amount:      core.Money{Cents: cents},
		Description: req.Description,
		Category:    req.Category,
		Date:        date,
	}, true
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	expense, ok := s.expenseFromRequest(w, req, currentUser(r))
	if !ok {
		return
	}

	created, err := s.expenses.Create(r.Context(), expense, "api")
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, toExpenseResponse(created))
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	expenses, err := s.expenses.List(r.Context(), currentUser(r), limit, offset)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	out := make([]expenseResponse, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseResponse(e))
	}
	respondJSON(w, http.StatusOK, map[string]any{"expenses": out})
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}

	expense, err := s.expenses.Get(r.Context(), currentUser(r), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toExpenseResponse(expense))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req expenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	expense, ok := s.expenseFromRequest(w, req, currentUser(r))
	if !ok {
		return
	}
	expense.ID = id

	if err := s.expenses.Update(r.Context(), expense); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toExpenseResponse(expense))
}

type categoryOverrideRequest struct {
	Category string `json:"category"`
}

// handleOverrideCategory replaces the category of a stored expense,
// typically to correct an AI guess.
func (s *Server) handleOverrideCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req categoryOverrideRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Category) == "" {
		respondError(w, http.StatusBadRequest, "category is required")
		return
	}

	expense, err := s.expenses.Get(r.Context(), currentUser(r), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	expense.Category = req.Category

	if err := s.expenses.Update(r.Context(), expense); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toExpenseResponse(expense))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := s.expenses.Delete(r.Context(), currentUser(r), id); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type summaryResponse struct {
	Total         float64          `json:"total"`
	TopCategories []categoryAmount `json:"top_categories"`
	Start         string           `json:"start"`
	End           string           `json:"end"`
}

type categoryAmount struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

func (s *Server) handleExpenseSummary(w http.ResponseWriter, r *http.Request) {
	userID := currentUser(r)
	start, end := s.queryRange(r)

	total, err := s.expenses.Total(r.Context(), userID, start, end)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	top, err := s.expenses.TopCategories(r.Context(), userID, start, end, 5)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	resp := summaryResponse{
		Total: total.Dollars(),
		Start: start.Format(storage.DateLayout),
		End:   end.Format(storage.DateLayout),
	}
	for _, c := range top {
		resp.TopCategories = append(resp.TopCategories, categoryAmount{
			Category: c.Name,
			Amount:   c.Amount.Dollars(),
		})
	}
	respondJSON(w, http.StatusOK, resp)
}

// queryRange reads optional start/end query parameters, defaulting to
// the trailing 30 days.
func (s *Server) queryRange(r *http.Request) (time.Time, time.Time) {
	now := s.now()
	start := now.AddDate(0, 0, -30)
	end := now

	if v := r.URL.Query().Get("start"); v != "" {
		if t := core.ParseDateFlexible(v); !t.IsZero() {
			start = t
		}
	}
	if v := r.URL.Query().Get("end"); v != "" {
		if t := core.ParseDateFlexible(v); !t.IsZero() {
			// Inclusive of the whole end day.
			end = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
	}
	return start, end
}
