package http

import (
	"net/http"

	"ledgerchat/internal/core"
	"ledgerchat/internal/storage"
)

type budgetRequest struct {
	Category  string  `json:"category"`
	Amount    float64 `json:"amount"`
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
}

type budgetResponse struct {
	ID        int64   `json:"id"`
	Category  string  `json:"category"`
	Amount    float64 `json:"amount"`
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
}

type budgetStatusResponse struct {
	Budget    budgetResponse `json:"budget"`
	Spent     float64        `json:"spent"`
	Remaining float64        `json:"remaining"`
	OverLimit bool           `json:"over_limit"`
}

func toBudgetResponse(b core.Budget) budgetResponse {
	return budgetResponse{
		ID:        b.ID,
		Category:  b.Category,
		Amount:    b.Amount.Dollars(),
		StartDate: b.StartDate.Format(storage.DateLayout),
		EndDate:   b.EndDate.Format(storage.DateLayout),
	}
}

func toBudgetStatusResponse(st core.BudgetStatus) budgetStatusResponse {
	return budgetStatusResponse{
		Budget:    toBudgetResponse(st.Budget),
		Spent:     st.Spent.Dollars(),
		Remaining: st.Remaining.Dollars(),
		OverLimit: st.OverLimit,
	}
}

func (s *Server) budgetFromRequest(w http.ResponseWriter, req budgetRequest, userID int64) (core.Budget, bool) {
	cents, err := core.CentsFromFloat(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid amount")
		return core.Budget{}, false
	}

	start := core.ParseDateFlexible(req.StartDate)
	end := core.ParseDateFlexible(req.EndDate)
	if start.IsZero() || end.IsZero() {
		respondError(w, http.StatusBadRequest, "invalid dates, expected YYYY-MM-DD")
		return core.Budget{}, false
	}

	return core.Budget{
		UserID:    userID,
		Category:  req.Category,
		Amount:    core.Money{Cents: cents},
		StartDate: start,
		EndDate:   end,
	}, true
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	budget, ok := s.budgetFromRequest(w, req, currentUser(r))
	if !ok {
		return
	}

	created, err := s.budgets.Create(r.Context(), budget)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toBudgetResponse(created))
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.budgets.List(r.Context(), currentUser(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	out := make([]budgetResponse, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, toBudgetResponse(b))
	}
	respondJSON(w, http.StatusOK, map[string]any{"budgets": out})
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}

	budget, err := s.budgets.Get(r.Context(), currentUser(r), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toBudgetResponse(budget))
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req budgetRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	budget, ok := s.budgetFromRequest(w, req, currentUser(r))
	if !ok {
		return
	}
	budget.ID = id

	if err := s.budgets.Update(r.Context(), budget); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toBudgetResponse(budget))
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}

	if err := s.budgets.Delete(r.Context(), currentUser(r), id); err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBudgetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}

	status, err := s.budgets.Status(r.Context(), currentUser(r), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toBudgetStatusResponse(status))
}

func (s *Server) handleBudgetStatusAll(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.budgets.StatusAll(r.Context(), currentUser(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	out := make([]budgetStatusResponse, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, toBudgetStatusResponse(st))
	}
	respondJSON(w, http.StatusOK, map[string]any{"statuses": out})
}
