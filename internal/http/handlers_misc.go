package http

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"ledgerchat/internal/core"
)

type monthTotalResponse struct {
	Month string  `json:"month"` // YYYY-MM
	Total float64 `json:"total"`
}

func (s *Server) handleMonthlyTrends(w http.ResponseWriter, r *http.Request) {
	months, _ := strconv.Atoi(r.URL.Query().Get("months"))

	totals, err := s.trends.Monthly(r.Context(), currentUser(r), months, s.now())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	out := make([]monthTotalResponse, 0, len(totals))
	for _, mt := range totals {
		out = append(out, monthTotalResponse{
			Month: fmt.Sprintf("%04d-%02d", mt.Year, mt.Month),
			Total: mt.Total.Dollars(),
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"months": out})
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	start, end := s.queryRange(r)

	insights, err := s.insights.Insights(r.Context(), currentUser(r), start, end)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, insights)
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	start, end := s.queryRange(r)

	text, err := s.insights.Suggestions(r.Context(), currentUser(r), start, end)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, "suggestions are unavailable right now")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"suggestions": text})
}

type categorizeRequest struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Date        string  `json:"date"`
}

// handleCategorize runs AI categorization without recording anything.
// Failures fall back to the default category, so this always succeeds.
func (s *Server) handleCategorize(w http.ResponseWriter, r *http.Request) {
	var req categorizeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Description) == "" {
		respondError(w, http.StatusBadRequest, "description is required")
		return
	}

	cents, err := core.CentsFromFloat(req.Amount)
	if err != nil {
		cents = 0
	}
	date := core.ParseDateFlexible(req.Date)
	if date.IsZero() {
		date = s.now()
	}

	category := s.expenses.Categorize(r.Context(), req.Description, core.Money{Cents: cents}, date)
	respondJSON(w, http.StatusOK, map[string]string{"category": category})
}

type receiptResponse struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	State     string `json:"state"`
	SHA256    string `json:"sha256"`
	SizeBytes int64  `json:"size_bytes"`
	CreatedAt string `json:"created_at"`
}

func toReceiptResponse(rc core.Receipt) receiptResponse {
	return receiptResponse{
		ID:        rc.ID,
		Filename:  rc.Filename,
		State:     rc.State,
		SHA256:    rc.SHA256,
		SizeBytes: rc.SizeBytes,
		CreatedAt: rc.CreatedAt.UTC().Format(time.RFC3339),
	}
}

const maxReceiptUpload = 10 << 20 // 10 MiB

// handleUploadReceipt accepts a multipart form with a required "text"
// field holding the receipt contents and an optional "file" attachment
// kept for audit. Extraction runs asynchronously over the text.
func (s *Server) handleUploadReceipt(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxReceiptUpload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	text := strings.TrimSpace(r.FormValue("text"))
	if text == "" {
		respondError(w, http.StatusBadRequest, "text field is required")
		return
	}

	filename := "receipt.txt"
	contentType := "text/plain"
	var body io.Reader = strings.NewReader(text)

	if file, header, err := r.FormFile("file"); err == nil {
		defer file.Close()
		filename = header.Filename
		if ct := header.Header.Get("Content-Type"); ct != "" {
			contentType = ct
		}
		body = file
	}

	receipt, err := s.receipts.Upload(r.Context(), currentUser(r), filename, contentType, text, body)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusAccepted, toReceiptResponse(receipt))
}

func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	receipt, err := s.receipts.Get(r.Context(), currentUser(r), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toReceiptResponse(receipt))
}
