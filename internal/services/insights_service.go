package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ledgerchat/internal/ai"
	"ledgerchat/internal/log"
	"ledgerchat/internal/metrics"
	"ledgerchat/internal/storage"
)

// InsightsService turns raw expense data into AI-generated analysis.
type InsightsService struct {
	repo     *storage.Repository
	provider ai.Provider
	logger   *log.Logger
}

func NewInsightsService(repo *storage.Repository, provider ai.Provider, logger *log.Logger) *InsightsService {
	return &InsightsService{repo: repo, provider: provider, logger: logger}
}

type promptExpense struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Date        string  `json:"date"`
}

// Insights analyzes spending in [start, end]. Model failures degrade
// to a zeroed result with a system_error anomaly instead of an error,
// so callers always get a renderable payload.
func (s *InsightsService) Insights(ctx context.Context, userID int64, start, end time.Time) (ai.Insights, error) {
	expenses, err := s.repo.ExpensesInRange(ctx, userID, start, end)
	if err != nil {
		return ai.Insights{}, err
	}
	if len(expenses) == 0 {
		// Nothing to analyze, skip the provider call.
		return ai.Insights{
			TopCategories: []ai.InsightCategory{},
			Anomalies:     []ai.Anomaly{},
		}, nil
	}

	rows := make([]promptExpense, 0, len(expenses))
	for _, e := range expenses {
		rows = append(rows, promptExpense{
			Description: e.Description,
			Amount:      e.Amount.Dollars(),
			Category:    e.Category,
			Date:        e.Date.Format(storage.DateLayout),
		})
	}
	expensesJSON, err := json.Marshal(rows)
	if err != nil {
		return ai.Insights{}, fmt.Errorf("marshal expenses: %w", err)
	}

	prompt, err := ai.RenderPrompt(ai.PromptInsights, map[string]any{
		"StartDate":    start.Format(storage.DateLayout),
		"EndDate":      end.Format(storage.DateLayout),
		"ExpensesJSON": string(expensesJSON),
	})
	if err != nil {
		return ai.Insights{}, err
	}

	raw, err := s.complete(ctx, prompt)
	if err != nil {
		s.logger.ErrorContext(ctx, "insights completion failed",
			log.FieldUserID, userID,
			log.FieldError, err)
		return ai.ParseInsights(""), nil
	}

	return ai.ParseInsights(raw), nil
}

// NoSuggestionsReply is returned when there is nothing to analyze.
const NoSuggestionsReply = "There isn't enough spending data yet to make suggestions. Record a few expenses first."

// Suggestions asks the model for money-saving advice based on the
// category breakdown of [start, end], contrasted with the window of
// equal length directly before it.
func (s *InsightsService) Suggestions(ctx context.Context, userID int64, start, end time.Time) (string, error) {
	total, err := s.repo.SumExpenses(ctx, userID, start, end)
	if err != nil {
		return "", err
	}
	if total.Cents == 0 {
		return NoSuggestionsReply, nil
	}

	// The previous window ends the day before the current one starts, so
	// a boundary-day expense is never counted in both.
	prevEnd := start.AddDate(0, 0, -1)
	prevStart := prevEnd.Add(-end.Sub(start))
	previousTotal, err := s.repo.SumExpenses(ctx, userID, prevStart, prevEnd)
	if err != nil {
		return "", err
	}
	categories, err := s.repo.TopCategories(ctx, userID, start, end, 10)
	if err != nil {
		return "", err
	}

	type categoryRow struct {
		Category string  `json:"category"`
		Amount   float64 `json:"amount"`
	}
	rows := make([]categoryRow, 0, len(categories))
	for _, c := range categories {
		rows = append(rows, categoryRow{Category: c.Name, Amount: c.Amount.Dollars()})
	}
	categoriesJSON, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("marshal categories: %w", err)
	}

	prompt, err := ai.RenderPrompt(ai.PromptSuggestions, map[string]any{
		"StartDate":      start.Format(storage.DateLayout),
		"EndDate":        end.Format(storage.DateLayout),
		"TotalSpent":     total.String(),
		"PreviousTotal":  previousTotal.String(),
		"CategoriesJSON": string(categoriesJSON),
	})
	if err != nil {
		return "", err
	}

	suggestions, err := s.complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("suggestions completion: %w", err)
	}
	return suggestions, nil
}

// ExtractReceipt parses receipt text into line items.
func (s *InsightsService) ExtractReceipt(ctx context.Context, text string) (ai.ReceiptExtraction, error) {
	prompt, err := ai.RenderPrompt(ai.PromptReceipt, map[string]any{
		"ReceiptText": text,
	})
	if err != nil {
		return ai.ReceiptExtraction{}, err
	}

	raw, err := s.complete(ctx, prompt)
	if err != nil {
		return ai.ReceiptExtraction{}, fmt.Errorf("receipt completion: %w", err)
	}
	return ai.ParseReceiptExtraction(raw)
}

func (s *InsightsService) complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	raw, err := s.provider.Complete(ctx, prompt)
	metrics.AICompletionDuration.WithLabelValues(s.provider.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.AICompletions.WithLabelValues(s.provider.Name(), "error").Inc()
		return "", err
	}
	metrics.AICompletions.WithLabelValues(s.provider.Name(), "success").Inc()
	return raw, nil
}
