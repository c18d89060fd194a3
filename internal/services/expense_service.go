package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ledgerchat/internal/ai"
	"ledgerchat/internal/amqp"
	"ledgerchat/internal/core"
	"ledgerchat/internal/log"
	"ledgerchat/internal/metrics"
	"ledgerchat/internal/storage"
)

// ExportPublisher enqueues expenses for spreadsheet export.
type ExportPublisher interface {
	PublishExpenseExport(ctx context.Context, msg *amqp.ExpenseExportMessage) error
}

// ExpenseService orchestrates expense operations across SQLite, the AI
// provider and AMQP.
type ExpenseService struct {
	repo      *storage.Repository
	provider  ai.Provider
	publisher ExportPublisher
	logger    *log.Logger
	onChange  []func(userID int64)
}

func NewExpenseService(repo *storage.Repository, provider ai.Provider, publisher ExportPublisher, logger *log.Logger) *ExpenseService {
	return &ExpenseService{
		repo:      repo,
		provider:  provider,
		publisher: publisher,
		logger:    logger,
	}
}

// OnChange registers a callback invoked after every successful expense
// write. Derived-read caches (trends, budget status) hook in here.
// Not safe to call after the service is in use.
func (s *ExpenseService) OnChange(fn func(userID int64)) {
	s.onChange = append(s.onChange, fn)
}

func (s *ExpenseService) notifyChange(userID int64) {
	for _, fn := range s.onChange {
		fn(userID)
	}
}

// Create validates and saves an expense. A missing category is filled
// in by the AI provider. Source labels where the expense came from
// ("api", "chat" or "receipt").
func (s *ExpenseService) Create(ctx context.Context, e core.Expense, source string) (core.Expense, error) {
	if strings.TrimSpace(e.Category) == "" {
		e.Category = s.Categorize(ctx, e.Description, e.Amount, e.Date)
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	id, err := s.repo.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	e.ID = id
	metrics.ExpensesCreated.WithLabelValues(source).Inc()
	s.notifyChange(e.UserID)

	// Export is best effort. The expense stays export_state=pending and
	// the worker's periodic drain picks it up if this publish fails.
	if s.publisher != nil {
		if err := s.publisher.PublishExpenseExport(ctx, amqp.NewExpenseExportMessage(id, e.UserID)); err != nil {
			s.logger.ErrorContext(ctx, "publish export message failed",
				log.FieldExpenseID, id,
				log.FieldError, err)
		}
	}

	return e, nil
}

// Categorize asks the AI provider for a category, falling back to
// Miscellaneous when the provider is unavailable or errors.
func (s *ExpenseService) Categorize(ctx context.Context, description string, amount core.Money, date time.Time) string {
	if s.provider == nil {
		return core.FallbackCategory
	}

	prompt, err := ai.RenderPrompt(ai.PromptCategorize, map[string]any{
		"Description": description,
		"Amount":      amount.String(),
		"Date":        date.Format(storage.DateLayout),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "render categorize prompt failed", log.FieldError, err)
		return core.FallbackCategory
	}

	start := time.Now()
	raw, err := s.provider.Complete(ctx, prompt)
	metrics.AICompletionDuration.WithLabelValues(s.provider.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.AICompletions.WithLabelValues(s.provider.Name(), "error").Inc()
		s.logger.ErrorContext(ctx, "categorize completion failed",
			log.FieldProvider, s.provider.Name(),
			log.FieldExpenseDesc, description,
			log.FieldError, err)
		return core.FallbackCategory
	}
	metrics.AICompletions.WithLabelValues(s.provider.Name(), "success").Inc()

	category := strings.TrimSpace(raw)
	if category == "" || len(category) > 50 || strings.ContainsAny(category, "\n{") {
		return core.FallbackCategory
	}
	return category
}

func (s *ExpenseService) Get(ctx context.Context, userID, id int64) (core.Expense, error) {
	return s.repo.GetExpense(ctx, userID, id)
}

func (s *ExpenseService) List(ctx context.Context, userID int64, limit, offset int) ([]core.Expense, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListExpenses(ctx, userID, limit, offset)
}

// Update replaces an expense. A cleared category is re-categorized the
// same way Create does it.
func (s *ExpenseService) Update(ctx context.Context, e core.Expense) error {
	if strings.TrimSpace(e.Category) == "" {
		e.Category = s.Categorize(ctx, e.Description, e.Amount, e.Date)
	}
	if err := e.Validate(); err != nil {
		return err
	}
	if err := s.repo.UpdateExpense(ctx, e); err != nil {
		return err
	}
	s.notifyChange(e.UserID)
	return nil
}

func (s *ExpenseService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.repo.DeleteExpense(ctx, userID, id); err != nil {
		return err
	}
	s.notifyChange(userID)
	return nil
}

func (s *ExpenseService) InRange(ctx context.Context, userID int64, start, end time.Time) ([]core.Expense, error) {
	return s.repo.ExpensesInRange(ctx, userID, start, end)
}

func (s *ExpenseService) Search(ctx context.Context, userID int64, keyword string, start, end time.Time) ([]core.Expense, error) {
	return s.repo.SearchExpenses(ctx, userID, keyword, start, end)
}

func (s *ExpenseService) Total(ctx context.Context, userID int64, start, end time.Time) (core.Money, error) {
	return s.repo.SumExpenses(ctx, userID, start, end)
}

func (s *ExpenseService) TopCategories(ctx context.Context, userID int64, start, end time.Time, limit int) ([]core.CategoryAmount, error) {
	if limit < 1 {
		limit = 5
	}
	return s.repo.TopCategories(ctx, userID, start, end, limit)
}
