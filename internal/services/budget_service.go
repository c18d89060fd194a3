package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ledgerchat/internal/cache"
	"ledgerchat/internal/core"
	"ledgerchat/internal/log"
	"ledgerchat/internal/metrics"
	"ledgerchat/internal/storage"
)

// BudgetService manages per-category spending limits and evaluates
// expenses against them. StatusAll results are cached per user and
// dropped on budget or expense writes.
type BudgetService struct {
	repo   *storage.Repository
	logger *log.Logger
	cache  *cache.LRUCache[[]core.BudgetStatus]

	mu       sync.Mutex
	versions map[int64]uint64
}

func NewBudgetService(repo *storage.Repository, logger *log.Logger) *BudgetService {
	return &BudgetService{
		repo:     repo,
		logger:   logger,
		cache:    cache.NewLRUCache[[]core.BudgetStatus](128, time.Minute),
		versions: make(map[int64]uint64),
	}
}

// Invalidate drops cached statuses for a user. Wired to
// ExpenseService.OnChange and called on budget writes.
func (s *BudgetService) Invalidate(userID int64) {
	s.mu.Lock()
	s.versions[userID]++
	s.mu.Unlock()
}

func (s *BudgetService) version(userID int64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.versions[userID]
}

func (s *BudgetService) Create(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	id, err := s.repo.CreateBudget(ctx, b)
	if err != nil {
		return core.Budget{}, fmt.Errorf("save budget: %w", err)
	}
	b.ID = id
	s.Invalidate(b.UserID)
	return b, nil
}

func (s *BudgetService) Get(ctx context.Context, userID, id int64) (core.Budget, error) {
	return s.repo.GetBudget(ctx, userID, id)
}

func (s *BudgetService) List(ctx context.Context, userID int64) ([]core.Budget, error) {
	return s.repo.ListBudgets(ctx, userID)
}

func (s *BudgetService) Update(ctx context.Context, b core.Budget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if err := s.repo.UpdateBudget(ctx, b); err != nil {
		return err
	}
	s.Invalidate(b.UserID)
	return nil
}

func (s *BudgetService) Delete(ctx context.Context, userID, id int64) error {
	if err := s.repo.DeleteBudget(ctx, userID, id); err != nil {
		return err
	}
	s.Invalidate(userID)
	return nil
}

// Status computes spending against one budget.
func (s *BudgetService) Status(ctx context.Context, userID, id int64) (core.BudgetStatus, error) {
	b, err := s.repo.GetBudget(ctx, userID, id)
	if err != nil {
		return core.BudgetStatus{}, err
	}
	return s.status(ctx, b)
}

// StatusAll computes spending against every budget of the user.
func (s *BudgetService) StatusAll(ctx context.Context, userID int64) ([]core.BudgetStatus, error) {
	key := fmt.Sprintf("%d:%d", userID, s.version(userID))
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	budgets, err := s.repo.ListBudgets(ctx, userID)
	if err != nil {
		return nil, err
	}

	statuses := make([]core.BudgetStatus, 0, len(budgets))
	for _, b := range budgets {
		st, err := s.status(ctx, b)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, st)
	}

	s.cache.Set(key, statuses)
	return statuses, nil
}

func (s *BudgetService) status(ctx context.Context, b core.Budget) (core.BudgetStatus, error) {
	spent, err := s.repo.SumCategory(ctx, b.UserID, b.Category, b.StartDate, b.EndDate)
	if err != nil {
		return core.BudgetStatus{}, fmt.Errorf("budget status %d: %w", b.ID, err)
	}
	return core.BudgetStatus{
		Budget:    b,
		Spent:     spent,
		Remaining: core.Money{Cents: b.Amount.Cents - spent.Cents},
		OverLimit: spent.Cents > b.Amount.Cents,
	}, nil
}

// Evaluate returns alert messages for every budget the expense pushes
// over its limit. Called after an expense is recorded.
func (s *BudgetService) Evaluate(ctx context.Context, e core.Expense) ([]string, error) {
	budgets, err := s.repo.ListBudgets(ctx, e.UserID)
	if err != nil {
		return nil, err
	}

	var alerts []string
	for _, b := range budgets {
		if !b.Covers(e) {
			continue
		}
		st, err := s.status(ctx, b)
		if err != nil {
			return nil, err
		}
		if st.OverLimit {
			metrics.BudgetAlerts.Inc()
			s.logger.WarnContext(ctx, "budget limit exceeded",
				log.FieldUserID, e.UserID,
				log.FieldBudgetID, b.ID,
				log.FieldCategory, b.Category)
			alerts = append(alerts, fmt.Sprintf(
				"Heads up: your %s budget of %s is exceeded, you have spent %s.",
				b.Category, b.Amount.String(), st.Spent.String()))
		}
	}
	return alerts, nil
}
