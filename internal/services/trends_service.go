package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ledgerchat/internal/cache"
	"ledgerchat/internal/core"
	"ledgerchat/internal/storage"
)

// TrendsService reports monthly spending totals. Results are cached
// briefly; expense writes bump a per-user version so stale series are
// never served within a process.
type TrendsService struct {
	repo  *storage.Repository
	cache *cache.LRUCache[[]core.MonthTotal]

	mu       sync.Mutex
	versions map[int64]uint64
}

func NewTrendsService(repo *storage.Repository) *TrendsService {
	return &TrendsService{
		repo:     repo,
		cache:    cache.NewLRUCache[[]core.MonthTotal](128, time.Minute),
		versions: make(map[int64]uint64),
	}
}

// Invalidate drops cached series for a user. Wired to
// ExpenseService.OnChange.
func (s *TrendsService) Invalidate(userID int64) {
	s.mu.Lock()
	s.versions[userID]++
	s.mu.Unlock()
}

func (s *TrendsService) version(userID int64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.versions[userID]
}

// Monthly returns totals for the last `months` calendar months,
// including the current one, oldest first. Months without expenses are
// filled with zero so charts get a continuous series.
func (s *TrendsService) Monthly(ctx context.Context, userID int64, months int, now time.Time) ([]core.MonthTotal, error) {
	if months < 1 {
		months = 12
	}

	key := fmt.Sprintf("%d:%d:%d:%d-%d", userID, s.version(userID), months, now.Year(), int(now.Month()))
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(months - 1), 0)
	totals, err := s.repo.MonthlyTotals(ctx, userID, first)
	if err != nil {
		return nil, err
	}

	byMonth := make(map[[2]int]core.Money, len(totals))
	for _, t := range totals {
		byMonth[[2]int{t.Year, t.Month}] = t.Total
	}

	out := make([]core.MonthTotal, 0, months)
	for i := 0; i < months; i++ {
		m := first.AddDate(0, i, 0)
		out = append(out, core.MonthTotal{
			Year:  m.Year(),
			Month: int(m.Month()),
			Total: byMonth[[2]int{m.Year(), int(m.Month())}],
		})
	}

	s.cache.Set(key, out)
	return out, nil
}
