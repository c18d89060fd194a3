package services

import (
	"context"
	"testing"
	"time"

	"ledgerchat/internal/core"
)

func TestMonthlyTrends_FillsEmptyMonths(t *testing.T) {
	repo := newTestRepo(t)
	userID := seedUser(t, repo)
	expenses := NewExpenseService(repo, nil, nil, testLogger())
	trends := NewTrendsService(repo)

	seedExpense(t, expenses, userID, 5000, "rent share", "Rent", time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	seedExpense(t, expenses, userID, 2000, "groceries", "Food", time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC))

	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	got, err := trends.Monthly(context.Background(), userID, 4, now)
	if err != nil {
		t.Fatalf("monthly: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d months, want 4", len(got))
	}

	want := []core.MonthTotal{
		{Year: 2026, Month: 5, Total: core.Money{}},
		{Year: 2026, Month: 6, Total: core.Money{Cents: 5000}},
		{Year: 2026, Month: 7, Total: core.Money{}},
		{Year: 2026, Month: 8, Total: core.Money{Cents: 2000}},
	}
	for i, w := range want {
		if got[i] != w {
			t.Errorf("month %d = %+v, want %+v", i, got[i], w)
		}
	}
}

func TestMonthlyTrends_DefaultWindow(t *testing.T) {
	repo := newTestRepo(t)
	userID := seedUser(t, repo)
	trends := NewTrendsService(repo)

	got, err := trends.Monthly(context.Background(), userID, 0, time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("monthly: %v", err)
	}
	if len(got) != 12 {
		t.Fatalf("got %d months, want 12 by default", len(got))
	}
	if got[0].Year != 2025 || got[0].Month != 9 {
		t.Errorf("first month = %d-%d, want 2025-9", got[0].Year, got[0].Month)
	}
}
