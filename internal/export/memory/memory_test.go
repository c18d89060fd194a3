package memory

import (
	"context"
	"testing"
	"time"

	"ledgerchat/internal/core"
)

func TestAppend(t *testing.T) {
	s := New()

	ref, err := s.Append(context.Background(), core.Expense{
		UserID:      1,
		Amount:      core.Money{Cents: 1200},
		Description: "groceries",
		Category:    "Food",
		Date:        time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if ref != "mem:1" {
		t.Errorf("ref = %s, want mem:1", ref)
	}
	if len(s.Items()) != 1 {
		t.Errorf("items = %d, want 1", len(s.Items()))
	}
}

func TestAppend_Invalid(t *testing.T) {
	s := New()

	_, err := s.Append(context.Background(), core.Expense{
		Amount: core.Money{Cents: 0},
		Date:   time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if len(s.Items()) != 0 {
		t.Error("invalid expense was stored")
	}
}
