package core

import (
	"errors"
	"strings"
	"time"
)

// Receipt processing states.
const (
	ReceiptPending   = "pending"
	ReceiptProcessed = "processed"
	ReceiptFailed    = "failed"
)

// Chat message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// FallbackCategory is assigned when AI categorization is unavailable or fails.
const FallbackCategory = "Miscellaneous"

type (
	Money struct {
		Cents int64
	}

	User struct {
		ID             int64
		Username       string
		Email          string
		HashedPassword string
		IsVerified     bool
		CreatedAt      time.Time
	}

	Expense struct {
		ID             int64
		UserID         int64
		Amount         Money
		Description    string
		Category       string
		Date           time.Time
		ReceiptID      string
		ReceiptGroupID string
		CreatedAt      time.Time
	}

	Budget struct {
		ID        int64
		UserID    int64
		Category  string
		Amount    Money
		StartDate time.Time
		EndDate   time.Time
		CreatedAt time.Time
	}

	Receipt struct {
		ID          string
		UserID      int64
		Filename    string
		ContentType string
		SHA256      string
		SizeBytes   int64
		State       string
		CreatedAt   time.Time
	}

	ChatMessage struct {
		ID        int64
		UserID    int64
		Role      string
		Body      string
		Intent    string
		CreatedAt time.Time
	}

	// CategoryAmount represents an amount aggregated by category name.
	CategoryAmount struct {
		Name   string
		Amount Money
	}

	// BudgetStatus reports spending against a single budget.
	BudgetStatus struct {
		Budget    Budget
		Spent     Money
		Remaining Money
		OverLimit bool
	}

	// MonthTotal is one point of the monthly spending trend.
	MonthTotal struct {
		Year  int
		Month int // 1-12
		Total Money
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = errors.New("description too long (max 255 characters)")
	ErrEmptyCategory      = errors.New("empty category")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidDateRange   = errors.New("start date must be before end date")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrInvalidUsername    = errors.New("username must be between 3 and 50 characters")
)

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 255 {
		return ErrDescriptionTooLong
	}
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (b Budget) Validate() error {
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if b.StartDate.IsZero() || b.EndDate.IsZero() {
		return ErrInvalidDate
	}
	if !b.StartDate.Before(b.EndDate) {
		return ErrInvalidDateRange
	}
	return nil
}

func (u User) Validate() error {
	if len(strings.TrimSpace(u.Username)) < 3 || len(u.Username) > 50 {
		return ErrInvalidUsername
	}
	if !strings.Contains(u.Email, "@") || strings.TrimSpace(u.Email) == "" {
		return ErrInvalidEmail
	}
	return nil
}

// Covers returns true when the expense date falls inside the budget window
// and the categories match, ignoring case.
func (b Budget) Covers(e Expense) bool {
	if !strings.EqualFold(strings.TrimSpace(b.Category), strings.TrimSpace(e.Category)) {
		return false
	}
	if e.Date.Before(b.StartDate) {
		return false
	}
	return !e.Date.After(b.EndDate)
}
