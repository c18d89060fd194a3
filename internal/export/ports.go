package export

import (
	"context"

	"ledgerchat/internal/core"
)

// ExpenseAppender writes expense rows to an external sheet.
type ExpenseAppender interface {
	// Append writes one expense and returns a row reference.
	Append(ctx context.Context, e core.Expense) (rowRef string, err error)
}
