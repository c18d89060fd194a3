package worker

import (
	"context"
	"time"

	"github.com/google/uuid"

	"ledgerchat/internal/amqp"
	"ledgerchat/internal/core"
	"ledgerchat/internal/log"
	"ledgerchat/internal/metrics"
	"ledgerchat/internal/services"
	"ledgerchat/internal/storage"
)

// ReceiptConsumer delivers queued receipt messages.
type ReceiptConsumer interface {
	ConsumeReceiptProcess(ctx context.Context, handler func(*amqp.ReceiptProcessMessage) error) error
}

// ReceiptWorker turns queued receipts into expenses. Each line item on
// the receipt becomes one expense, all sharing a group id so the whole
// receipt can be traced.
type ReceiptWorker struct {
	repo     *storage.Repository
	expenses *services.ExpenseService
	budgets  *services.BudgetService
	insights *services.InsightsService
	consumer ReceiptConsumer
	logger   *log.Logger
	now      func() time.Time
}

func NewReceiptWorker(
	repo *storage.Repository,
	expenses *services.ExpenseService,
	budgets *services.BudgetService,
	insights *services.InsightsService,
	consumer ReceiptConsumer,
	logger *log.Logger,
) *ReceiptWorker {
	return &ReceiptWorker{
		repo:     repo,
		expenses: expenses,
		budgets:  budgets,
		insights: insights,
		consumer: consumer,
		logger:   logger,
		now:      time.Now,
	}
}

// Run consumes until the context is cancelled.
func (w *ReceiptWorker) Run(ctx context.Context) error {
	return w.consumer.ConsumeReceiptProcess(ctx, func(msg *amqp.ReceiptProcessMessage) error {
		return w.Process(ctx, msg)
	})
}

// Process handles one receipt message. Extraction failures are
// permanent: the receipt is marked failed and the message is
// acknowledged, only infrastructure errors requeue.
func (w *ReceiptWorker) Process(ctx context.Context, msg *amqp.ReceiptProcessMessage) error {
	logger := w.logger.With(log.FieldReceiptID, msg.ReceiptID, log.FieldUserID, msg.UserID)

	extraction, err := w.insights.ExtractReceipt(ctx, msg.Text)
	if err != nil {
		logger.ErrorContext(ctx, "receipt extraction failed", log.FieldError, err)
		metrics.ReceiptsProcessed.WithLabelValues("failed").Inc()
		if serr := w.repo.SetReceiptState(ctx, msg.ReceiptID, core.ReceiptFailed); serr != nil {
			return serr
		}
		return nil
	}

	date := w.now()
	if d, err := time.Parse(storage.DateLayout, extraction.Date); err == nil {
		date = d
	}

	groupID := uuid.NewString()
	for _, item := range extraction.Items {
		cents, err := core.CentsFromFloat(item.Amount)
		if err != nil {
			logger.WarnContext(ctx, "skipping receipt item with bad amount",
				log.FieldExpenseDesc, item.Description)
			continue
		}

		expense, err := w.expenses.Create(ctx, core.Expense{
			UserID:         msg.UserID,
			Amount:         core.Money{Cents: cents},
			Description:    item.Description,
			Category:       item.Category,
			Date:           date,
			ReceiptID:      msg.ReceiptID,
			ReceiptGroupID: groupID,
		}, "receipt")
		if err != nil {
			return err
		}

		alerts, err := w.budgets.Evaluate(ctx, expense)
		if err != nil {
			logger.ErrorContext(ctx, "budget evaluation failed", log.FieldError, err)
			continue
		}
		for _, alert := range alerts {
			logger.WarnContext(ctx, alert, log.FieldExpenseID, expense.ID)
		}
	}

	if err := w.repo.SetReceiptState(ctx, msg.ReceiptID, core.ReceiptProcessed); err != nil {
		return err
	}
	metrics.ReceiptsProcessed.WithLabelValues("processed").Inc()
	logger.InfoContext(ctx, "receipt processed",
		log.FieldOperation, log.OpExtract,
		"items", len(extraction.Items))
	return nil
}
