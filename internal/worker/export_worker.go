package worker

import (
	"context"
	"errors"
	"time"

	"ledgerchat/internal/amqp"
	"ledgerchat/internal/export"
	"ledgerchat/internal/log"
	"ledgerchat/internal/metrics"
	"ledgerchat/internal/storage"
)

// ExportConsumer delivers queued export messages.
type ExportConsumer interface {
	ConsumeExpenseExport(ctx context.Context, handler func(*amqp.ExpenseExportMessage) error) error
}

// ExportWorker appends expenses to the external sheet. It reacts to
// queue messages and additionally drains pending rows on a timer, so
// expenses whose publish failed still get exported.
type ExportWorker struct {
	repo      *storage.Repository
	appender  export.ExpenseAppender
	consumer  ExportConsumer
	logger    *log.Logger
	batchSize int
	interval  time.Duration
}

func NewExportWorker(
	repo *storage.Repository,
	appender export.ExpenseAppender,
	consumer ExportConsumer,
	logger *log.Logger,
	batchSize int,
	interval time.Duration,
) *ExportWorker {
	return &ExportWorker{
		repo:      repo,
		appender:  appender,
		consumer:  consumer,
		logger:    logger,
		batchSize: batchSize,
		interval:  interval,
	}
}

// RunConsumer consumes export messages until the context is cancelled.
func (w *ExportWorker) RunConsumer(ctx context.Context) error {
	return w.consumer.ConsumeExpenseExport(ctx, func(msg *amqp.ExpenseExportMessage) error {
		return w.exportOne(ctx, msg.UserID, msg.ExpenseID)
	})
}

// RunDrain periodically exports any expenses still marked pending.
func (w *ExportWorker) RunDrain(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.DrainPending(ctx); err != nil {
				w.logger.ErrorContext(ctx, "drain pending exports failed", log.FieldError, err)
			}
		}
	}
}

func (w *ExportWorker) exportOne(ctx context.Context, userID, expenseID int64) error {
	e, err := w.repo.GetExpense(ctx, userID, expenseID)
	if errors.Is(err, storage.ErrNotFound) {
		// Deleted before export, nothing to do
		return nil
	}
	if err != nil {
		return err
	}

	ref, err := w.appender.Append(ctx, e)
	if err != nil {
		w.logger.ErrorContext(ctx, "append expense failed",
			log.FieldExpenseID, expenseID,
			log.FieldError, err)
		return w.repo.MarkExportError(ctx, expenseID)
	}

	if err := w.repo.MarkExported(ctx, []int64{expenseID}); err != nil {
		return err
	}
	metrics.ExpensesExported.Inc()
	w.logger.InfoContext(ctx, "expense exported",
		log.FieldExpenseID, expenseID,
		log.FieldExportRef, ref)
	return nil
}

// DrainPending exports one batch of pending expenses.
func (w *ExportWorker) DrainPending(ctx context.Context) error {
	pending, err := w.repo.PendingExports(ctx, w.batchSize)
	if err != nil {
		return err
	}

	for _, e := range pending {
		ref, err := w.appender.Append(ctx, e)
		if err != nil {
			w.logger.ErrorContext(ctx, "append expense failed",
				log.FieldExpenseID, e.ID,
				log.FieldError, err)
			if merr := w.repo.MarkExportError(ctx, e.ID); merr != nil {
				return merr
			}
			continue
		}
		if err := w.repo.MarkExported(ctx, []int64{e.ID}); err != nil {
			return err
		}
		metrics.ExpensesExported.Inc()
		w.logger.InfoContext(ctx, "expense exported",
			log.FieldExpenseID, e.ID,
			log.FieldExportRef, ref)
	}
	return nil
}
