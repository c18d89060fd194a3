package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"ledgerchat/internal/amqp"
	"ledgerchat/internal/core"
	"ledgerchat/internal/log"
	"ledgerchat/internal/storage"
)

type fakeProvider struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}

type fakePublisher struct {
	exports  []*amqp.ExpenseExportMessage
	receipts []*amqp.ReceiptProcessMessage
	err      error
}

func (f *fakePublisher) PublishExpenseExport(ctx context.Context, msg *amqp.ExpenseExportMessage) error {
	if f.err != nil {
		return f.err
	}
	f.exports = append(f.exports, msg)
	return nil
}

func (f *fakePublisher) PublishReceiptProcess(ctx context.Context, msg *amqp.ReceiptProcessMessage) error {
	if f.err != nil {
		return f.err
	}
	f.receipts = append(f.receipts, msg)
	return nil
}

func testLogger() *log.Logger {
	return log.New(log.Config{Component: log.ComponentApp})
}

func newTestRepo(t *testing.T) *storage.Repository {
	t.Helper()
	repo, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedUser(t *testing.T, repo *storage.Repository) int64 {
	t.Helper()
	id, err := repo.CreateUser(context.Background(), core.User{
		Username:       "tester",
		Email:          "tester@example.com",
		HashedPassword: "hashed",
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return id
}

var errProviderDown = errors.New("provider unavailable")
