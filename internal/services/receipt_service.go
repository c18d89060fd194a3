package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"ledgerchat/internal/amqp"
	"ledgerchat/internal/core"
	"ledgerchat/internal/log"
	"ledgerchat/internal/storage"
)

// ReceiptPublisher enqueues receipts for asynchronous parsing.
type ReceiptPublisher interface {
	PublishReceiptProcess(ctx context.Context, msg *amqp.ReceiptProcessMessage) error
}

// ReceiptService stores uploaded receipt files and hands them to the
// worker for expense extraction.
type ReceiptService struct {
	repo      *storage.Repository
	dir       string
	publisher ReceiptPublisher
	logger    *log.Logger
}

func NewReceiptService(repo *storage.Repository, dir string, publisher ReceiptPublisher, logger *log.Logger) (*ReceiptService, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create receipt dir: %w", err)
	}
	return &ReceiptService{
		repo:      repo,
		dir:       dir,
		publisher: publisher,
		logger:    logger,
	}, nil
}

// Upload persists the receipt file and queues it for processing. The
// text is what the worker feeds to the AI parser, the file itself is
// kept for audit.
func (s *ReceiptService) Upload(ctx context.Context, userID int64, filename, contentType, text string, file io.Reader) (core.Receipt, error) {
	id := uuid.NewString()

	path := filepath.Join(s.dir, id+filepath.Ext(filename))
	dst, err := os.Create(path)
	if err != nil {
		return core.Receipt{}, fmt.Errorf("create receipt file: %w", err)
	}

	hasher := sha256.New()
	size, err := io.Copy(io.MultiWriter(dst, hasher), file)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return core.Receipt{}, fmt.Errorf("write receipt file: %w", err)
	}

	receipt := core.Receipt{
		ID:          id,
		UserID:      userID,
		Filename:    filename,
		ContentType: contentType,
		SHA256:      hex.EncodeToString(hasher.Sum(nil)),
		SizeBytes:   size,
		State:       core.ReceiptPending,
	}
	if err := s.repo.CreateReceipt(ctx, receipt); err != nil {
		os.Remove(path)
		return core.Receipt{}, err
	}

	// Publish is best effort. A failed publish leaves the receipt
	// pending for a manual retry.
	if s.publisher != nil {
		if err := s.publisher.PublishReceiptProcess(ctx, amqp.NewReceiptProcessMessage(id, userID, text)); err != nil {
			s.logger.ErrorContext(ctx, "publish receipt message failed",
				log.FieldReceiptID, id,
				log.FieldError, err)
		}
	}

	return receipt, nil
}

func (s *ReceiptService) Get(ctx context.Context, userID int64, id string) (core.Receipt, error) {
	return s.repo.GetReceipt(ctx, userID, id)
}
