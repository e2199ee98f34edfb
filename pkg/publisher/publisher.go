package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dskvich/signvideo/pkg/domain"
	"github.com/dskvich/signvideo/pkg/logger"
)

const objectPrefix = "videos/"

type ObjectStorage interface {
	Upload(ctx context.Context, key, filePath string) error
	PublicURL(key string) string
	Remove(ctx context.Context, key string) error
}

type RecordRepository interface {
	Save(ctx context.Context, record domain.PublishedRecord) (int64, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.PublishedRecord, error)
}

type publisher struct {
	storage   ObjectStorage
	records   RecordRepository
	attemptID func() string
}

// New returns a publisher. With either dependency missing the publisher is
// disabled: it still serves the pipeline but every publish fails.
func New(storage ObjectStorage, records RecordRepository) *publisher {
	if storage == nil || records == nil {
		slog.Warn("publisher disabled: object storage or database is not configured")
		return &publisher{}
	}
	return &publisher{storage: storage, records: records, attemptID: uuid.NewString}
}

func (p *publisher) enabled() bool {
	return p.storage != nil && p.records != nil
}

// ObjectKey is the destination of one publish attempt. Attempts sharing an
// idempotency key never share an object.
func ObjectKey(idempotencyKey, attemptID string) string {
	return objectPrefix + "final_combined_video_" + idempotencyKey + "-" + attemptID + ".mp4"
}

// Lookup returns the record previously published under key.
func (p *publisher) Lookup(ctx context.Context, key string) (*domain.PublishedRecord, error) {
	if !p.enabled() {
		return nil, domain.ErrNotFound
	}
	return p.records.GetByIdempotencyKey(ctx, key)
}

// Publish uploads the final video, makes it public and records it. A record
// that cannot be written takes this attempt's upload down with it. When a
// concurrent attempt already recorded the key, its URL is returned.
func (p *publisher) Publish(ctx context.Context, idempotencyKey, sourceURL, filePath string) (string, error) {
	if !p.enabled() {
		return "", fmt.Errorf("%w: %w", domain.ErrPublishFailed, domain.ErrPublisherOffline)
	}

	key := ObjectKey(idempotencyKey, p.attemptID())

	if err := p.storage.Upload(ctx, key, filePath); err != nil {
		if errors.Is(err, domain.ErrStorageNotFound) {
			slog.ErrorContext(ctx, "Bucket or path not found", "key", key, logger.Err(err))
		}
		return "", fmt.Errorf("%w: %w", domain.ErrPublishFailed, err)
	}

	url := p.storage.PublicURL(key)

	record := domain.PublishedRecord{
		IdempotencyKey: idempotencyKey,
		SourceURL:      sourceURL,
		ObjectKey:      key,
		FinalVideoURL:  url,
	}
	_, err := p.records.Save(ctx, record)
	if err == nil {
		slog.InfoContext(ctx, "Published final video", "key", key, "url", url)
		return url, nil
	}

	// The request context may already be gone; cleanup must still run.
	if rmErr := p.storage.Remove(context.WithoutCancel(ctx), key); rmErr != nil {
		slog.ErrorContext(ctx, "Leaving orphaned upload for reconciler", "key", key, logger.Err(rmErr))
	}

	if !errors.Is(err, domain.ErrAlreadyPublished) {
		return "", fmt.Errorf("%w: recording upload: %w", domain.ErrPublishFailed, err)
	}

	winner, err := p.records.GetByIdempotencyKey(ctx, idempotencyKey)
	if err != nil {
		return "", fmt.Errorf("%w: reading concurrent record: %w", domain.ErrPublishFailed, err)
	}
	if winner.SourceURL != "" && winner.SourceURL != sourceURL {
		return "", fmt.Errorf("%w: recorded for %s", domain.ErrKeyReused, winner.SourceURL)
	}

	slog.InfoContext(ctx, "Idempotency key was published concurrently", "key", winner.ObjectKey)

	return winner.FinalVideoURL, nil
}
