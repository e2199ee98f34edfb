package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dskvich/signvideo/pkg/domain"
)

type videosRepository struct {
	db *sql.DB
}

func NewVideosRepository(db *sql.DB) *videosRepository {
	return &videosRepository{db: db}
}

// Save inserts the record. A key that is already taken returns
// domain.ErrAlreadyPublished and leaves the stored row untouched.
func (v *videosRepository) Save(ctx context.Context, record domain.PublishedRecord) (int64, error) {
	const query = `
		INSERT INTO videos (idempotency_key, source_url, object_key, final_video_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING id
	`

	var id int64
	err := v.db.QueryRowContext(ctx, query, record.IdempotencyKey, record.SourceURL, record.ObjectKey, record.FinalVideoURL).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrAlreadyPublished
		}
		return 0, fmt.Errorf("saving video record: %w", err)
	}

	return id, nil
}

func (v *videosRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.PublishedRecord, error) {
	const query = `
		SELECT id, idempotency_key, source_url, object_key, final_video_url, created_at
		FROM videos
		WHERE idempotency_key = $1
	`

	var r domain.PublishedRecord
	err := v.db.QueryRowContext(ctx, query, key).
		Scan(&r.ID, &r.IdempotencyKey, &r.SourceURL, &r.ObjectKey, &r.FinalVideoURL, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("fetching video record by idempotency key: %w", err)
	}

	return &r, nil
}

func (v *videosRepository) ExistsByObjectKey(ctx context.Context, objectKey string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM videos WHERE object_key = $1)`

	var exists bool
	if err := v.db.QueryRowContext(ctx, query, objectKey).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking video record for object key: %w", err)
	}

	return exists, nil
}
