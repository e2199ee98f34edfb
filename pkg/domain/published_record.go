package domain

import "time"

type PublishedRecord struct {
	ID             int64
	IdempotencyKey string
	SourceURL      string
	ObjectKey      string
	FinalVideoURL  string
	CreatedAt      time.Time
}

type SignVideoResult struct {
	FinalVideoURL string
	Replayed      bool
}
