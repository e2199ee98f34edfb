package domain

import "errors"

var (
	ErrMissingURL = errors.New("missing required parameter: url")

	ErrDownloadFailed = errors.New("download failed")

	ErrNoAudioTrack      = errors.New("no audio track")
	ErrExtractionFailed  = errors.New("audio extraction failed")
	ErrRecognitionFailed = errors.New("speech recognition failed")
	ErrEmptyTranscript   = errors.New("empty transcript")

	ErrNoResolvableContent = errors.New("no resolvable clip content")

	ErrRenderFailed = errors.New("render failed")

	ErrPublishFailed    = errors.New("publish failed")
	ErrStorageNotFound  = errors.New("storage bucket or path not found")
	ErrPublisherOffline = errors.New("publisher is not configured")

	ErrNotFound         = errors.New("not found")
	ErrAlreadyPublished = errors.New("idempotency key already published")
	ErrKeyReused        = errors.New("idempotency key reused with a different url")
)
