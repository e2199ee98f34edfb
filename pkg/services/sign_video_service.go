package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dskvich/signvideo/pkg/domain"
	"github.com/dskvich/signvideo/pkg/logger"
	"github.com/dskvich/signvideo/pkg/metrics"
)

type VideoDownloader interface {
	Download(ctx context.Context, rawURL, destPath string) error
}

type VideoTranscriber interface {
	Convert(ctx context.Context, videoPath string) (string, error)
}

type ClipResolver interface {
	Resolve(ctx context.Context, words []string) (*domain.Resolution, error)
}

type VideoCompositor interface {
	Concat(ctx context.Context, seq domain.ClipSequence, outputPath string) error
	SideBySide(ctx context.Context, originalPath, signPath, outputPath string) error
}

type VideoPublisher interface {
	Lookup(ctx context.Context, key string) (*domain.PublishedRecord, error)
	Publish(ctx context.Context, idempotencyKey, sourceURL, filePath string) (string, error)
}

type signVideoService struct {
	downloader  VideoDownloader
	transcriber VideoTranscriber
	resolver    ClipResolver
	compositor  VideoCompositor
	publisher   VideoPublisher
	scratchDir  string
	metrics     *metrics.Metrics
}

func NewSignVideoService(
	downloader VideoDownloader,
	transcriber VideoTranscriber,
	resolver ClipResolver,
	compositor VideoCompositor,
	publisher VideoPublisher,
	scratchDir string,
	metrics *metrics.Metrics,
) *signVideoService {
	return &signVideoService{
		downloader:  downloader,
		transcriber: transcriber,
		resolver:    resolver,
		compositor:  compositor,
		publisher:   publisher,
		scratchDir:  scratchDir,
		metrics:     metrics,
	}
}

// GenerateSignVideo runs the whole pipeline for one request. Every run works
// in its own scratch directory, which is removed on return.
func (s *signVideoService) GenerateSignVideo(ctx context.Context, idempotencyKey, videoURL string) (*domain.SignVideoResult, error) {
	if strings.TrimSpace(videoURL) == "" {
		return nil, domain.ErrMissingURL
	}

	if record, err := s.publisher.Lookup(ctx, idempotencyKey); err == nil {
		if record.SourceURL != "" && record.SourceURL != videoURL {
			slog.WarnContext(ctx, "Idempotency key reused with a different url", "key", idempotencyKey, "recorded", record.SourceURL, "url", videoURL)
			return nil, fmt.Errorf("%w: recorded for %s", domain.ErrKeyReused, record.SourceURL)
		}
		slog.InfoContext(ctx, "Replaying published video", "key", idempotencyKey)
		return &domain.SignVideoResult{FinalVideoURL: record.FinalVideoURL, Replayed: true}, nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		slog.WarnContext(ctx, "Looking up idempotency key", logger.Err(err))
	}

	if err := os.MkdirAll(s.scratchDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("creating scratch directory: %w", err)
	}
	workDir, err := os.MkdirTemp(s.scratchDir, "req-*")
	if err != nil {
		return nil, fmt.Errorf("creating request directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			slog.WarnContext(ctx, "Removing request directory", "dir", workDir, logger.Err(err))
		}
	}()

	inputPath := filepath.Join(workDir, "input.mp4")
	if err := s.stage(ctx, "download", func() error {
		return s.downloader.Download(ctx, videoURL, inputPath)
	}); err != nil {
		return nil, fmt.Errorf("downloading input video: %w", err)
	}

	var text string
	if err := s.stage(ctx, "transcribe", func() (err error) {
		text, err = s.transcriber.Convert(ctx, inputPath)
		return err
	}); err != nil {
		return nil, fmt.Errorf("extracting audio text: %w", err)
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, domain.ErrEmptyTranscript
	}
	slog.InfoContext(ctx, "Transcript ready", "words", len(words))

	var res *domain.Resolution
	if err := s.stage(ctx, "resolve", func() (err error) {
		res, err = s.resolver.Resolve(ctx, words)
		return err
	}); err != nil {
		s.recordDrops(res)
		return nil, fmt.Errorf("resolving clips: %w", err)
	}
	s.recordDrops(res)

	signsPath := filepath.Join(workDir, "continuous.mp4")
	if err := s.stage(ctx, "concat", func() error {
		return s.compositor.Concat(ctx, res.Sequence, signsPath)
	}); err != nil {
		return nil, fmt.Errorf("rendering sign video: %w", err)
	}

	finalPath := filepath.Join(workDir, "final.mp4")
	if err := s.stage(ctx, "compose", func() error {
		return s.compositor.SideBySide(ctx, inputPath, signsPath, finalPath)
	}); err != nil {
		return nil, fmt.Errorf("rendering final video: %w", err)
	}
	if err := os.Remove(signsPath); err != nil {
		slog.WarnContext(ctx, "Removing continuous video", "path", signsPath, logger.Err(err))
	}

	var url string
	if err := s.stage(ctx, "publish", func() (err error) {
		url, err = s.publisher.Publish(ctx, idempotencyKey, videoURL, finalPath)
		return err
	}); err != nil {
		return nil, fmt.Errorf("publishing final video: %w", err)
	}

	return &domain.SignVideoResult{FinalVideoURL: url}, nil
}

func (s *signVideoService) stage(ctx context.Context, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	s.metrics.StageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	if err != nil {
		slog.ErrorContext(ctx, "Stage failed", "stage", name, logger.Err(err))
		return err
	}
	slog.DebugContext(ctx, "Stage done", "stage", name, "took", time.Since(start).Round(time.Millisecond))
	return nil
}

func (s *signVideoService) recordDrops(res *domain.Resolution) {
	if res == nil {
		return
	}
	s.metrics.DroppedWords.Add(float64(len(res.DroppedWords)))
	s.metrics.MissingLetters.Add(float64(len(res.MissingLetters)))
}
