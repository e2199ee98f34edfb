package converter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dskvich/signvideo/pkg/domain"
	"github.com/dskvich/signvideo/pkg/logger"
)

type SpeechTranscriber interface {
	TranscribeAudio(ctx context.Context, audioFilePath string) (string, error)
}

type audioSource interface {
	HasAudio(ctx context.Context, videoPath string) (bool, error)
	ExtractWAV(ctx context.Context, videoPath, outputPath string) error
}

type VideoToText struct {
	audio       audioSource
	transcriber SpeechTranscriber
}

func NewVideoToText(audio audioSource, transcriber SpeechTranscriber) *VideoToText {
	return &VideoToText{
		audio:       audio,
		transcriber: transcriber,
	}
}

// Convert returns the speech in videoPath as text. The intermediate audio file
// is written next to the video and removed before returning.
func (v *VideoToText) Convert(ctx context.Context, videoPath string) (string, error) {
	hasAudio, err := v.audio.HasAudio(ctx, videoPath)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrExtractionFailed, err)
	}
	if !hasAudio {
		return "", fmt.Errorf("%s: %w", filepath.Base(videoPath), domain.ErrNoAudioTrack)
	}

	audioPath := strings.TrimSuffix(videoPath, filepath.Ext(videoPath)) + "-audio.wav"
	defer func() {
		if err := os.Remove(audioPath); err != nil && !os.IsNotExist(err) {
			slog.WarnContext(ctx, "Removing temporary audio file", "path", audioPath, logger.Err(err))
		}
	}()

	if err := v.audio.ExtractWAV(ctx, videoPath, audioPath); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrExtractionFailed, err)
	}

	text, err := v.transcriber.TranscribeAudio(ctx, audioPath)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrRecognitionFailed, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", domain.ErrEmptyTranscript
	}

	slog.InfoContext(ctx, "Transcription successful", "chars", len(text))

	return text, nil
}
