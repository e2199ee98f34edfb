package converter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

const (
	speechSampleRate = "16000"
	speechChannels   = "1"
)

type AudioExtractor struct {
	runner Runner
}

func NewAudioExtractor(runner Runner) *AudioExtractor {
	return &AudioExtractor{runner: runner}
}

type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
	} `json:"streams"`
}

// HasAudio reports whether the file carries at least one audio stream.
func (a *AudioExtractor) HasAudio(ctx context.Context, videoPath string) (bool, error) {
	out, err := a.runner.Run(ctx, "ffprobe",
		"-v", "error",
		"-select_streams", "a",
		"-show_entries", "stream=codec_type",
		"-of", "json",
		videoPath,
	)
	if err != nil {
		return false, fmt.Errorf("probing %s: %w: %s", videoPath, err, tail(out))
	}

	var probe probeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return false, fmt.Errorf("parsing ffprobe output: %w", err)
	}

	for _, s := range probe.Streams {
		if s.CodecType == "audio" {
			return true, nil
		}
	}
	return false, nil
}

// ExtractWAV writes the first audio stream as 16 kHz mono PCM, which both
// supported recognizers accept.
func (a *AudioExtractor) ExtractWAV(ctx context.Context, videoPath, outputPath string) error {
	slog.InfoContext(ctx, "Extracting audio...", "input", videoPath, "output", outputPath)

	out, err := a.runner.Run(ctx, "ffmpeg",
		"-y",
		"-i", videoPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", speechSampleRate,
		"-ac", speechChannels,
		outputPath,
	)
	if err != nil {
		os.Remove(outputPath)
		return fmt.Errorf("extracting audio: %w: %s", err, tail(out))
	}

	return nil
}
