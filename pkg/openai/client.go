package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

var errNoSpeech = errors.New("no speech detected")

type client struct {
	api      *openai.Client
	language string
}

// NewClient returns a Whisper transcriber. language is an ISO-639-1 code or
// a BCP-47 tag such as "en-US"; only the primary subtag is sent.
func NewClient(token, language string) (*client, error) {
	if token == "" {
		return nil, fmt.Errorf("token is empty")
	}
	return &client{
		api:      openai.NewClient(token),
		language: primaryLanguage(language),
	}, nil
}

func (c *client) TranscribeAudio(ctx context.Context, audioFilePath string) (string, error) {
	req := openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: audioFilePath,
		Language: c.language,
		Format:   openai.AudioResponseFormatJSON,
	}

	resp, err := c.api.CreateTranscription(ctx, req)
	if err != nil {
		return "", fmt.Errorf("creating transcription: %w", err)
	}
	if strings.TrimSpace(resp.Text) == "" {
		return "", errNoSpeech
	}

	return resp.Text, nil
}

func primaryLanguage(tag string) string {
	for i, r := range tag {
		if r == '-' || r == '_' {
			return tag[:i]
		}
	}
	return tag
}
