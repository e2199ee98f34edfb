package google

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
)

const sampleRateHertz = 16000

type recognizer interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest, opts ...gax.CallOption) (*speechpb.RecognizeResponse, error)
}

var errNoSpeech = errors.New("no speech detected")

type speechClient struct {
	api      recognizer
	closeFn  func() error
	language string
}

// NewSpeechClient creates a Cloud Speech-to-Text client from a base64 encoded
// service-account JSON blob.
func NewSpeechClient(ctx context.Context, credentialsB64, language string) (*speechClient, error) {
	creds, err := DecodeCredentials(credentialsB64)
	if err != nil {
		return nil, err
	}

	api, err := speech.NewClient(ctx, option.WithCredentialsJSON(creds))
	if err != nil {
		return nil, fmt.Errorf("creating speech client: %w", err)
	}

	return &speechClient{
		api:      api,
		closeFn:  api.Close,
		language: language,
	}, nil
}

// DecodeCredentials turns the base64 encoded service-account blob into the
// raw JSON document and checks that it parses.
func DecodeCredentials(credentialsB64 string) ([]byte, error) {
	if strings.TrimSpace(credentialsB64) == "" {
		return nil, fmt.Errorf("credentials are empty")
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(credentialsB64))
	if err != nil {
		return nil, fmt.Errorf("decoding credentials: %w", err)
	}

	var probe map[string]any
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("parsing credentials json: %w", err)
	}

	return raw, nil
}

// TranscribeAudio sends a 16 kHz mono LINEAR16 WAV file for synchronous
// recognition. Synchronous recognition is limited to about one minute of
// audio.
func (c *speechClient) TranscribeAudio(ctx context.Context, audioFilePath string) (string, error) {
	data, err := os.ReadFile(audioFilePath)
	if err != nil {
		return "", fmt.Errorf("reading audio file: %w", err)
	}

	resp, err := c.api.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz: sampleRateHertz,
			LanguageCode:    c.language,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: data},
		},
	})
	if err != nil {
		return "", fmt.Errorf("recognizing speech: %w", err)
	}

	var phrases []string
	for _, result := range resp.GetResults() {
		alts := result.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		if phrase := strings.TrimSpace(alts[0].GetTranscript()); phrase != "" {
			phrases = append(phrases, phrase)
		}
	}
	if len(phrases) == 0 {
		return "", errNoSpeech
	}

	return strings.Join(phrases, " "), nil
}

func (c *speechClient) Close() error {
	if c.closeFn == nil {
		return nil
	}
	return c.closeFn()
}
