package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/dskvich/signvideo/pkg/api/response"
	"github.com/dskvich/signvideo/pkg/domain"
	"github.com/dskvich/signvideo/pkg/logger"
	"github.com/dskvich/signvideo/pkg/metrics"
)

const maxRequestBody = 1 << 20

const (
	msgMissingURL      = "Invalid request. Missing required parameter: url"
	msgEmptyTranscript = "Please enter a valid sentence."
	msgNoClips         = "No valid videos found."
	msgKeyReused       = "Idempotency-Key was already used with a different url."
	msgNoAudioText     = "Failed to extract audio text."
	msgRenderFailed    = "Failed to render the sign language video."
	msgUploadFailed    = "Failed to upload the final video to Firebase Storage."
	msgInternal        = "Internal server error."
)

type SignVideoGenerator interface {
	GenerateSignVideo(ctx context.Context, idempotencyKey, videoURL string) (*domain.SignVideoResult, error)
}

type signVideo struct {
	generator SignVideoGenerator
	metrics   *metrics.Metrics
	writer    response.JSONResponseWriter
}

func NewSignVideo(generator SignVideoGenerator, metrics *metrics.Metrics) *signVideo {
	return &signVideo{
		generator: generator,
		metrics:   metrics,
		writer:    response.JSONResponseWriter{},
	}
}

type signVideoRequest struct {
	URL string `json:"url"`
}

func (s *signVideo) GenerateSignVideo(w http.ResponseWriter, r *http.Request) {
	var req signVideoRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil || req.URL == "" {
		s.fail(w, r, domain.ErrMissingURL)
		return
	}

	key, ok := logger.RequestIDFromContext(r.Context())
	if !ok {
		key = uuid.NewString()
	}

	slog.InfoContext(r.Context(), "Generating sign video", "url", req.URL)

	res, err := s.generator.GenerateSignVideo(r.Context(), key, req.URL)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	outcome := "completed"
	if res.Replayed {
		outcome = "replayed"
	}
	s.metrics.Requests.WithLabelValues(outcome).Inc()

	s.writer.WriteSuccessResponse(w, r, response.SignVideoResponse{
		ProcessCompleted: true,
		FinalVideoURL:    res.FinalVideoURL,
	})
}

func (s *signVideo) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, message, outcome := classify(err)
	s.metrics.Requests.WithLabelValues(outcome).Inc()

	slog.ErrorContext(r.Context(), "Sign video request failed", "status", status, "outcome", outcome, logger.Err(err))

	s.writer.WriteErrorResponse(w, r, status, message)
}

// classify maps pipeline errors to the status, message and metric label sent
// to the client. The cause itself is only logged.
func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, domain.ErrMissingURL):
		return http.StatusBadRequest, msgMissingURL, "invalid_input"
	case errors.Is(err, domain.ErrEmptyTranscript):
		return http.StatusBadRequest, msgEmptyTranscript, "empty_transcript"
	case errors.Is(err, domain.ErrNoResolvableContent):
		return http.StatusBadRequest, msgNoClips, "no_clips"
	case errors.Is(err, domain.ErrKeyReused):
		return http.StatusBadRequest, msgKeyReused, "key_reused"
	case errors.Is(err, domain.ErrDownloadFailed):
		return http.StatusInternalServerError, msgNoAudioText, "download_failed"
	case errors.Is(err, domain.ErrNoAudioTrack),
		errors.Is(err, domain.ErrExtractionFailed),
		errors.Is(err, domain.ErrRecognitionFailed):
		return http.StatusInternalServerError, msgNoAudioText, "transcription_failed"
	case errors.Is(err, domain.ErrRenderFailed):
		return http.StatusInternalServerError, msgRenderFailed, "render_failed"
	case errors.Is(err, domain.ErrPublishFailed):
		return http.StatusInternalServerError, msgUploadFailed, "publish_failed"
	}
	return http.StatusInternalServerError, msgInternal, "internal_error"
}
