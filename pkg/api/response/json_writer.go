package response

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dskvich/signvideo/pkg/logger"
)

type JSONResponseWriter struct{}

func (j *JSONResponseWriter) WriteSuccessResponse(w http.ResponseWriter, r *http.Request, data any) {
	j.write(w, r, http.StatusOK, data)
}

func (j *JSONResponseWriter) WriteErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	j.write(w, r, statusCode, ErrorResponse{Error: message})
}

func (j *JSONResponseWriter) write(w http.ResponseWriter, r *http.Request, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.ErrorContext(r.Context(), "encoding response", "status", statusCode, logger.Err(err))
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type SignVideoResponse struct {
	ProcessCompleted bool   `json:"process_completed"`
	FinalVideoURL    string `json:"final_video_url"`
}
