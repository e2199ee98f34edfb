package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dskvich/signvideo/pkg/api/handler"
	"github.com/dskvich/signvideo/pkg/api/middleware"
	"github.com/dskvich/signvideo/pkg/api/response"
	"github.com/dskvich/signvideo/pkg/metrics"
)

func NewRouter(generator handler.SignVideoGenerator, m *metrics.Metrics, gatherer prometheus.Gatherer) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.RequestID, middleware.AccessLog)

	signVideo := handler.NewSignVideo(generator, m)
	r.HandleFunc("/video_sign", signVideo.GenerateSignVideo).Methods(http.MethodPost)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writer := response.JSONResponseWriter{}
		writer.WriteSuccessResponse(w, req, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	return r
}
