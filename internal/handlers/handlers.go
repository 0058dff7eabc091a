package handlers

import (
	"chatlog/internal/config"
	"chatlog/internal/middleware"
	"chatlog/internal/service"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Handler struct {
	Router chi.Router
}

// NewHandler разводящий для хендлеров
func NewHandler(
	messageService *service.MessageService,
	logger *zap.SugaredLogger,
	config *config.Config,
) *Handler {
	r := chi.NewRouter()

	r.Use(middleware.WithGzip)
	r.Use(middleware.WithLogging)

	messageHandler := NewMessageHandler(messageService, logger, config)

	// Message routes
	r.Route("/api/messages", func(r chi.Router) {
		r.Post("/", messageHandler.Create)
		r.Get("/", messageHandler.List)
		r.Delete("/", messageHandler.DeleteByQuery)
		r.Get("/{id}", messageHandler.Get)
		r.Get("/{id}/attachment", messageHandler.Attachment)
		r.Delete("/{id}", messageHandler.Delete)
	})

	// Service routes
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	return &Handler{Router: r}
}
