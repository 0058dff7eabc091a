package handlers

import (
	"chatlog/internal/service"
	"encoding/json"
	"errors"
	"net/http"
)

// statusFromError переводит класс ошибки сервиса в HTTP-статус.
// Таймаут проверяется первым: он оборачивает и класс хранилища.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, service.ErrAttachmentStore):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError отдаёт клиенту текст ошибки для исправимых случаев
// и обобщённое сообщение для сбоев хранилищ.
func writeServiceError(w http.ResponseWriter, err error) {
	status := statusFromError(err)
	msg := err.Error()
	switch status {
	case http.StatusGatewayTimeout:
		msg = "storage timeout"
	case http.StatusBadGateway:
		msg = "attachment storage unavailable"
	case http.StatusInternalServerError:
		msg = "internal error"
	}
	writeError(w, status, msg)
}
