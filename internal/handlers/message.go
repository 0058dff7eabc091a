package handlers

import (
	"chatlog/internal/config"
	"chatlog/internal/model"
	"chatlog/internal/service"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// multipartMemory — сколько multipart-данных держать в памяти до сброса во временные файлы.
const multipartMemory = 10 << 20

// MessageHandler обрабатывает создание, чтение и удаление сообщений.
type MessageHandler struct {
	MessageService *service.MessageService
	Logger         *zap.SugaredLogger
	Config         *config.Config
}

// NewMessageHandler создаёт хендлер сообщений
func NewMessageHandler(messageService *service.MessageService, logger *zap.SugaredLogger, cfg *config.Config) *MessageHandler {
	return &MessageHandler{MessageService: messageService, Logger: logger, Config: cfg}
}

// CreateMessageRequest — JSON-вариант запроса на создание. File передаётся в base64.
type CreateMessageRequest struct {
	User        string `json:"user"`
	Text        string `json:"text"`
	File        []byte `json:"file,omitempty"`
	FileName    string `json:"fileName,omitempty"`
	ContentType string `json:"contentType,omitempty"`
}

// MessageDTO — представление сообщения в ответах API.
type MessageDTO struct {
	ID                string    `json:"id"`
	User              string    `json:"user"`
	Text              string    `json:"text"`
	AttachmentLocator *string   `json:"attachmentLocator"`
	AttachmentName    string    `json:"attachmentName,omitempty"`
	AttachmentType    string    `json:"attachmentType,omitempty"`
	AttachmentSize    int64     `json:"attachmentSize,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

// DeleteResponse — ответ на удаление одного сообщения.
type DeleteResponse struct {
	Deleted bool   `json:"deleted"`
	Warning string `json:"warning,omitempty"`
}

// DeleteAllResponse — ответ на удаление всех сообщений.
type DeleteAllResponse struct {
	DeletedCount    int64    `json:"deletedCount"`
	CleanupFailures int      `json:"cleanupFailures"`
	Warnings        []string `json:"warnings,omitempty"`
}

func toDTO(m *model.Message) MessageDTO {
	dto := MessageDTO{
		ID:             m.ID,
		User:           m.User,
		Text:           m.Text,
		AttachmentName: m.AttachmentName,
		AttachmentType: m.AttachmentType,
		AttachmentSize: m.AttachmentSize,
		CreatedAt:      m.CreatedAt.UTC(),
	}
	if m.HasAttachment() {
		loc := *m.AttachmentLocator
		dto.AttachmentLocator = &loc
	}
	return dto
}

// Create создаёт сообщение из JSON или multipart/form-data (поля user, text, file).
func (h *MessageHandler) Create(w http.ResponseWriter, r *http.Request) {
	// Лимит общего тела запроса: вложение плюс запас на поля и base64
	maxBody := h.Config.BlobMaxBytes*4/3 + 1<<20
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)

	var in service.CreateInput
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		parsed, ok := h.parseMultipart(w, r)
		if !ok {
			return
		}
		in = parsed
	} else {
		var req CreateMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			if isTooLarge(err) {
				h.Logger.Warnw("Create: payload too large", "limit", maxBody)
				writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
				return
			}
			h.Logger.Warnw("Create: invalid request body", "error", err)
			writeError(w, http.StatusBadRequest, "invalid JSON format")
			return
		}
		in = service.CreateInput{User: req.User, Text: req.Text}
		if len(req.File) > 0 {
			in.File = &service.Attachment{Name: req.FileName, ContentType: req.ContentType, Data: req.File}
		}
	}

	msg, err := h.MessageService.Create(r.Context(), in)
	if err != nil {
		h.Logger.Warnw("Create: service error", "user", in.User, "error", err)
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDTO(msg))
}

func (h *MessageHandler) parseMultipart(w http.ResponseWriter, r *http.Request) (service.CreateInput, bool) {
	var in service.CreateInput
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if isTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
			return in, false
		}
		h.Logger.Warnw("Create: invalid multipart form", "error", err)
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return in, false
	}
	in.User = r.FormValue("user")
	in.Text = r.FormValue("text")

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return in, true
	}
	if err != nil {
		h.Logger.Warnw("Create: invalid file part", "error", err)
		writeError(w, http.StatusBadRequest, "invalid file part")
		return in, false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.Logger.Warnw("Create: failed to read file", "error", err)
		writeError(w, http.StatusBadRequest, "failed to read file")
		return in, false
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "application/octet-stream" {
		// браузерное значение по умолчанию, пусть сервис определит тип сам
		contentType = ""
	}
	in.File = &service.Attachment{Name: header.Filename, ContentType: contentType, Data: data}
	return in, true
}

// List отдаёт все сообщения в порядке создания.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.MessageService.List(r.Context())
	if err != nil {
		h.Logger.Errorw("List: service error", "error", err)
		writeServiceError(w, err)
		return
	}
	out := make([]MessageDTO, 0, len(list))
	for i := range list {
		out = append(out, toDTO(&list[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// Get отдаёт одно сообщение.
func (h *MessageHandler) Get(w http.ResponseWriter, r *http.Request) {
	msg, err := h.MessageService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDTO(msg))
}

// Attachment стримит содержимое вложения.
func (h *MessageHandler) Attachment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	content, err := h.MessageService.OpenAttachment(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	defer content.Reader.Close()

	contentType := content.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if content.Name != "" {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": content.Name}))
	}
	if content.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(content.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, content.Reader); err != nil {
		h.Logger.Warnw("Attachment: stream interrupted", "id", id, "error", err)
	}
}

// Delete удаляет одно сообщение по id из пути.
func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.deleteOne(w, r, chi.URLParam(r, "id"))
}

// DeleteByQuery: DELETE /api/messages?id=... удаляет одно сообщение, без параметра id — все.
func (h *MessageHandler) DeleteByQuery(w http.ResponseWriter, r *http.Request) {
	// параметр id задан, пусть и пустой: это удаление одного сообщения,
	// пустое значение отклоняется валидацией, а не удаляет всё
	if ids, ok := r.URL.Query()["id"]; ok {
		id := ""
		if len(ids) > 0 {
			id = ids[0]
		}
		h.deleteOne(w, r, id)
		return
	}

	res, err := h.MessageService.DeleteAll(r.Context())
	if err != nil {
		h.Logger.Errorw("DeleteAll: service error", "error", err)
		writeServiceError(w, err)
		return
	}
	resp := DeleteAllResponse{DeletedCount: res.Deleted, CleanupFailures: res.CleanupFailures}
	for _, e := range res.CleanupErrs {
		resp.Warnings = append(resp.Warnings, e.Error())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *MessageHandler) deleteOne(w http.ResponseWriter, r *http.Request, id string) {
	res, err := h.MessageService.DeleteOne(r.Context(), id)
	if err != nil {
		if !errors.Is(err, service.ErrNotFound) && !errors.Is(err, service.ErrValidation) {
			h.Logger.Errorw("Delete: service error", "id", id, "error", err)
		}
		writeServiceError(w, err)
		return
	}
	resp := DeleteResponse{Deleted: true}
	if !res.Clean() {
		resp.Warning = "message deleted, attachment cleanup failed: " + res.CleanupErr.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
