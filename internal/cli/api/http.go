// Package api содержит HTTP-хелперы CLI для обращения к серверу сообщений.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// MessagesPath — базовый путь API сообщений.
const MessagesPath = "/api/messages"

// Message — сообщение в том виде, в каком его отдаёт сервер.
type Message struct {
	ID                string    `json:"id"`
	User              string    `json:"user"`
	Text              string    `json:"text"`
	AttachmentLocator *string   `json:"attachmentLocator"`
	AttachmentName    string    `json:"attachmentName,omitempty"`
	AttachmentType    string    `json:"attachmentType,omitempty"`
	AttachmentSize    int64     `json:"attachmentSize,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

// DeleteResult — ответ на удаление одного сообщения.
type DeleteResult struct {
	Deleted bool   `json:"deleted"`
	Warning string `json:"warning,omitempty"`
}

// ClearResult — ответ на удаление всех сообщений.
type ClearResult struct {
	DeletedCount    int64    `json:"deletedCount"`
	CleanupFailures int      `json:"cleanupFailures"`
	Warnings        []string `json:"warnings,omitempty"`
}

// StatusError — неуспешный ответ сервера.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Code)
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

// Client — тонкий клиент API сообщений.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient создаёт клиента для сервера по адресу baseURL (со схемой).
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 60 * time.Second},
	}
}

// Send отправляет текстовое сообщение, при непустом filePath — с вложением (multipart).
func (c *Client) Send(ctx context.Context, user, text, filePath string) (*Message, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	_ = w.WriteField("user", user)
	_ = w.WriteField("text", text)
	if filePath != "" {
		f, err := os.Open(filePath)
		if err != nil {
			return nil, fmt.Errorf("open attachment: %w", err)
		}
		defer f.Close()
		part, err := w.CreateFormFile("file", filepath.Base(filePath))
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(part, f); err != nil {
			return nil, fmt.Errorf("read attachment: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+MessagesPath, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var msg Message
	if err := c.doJSON(req, http.StatusCreated, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// List возвращает все сообщения в порядке создания.
func (c *Client) List(ctx context.Context) ([]Message, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+MessagesPath, nil)
	if err != nil {
		return nil, err
	}
	var list []Message
	if err := c.doJSON(req, http.StatusOK, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Delete удаляет сообщение по id.
func (c *Client) Delete(ctx context.Context, id string) (*DeleteResult, error) {
	u, err := c.messageURL(id, "")
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return nil, err
	}
	var res DeleteResult
	if err := c.doJSON(req, http.StatusOK, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Clear удаляет все сообщения.
func (c *Client) Clear(ctx context.Context) (*ClearResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.BaseURL+MessagesPath, nil)
	if err != nil {
		return nil, err
	}
	var res ClearResult
	if err := c.doJSON(req, http.StatusOK, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Download пишет содержимое вложения сообщения id в dst и возвращает число байт.
func (c *Client) Download(ctx context.Context, id string, dst io.Writer) (int64, error) {
	u, err := c.messageURL(id, "/attachment")
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, readStatusError(resp)
	}
	return io.Copy(dst, resp.Body)
}

// messageURL строит адрес конкретного сообщения. id экранируется целиком,
// иначе "?" или "#" превратили бы запрос в DELETE /api/messages (удаление всех).
func (c *Client) messageURL(id, suffix string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", errors.New("message id is required")
	}
	return c.BaseURL + MessagesPath + "/" + url.PathEscape(id) + suffix, nil
}

func (c *Client) doJSON(req *http.Request, want int, out any) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != want {
		return readStatusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func readStatusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var e struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		msg = e.Error
	}
	return &StatusError{Code: resp.StatusCode, Message: msg}
}
