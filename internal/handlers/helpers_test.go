package handlers_test

import (
	"bytes"
	"chatlog/internal/blob"
	"chatlog/internal/config"
	"chatlog/internal/handlers"
	"chatlog/internal/model"
	"chatlog/internal/repo"
	"chatlog/internal/service"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"testing"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// Local light mocks
type hMockMessageRepo struct{ mock.Mock }

func (m *hMockMessageRepo) Insert(ctx context.Context, msg *model.Message) error {
	args := m.Called(ctx, msg)
	if args.Error(0) == nil {
		msg.ID = "new-id"
	}
	return args.Error(0)
}
func (m *hMockMessageRepo) ListAll(ctx context.Context) ([]model.Message, error) {
	args := m.Called(ctx)
	if v, ok := args.Get(0).([]model.Message); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *hMockMessageRepo) FindByID(ctx context.Context, id string) (*model.Message, error) {
	args := m.Called(ctx, id)
	if v, ok := args.Get(0).(*model.Message); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *hMockMessageRepo) DeleteByID(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}
func (m *hMockMessageRepo) DeleteAll(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

var _ repo.MessageRepository = (*hMockMessageRepo)(nil)

type hMockBlobStore struct{ mock.Mock }

func (m *hMockBlobStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (blob.Locator, error) {
	args := m.Called(ctx, key, r, size, contentType)
	return args.Get(0).(blob.Locator), args.Error(1)
}
func (m *hMockBlobStore) Open(ctx context.Context, loc blob.Locator) (io.ReadCloser, error) {
	args := m.Called(ctx, loc)
	if v, ok := args.Get(0).(io.ReadCloser); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *hMockBlobStore) Delete(ctx context.Context, loc blob.Locator) error {
	return m.Called(ctx, loc).Error(0)
}
func (m *hMockBlobStore) Close() error { return nil }

var _ blob.Store = (*hMockBlobStore)(nil)

func newTestRouter(t *testing.T) (http.Handler, *hMockMessageRepo, *hMockBlobStore) {
	t.Helper()
	cfg := &config.Config{BlobMaxBytes: 1024}
	logger := zap.NewNop().Sugar()
	mr := &hMockMessageRepo{}
	bs := &hMockBlobStore{}

	svc := service.NewMessageService(mr, bs, logger, service.Options{MaxAttachmentBytes: cfg.BlobMaxBytes})
	h := handlers.NewHandler(svc, logger, cfg)
	return h.Router, mr, bs
}

// helper to build multipart body
func makeMultipart(t *testing.T, fields map[string]string, files map[string][]byte) (string, *bytes.Buffer) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		_ = w.WriteField(k, v)
	}
	for name, data := range files {
		fw, _ := w.CreateFormFile("file", name)
		_, _ = fw.Write(data)
	}
	_ = w.Close()
	return w.FormDataContentType(), body
}

func ptrStr(s string) *string { return &s }
