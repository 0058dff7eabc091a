package service

import (
	"chatlog/internal/blob"
	"chatlog/internal/model"
	"chatlog/internal/repo"
	"context"
	"io"

	"github.com/stretchr/testify/mock"
)

// Моки для MessageRepository и blob.Store
type mockMessageRepo struct{ mock.Mock }

func (m *mockMessageRepo) Insert(ctx context.Context, msg *model.Message) error {
	args := m.Called(ctx, msg)
	if args.Error(0) == nil && msg.ID == "" {
		msg.ID = "generated-id"
	}
	return args.Error(0)
}
func (m *mockMessageRepo) ListAll(ctx context.Context) ([]model.Message, error) {
	args := m.Called(ctx)
	if v, ok := args.Get(0).([]model.Message); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockMessageRepo) FindByID(ctx context.Context, id string) (*model.Message, error) {
	args := m.Called(ctx, id)
	if v, ok := args.Get(0).(*model.Message); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockMessageRepo) DeleteByID(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}
func (m *mockMessageRepo) DeleteAll(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

var _ repo.MessageRepository = (*mockMessageRepo)(nil)

type mockBlobStore struct{ mock.Mock }

func (m *mockBlobStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (blob.Locator, error) {
	args := m.Called(ctx, key, r, size, contentType)
	return args.Get(0).(blob.Locator), args.Error(1)
}
func (m *mockBlobStore) Open(ctx context.Context, loc blob.Locator) (io.ReadCloser, error) {
	args := m.Called(ctx, loc)
	if v, ok := args.Get(0).(io.ReadCloser); ok {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockBlobStore) Delete(ctx context.Context, loc blob.Locator) error {
	return m.Called(ctx, loc).Error(0)
}
func (m *mockBlobStore) Close() error { return nil }

var _ blob.Store = (*mockBlobStore)(nil)

func ptrStr(s string) *string { return &s }
