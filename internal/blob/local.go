package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const defaultLocalDir = "./attachments"

// LocalStore хранит объекты файлами в каталоге root.
type LocalStore struct {
	root string
}

// NewLocalStore создаёт локальное хранилище, при необходимости создавая каталоги.
func NewLocalStore(root string) (*LocalStore, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		root = defaultLocalDir
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(abs, ".tmp"), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStore{root: abs}, nil
}

// Put пишет во временный файл и атомарно переименовывает его в целевой путь.
func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader, _ int64, _ string) (Locator, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if r == nil {
		return "", errors.New("reader is required")
	}
	dst, clean, err := s.pathFromKey(key)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(filepath.Join(s.root, ".tmp"), "put-*")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: r}); err != nil {
		cleanup()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		cleanup()
		return "", err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		cleanup()
		return "", err
	}
	return Locator(clean), nil
}

func (s *LocalStore) Open(ctx context.Context, loc Locator) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, _, err := s.pathFromKey(string(loc))
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

func (s *LocalStore) Delete(ctx context.Context, loc Locator) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, _, err := s.pathFromKey(string(loc))
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *LocalStore) Close() error { return nil }

func (s *LocalStore) pathFromKey(key string) (string, string, error) {
	clean, err := cleanKey(key)
	if err != nil {
		return "", "", err
	}
	if clean == ".tmp" || strings.HasPrefix(clean, ".tmp/") {
		return "", "", fmt.Errorf("invalid blob key %q", key)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), clean, nil
}

// ctxReader прерывает копирование при отмене контекста.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
