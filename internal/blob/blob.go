package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// ErrNotFound возвращается Open и Delete, если объекта по локатору нет.
var ErrNotFound = errors.New("blob not found")

// Locator — непрозрачная долговечная ссылка на объект в хранилище.
// Возвращается из Put и без изменений передаётся в Open/Delete.
type Locator string

func (l Locator) String() string { return string(l) }

// Store — контракт бинарного хранилища вложений.
type Store interface {
	// Put сохраняет содержимое по пути key и возвращает его локатор.
	// Хранилище не дедуплицирует: уникальность пути обеспечивает вызывающий.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (Locator, error)

	// Open открывает объект на чтение.
	Open(ctx context.Context, loc Locator) (io.ReadCloser, error)

	// Delete удаляет объект. Для отсутствующего объекта возвращает ErrNotFound.
	Delete(ctx context.Context, loc Locator) error

	// Close освобождает ресурсы хранилища.
	Close() error
}

// Config — настройки blob-хранилища.
type Config struct {
	Backend   string // local | s3
	Dir       string // корневой каталог local backend
	Bucket    string
	Region    string
	Endpoint  string // свой S3 endpoint (R2, MinIO)
	AccessKey string
	SecretKey string
}

// New создаёт Store для выбранного backend (local по умолчанию или s3).
func New(cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "local":
		return NewLocalStore(cfg.Dir)
	case "s3":
		return NewS3Store(cfg)
	default:
		return nil, fmt.Errorf("unsupported blob backend: %s", cfg.Backend)
	}
}

// cleanKey проверяет ключ объекта: относительный, со слешами, без выхода за пределы namespace.
func cleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("blob key is required")
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	clean := path.Clean(key)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return clean, nil
}
