package service

import (
	"context"
	"errors"
	"fmt"
)

// Классы ошибок сервиса сообщений. Проверяются через errors.Is.
var (
	// ErrValidation — некорректный ввод, хранилища не изменялись.
	ErrValidation = errors.New("validation error")
	// ErrNotFound — сообщения с таким id нет.
	ErrNotFound = errors.New("message not found")
	// ErrAttachmentStore — сбой blob-хранилища.
	ErrAttachmentStore = errors.New("attachment store error")
	// ErrMetadataStore — сбой хранилища метаданных.
	ErrMetadataStore = errors.New("metadata store error")
	// ErrTimeout — вызов хранилища превысил отведённое время.
	ErrTimeout = errors.New("store timeout")
)

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// storeErr оборачивает ошибку хранилища в её класс.
// Таймаут дополнительно помечается ErrTimeout, чтобы не путать его с «не найдено».
func storeErr(kind error, op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w: %s: %w", ErrTimeout, kind, op, err)
	}
	return fmt.Errorf("%w: %s: %w", kind, op, err)
}
