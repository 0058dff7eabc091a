package service

import (
	"bytes"
	"chatlog/internal/blob"
	"chatlog/internal/metrics"
	"chatlog/internal/model"
	"chatlog/internal/repo"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// DefaultStoreTimeout ограничивает каждый вызов хранилища, если не задано иное.
	DefaultStoreTimeout = 5 * time.Second

	attachmentPrefix   = "attachments"
	maxStoredNameBytes = 100
)

// MessageService управляет жизненным циклом сообщения и его вложения:
// запись метаданных и объект в blob-хранилище создаются и удаляются согласованно.
type MessageService struct {
	repo   repo.MessageRepository
	blobs  blob.Store
	logger *zap.SugaredLogger

	timeout            time.Duration
	maxAttachmentBytes int64
	now                func() time.Time
}

// Options задаёт политики сервиса.
type Options struct {
	// StoreTimeout — предел для одного вызова хранилища.
	StoreTimeout time.Duration
	// MaxAttachmentBytes — максимальный размер вложения, 0 — без ограничения.
	MaxAttachmentBytes int64
}

// NewMessageService создаёт сервис поверх явно переданных хранилищ.
func NewMessageService(r repo.MessageRepository, b blob.Store, logger *zap.SugaredLogger, opts Options) *MessageService {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = DefaultStoreTimeout
	}
	return &MessageService{
		repo:               r,
		blobs:              b,
		logger:             logger,
		timeout:            opts.StoreTimeout,
		maxAttachmentBytes: opts.MaxAttachmentBytes,
		now:                time.Now,
	}
}

// Attachment — бинарное содержимое, прикладываемое к сообщению.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// CreateInput — вход операции создания сообщения.
type CreateInput struct {
	User string
	Text string
	File *Attachment
}

// DeleteResult — итог удаления одного сообщения.
// CleanupErr != nil означает, что запись удалена, но вложение осталось в хранилище.
type DeleteResult struct {
	ID         string
	CleanupErr error
}

// Clean сообщает об удалении без предупреждений.
func (r DeleteResult) Clean() bool { return r.CleanupErr == nil }

// DeleteAllResult — итог удаления всех сообщений.
type DeleteAllResult struct {
	Deleted         int64
	Attachments     int
	CleanupFailures int
	CleanupErrs     []error
}

// AttachmentContent — открытый поток вложения. Reader закрывает вызывающий.
type AttachmentContent struct {
	Reader      io.ReadCloser
	Name        string
	ContentType string
	Size        int64
}

// Create сохраняет вложение (если есть), затем запись сообщения.
// Без успешной записи вложения метаданные не создаются.
func (s *MessageService) Create(ctx context.Context, in CreateInput) (*model.Message, error) {
	user := strings.TrimSpace(in.User)
	if user == "" {
		return nil, validationErr("user is required")
	}
	file := in.File
	if file != nil && len(file.Data) == 0 {
		file = nil
	}
	// текст из одних пробелов — всё ещё непустой текст
	if in.Text == "" && file == nil {
		return nil, validationErr("text or file is required")
	}
	if file != nil && s.maxAttachmentBytes > 0 && int64(len(file.Data)) > s.maxAttachmentBytes {
		return nil, validationErr("attachment exceeds %d bytes", s.maxAttachmentBytes)
	}

	msg := &model.Message{User: user, Text: in.Text}

	if file != nil {
		name := sanitizeName(file.Name)
		contentType := strings.TrimSpace(file.ContentType)
		if contentType == "" {
			contentType = mimetype.Detect(file.Data).String()
		}
		key := s.attachmentKey(name)

		var loc blob.Locator
		err := s.bounded(ctx, func(ctx context.Context) error {
			var putErr error
			loc, putErr = s.blobs.Put(ctx, key, bytes.NewReader(file.Data), int64(len(file.Data)), contentType)
			return putErr
		})
		if err != nil {
			s.logger.Errorw("Create: attachment store failed", "user", user, "key", key, "error", err)
			return nil, s.storeErr(ErrAttachmentStore, "blob", "put attachment", err)
		}

		locStr := loc.String()
		msg.AttachmentLocator = &locStr
		msg.AttachmentName = name
		msg.AttachmentType = contentType
		msg.AttachmentSize = int64(len(file.Data))
		metrics.AttachmentBytesStored.Add(float64(len(file.Data)))
	}

	err := s.bounded(ctx, func(ctx context.Context) error {
		return s.repo.Insert(ctx, msg)
	})
	if err != nil {
		s.logger.Errorw("Create: metadata insert failed", "user", user, "error", err)
		if msg.HasAttachment() {
			s.discardAttachment(ctx, blob.Locator(*msg.AttachmentLocator))
		}
		return nil, s.storeErr(ErrMetadataStore, "metadata", "insert message", err)
	}

	metrics.MessagesCreated.Inc()
	return msg, nil
}

// List возвращает все сообщения в порядке создания.
func (s *MessageService) List(ctx context.Context) ([]model.Message, error) {
	var list []model.Message
	err := s.bounded(ctx, func(ctx context.Context) error {
		var listErr error
		list, listErr = s.repo.ListAll(ctx)
		return listErr
	})
	if err != nil {
		return nil, s.storeErr(ErrMetadataStore, "metadata", "list messages", err)
	}
	if list == nil {
		list = []model.Message{}
	}
	return list, nil
}

// Get возвращает одно сообщение.
func (s *MessageService) Get(ctx context.Context, id string) (*model.Message, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, validationErr("id is required")
	}
	return s.find(ctx, id)
}

// OpenAttachment открывает вложение сообщения на чтение.
func (s *MessageService) OpenAttachment(ctx context.Context, id string) (*AttachmentContent, error) {
	msg, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !msg.HasAttachment() {
		return nil, fmt.Errorf("%w: message %s has no attachment", ErrNotFound, id)
	}
	loc := blob.Locator(*msg.AttachmentLocator)

	// таймаут ограничивает только открытие: чтение потока длится столько,
	// сколько нужно вызывающему, и прерывается его контекстом или Close
	openCtx, cancel := context.WithCancel(ctx)
	timer := time.AfterFunc(s.timeout, cancel)
	rc, err := s.blobs.Open(openCtx, loc)
	expired := !timer.Stop()
	if err == nil && expired {
		_ = rc.Close()
		err = context.DeadlineExceeded
	}
	if err != nil {
		cancel()
		if expired && !errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
		}
		if errors.Is(err, blob.ErrNotFound) {
			s.logger.Errorw("OpenAttachment: dangling attachment reference", "id", id, "locator", loc)
			return nil, fmt.Errorf("%w: attachment content missing", ErrNotFound)
		}
		return nil, s.storeErr(ErrAttachmentStore, "blob", "open attachment", err)
	}
	return &AttachmentContent{
		Reader:      &cancelOnClose{ReadCloser: rc, cancel: cancel},
		Name:        msg.AttachmentName,
		ContentType: msg.AttachmentType,
		Size:        msg.AttachmentSize,
	}, nil
}

// DeleteOne удаляет вложение (best effort), затем запись сообщения.
// Сбой удаления вложения не прерывает операцию и возвращается в DeleteResult.CleanupErr.
func (s *MessageService) DeleteOne(ctx context.Context, id string) (DeleteResult, error) {
	res := DeleteResult{ID: strings.TrimSpace(id)}
	if res.ID == "" {
		return res, validationErr("id is required")
	}

	msg, err := s.find(ctx, res.ID)
	if err != nil {
		return res, err
	}

	if msg.HasAttachment() {
		res.CleanupErr = s.removeAttachment(ctx, msg)
	}

	var found bool
	err = s.bounded(ctx, func(ctx context.Context) error {
		var delErr error
		found, delErr = s.repo.DeleteByID(ctx, res.ID)
		return delErr
	})
	if err != nil {
		s.logger.Errorw("DeleteOne: metadata delete failed", "id", res.ID, "error", err)
		return res, s.storeErr(ErrMetadataStore, "metadata", "delete message", err)
	}
	if !found {
		// параллельное удаление успело раньше
		return res, fmt.Errorf("%w: %s", ErrNotFound, res.ID)
	}

	metrics.MessagesDeleted.Inc()
	return res, nil
}

// DeleteAll пытается удалить каждое вложение, затем безусловно удаляет все записи.
func (s *MessageService) DeleteAll(ctx context.Context) (DeleteAllResult, error) {
	var res DeleteAllResult

	list, err := s.List(ctx)
	if err != nil {
		return res, err
	}

	for i := range list {
		if !list[i].HasAttachment() {
			continue
		}
		res.Attachments++
		if cleanupErr := s.removeAttachment(ctx, &list[i]); cleanupErr != nil {
			res.CleanupFailures++
			res.CleanupErrs = append(res.CleanupErrs, cleanupErr)
		}
	}

	err = s.bounded(ctx, func(ctx context.Context) error {
		var delErr error
		res.Deleted, delErr = s.repo.DeleteAll(ctx)
		return delErr
	})
	if err != nil {
		s.logger.Errorw("DeleteAll: metadata delete failed", "error", err)
		return res, s.storeErr(ErrMetadataStore, "metadata", "delete all messages", err)
	}

	metrics.MessagesDeleted.Add(float64(res.Deleted))
	if res.CleanupFailures > 0 {
		s.logger.Warnw("DeleteAll: finished with attachment cleanup failures",
			"deleted", res.Deleted, "attachments", res.Attachments, "failures", res.CleanupFailures)
	}
	return res, nil
}

func (s *MessageService) find(ctx context.Context, id string) (*model.Message, error) {
	var msg *model.Message
	err := s.bounded(ctx, func(ctx context.Context) error {
		var findErr error
		msg, findErr = s.repo.FindByID(ctx, id)
		return findErr
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, s.storeErr(ErrMetadataStore, "metadata", "find message", err)
	}
	return msg, nil
}

// removeAttachment удаляет объект вложения. Уже отсутствующий объект — не ошибка.
func (s *MessageService) removeAttachment(ctx context.Context, msg *model.Message) error {
	loc := blob.Locator(*msg.AttachmentLocator)
	err := s.bounded(ctx, func(ctx context.Context) error {
		return s.blobs.Delete(ctx, loc)
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, blob.ErrNotFound):
		s.logger.Infow("attachment already absent", "id", msg.ID, "locator", loc)
		return nil
	default:
		metrics.CleanupFailures.Inc()
		s.logger.Warnw("attachment cleanup failed", "id", msg.ID, "locator", loc, "error", err)
		return s.storeErr(ErrAttachmentStore, "blob", "delete attachment", err)
	}
}

// discardAttachment откатывает сохранённое вложение, если запись не удалось создать.
func (s *MessageService) discardAttachment(ctx context.Context, loc blob.Locator) {
	err := s.bounded(context.WithoutCancel(ctx), func(ctx context.Context) error {
		return s.blobs.Delete(ctx, loc)
	})
	if err != nil && !errors.Is(err, blob.ErrNotFound) {
		metrics.CleanupFailures.Inc()
		s.logger.Warnw("Create: orphaned attachment left in store", "locator", loc, "error", err)
	}
}

// bounded выполняет вызов хранилища с таймаутом.
func (s *MessageService) bounded(ctx context.Context, fn func(context.Context) error) error {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return markTimeout(cctx, fn(cctx))
}

func (s *MessageService) storeErr(kind error, store, op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		metrics.StoreTimeouts.WithLabelValues(store).Inc()
	}
	return storeErr(kind, op, err)
}

func (s *MessageService) attachmentKey(name string) string {
	now := s.now().UTC()
	return fmt.Sprintf("%s/%04d/%02d/%s-%s", attachmentPrefix, now.Year(), int(now.Month()), uuid.NewString(), name)
}

// markTimeout гарантирует, что ошибка вызова, прерванного по дедлайну, распознаётся как таймаут,
// даже если драйвер вернул собственную ошибку.
func markTimeout(ctx context.Context, err error) error {
	if err == nil || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}
	return err
}

// sanitizeName оставляет от имени файла безопасный для ключа хвост.
func sanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if len(out) > maxStoredNameBytes {
		out = out[len(out)-maxStoredNameBytes:]
	}
	if out == "" {
		return "file"
	}
	return out
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	defer c.cancel()
	return c.ReadCloser.Close()
}
