package repo

import (
	"chatlog/internal/model"
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageRepository определяет контракт хранилища метаданных сообщений.
type MessageRepository interface {
	// Insert присваивает ID и CreatedAt и сохраняет сообщение.
	Insert(ctx context.Context, msg *model.Message) error

	// ListAll возвращает все сообщения в порядке вставки.
	ListAll(ctx context.Context) ([]model.Message, error)

	// FindByID возвращает сообщение или gorm.ErrRecordNotFound.
	FindByID(ctx context.Context, id string) (*model.Message, error)

	// DeleteByID удаляет сообщение. found=false, если записи уже нет.
	DeleteByID(ctx context.Context, id string) (found bool, err error)

	// DeleteAll удаляет все сообщения одной операцией и возвращает их количество.
	DeleteAll(ctx context.Context) (int64, error)
}

type messageRepo struct {
	db *gorm.DB
}

// NewMessageRepository создаёт реализацию репозитория для Message.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepo{db: db}
}

func (r *messageRepo) Insert(ctx context.Context, msg *model.Message) error {
	if msg == nil {
		return errors.New("message is required")
	}
	// v7 упорядочен по времени, поэтому сортировка по id совпадает с порядком вставки
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	msg.ID = id.String()
	msg.CreatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *messageRepo) ListAll(ctx context.Context) ([]model.Message, error) {
	var out []model.Message
	err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *messageRepo) FindByID(ctx context.Context, id string) (*model.Message, error) {
	if !validID(id) {
		return nil, gorm.ErrRecordNotFound
	}
	var msg model.Message
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&msg).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepo) DeleteByID(ctx context.Context, id string) (bool, error) {
	if !validID(id) {
		return false, nil
	}
	tx := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Message{})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *messageRepo) DeleteAll(ctx context.Context) (int64, error) {
	tx := r.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&model.Message{})
	if tx.Error != nil {
		return 0, tx.Error
	}
	return tx.RowsAffected, nil
}

// validID отсекает id, которые не могут быть ключом: колонка id имеет тип uuid,
// и postgres отвергает запрос с некорректным значением вместо «не найдено».
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
