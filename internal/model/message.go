package model

import "time"

// Message — серверная модель сообщения чата.
// Запись неизменяема после вставки: обновления не поддерживаются.
type Message struct {
	ID   string `gorm:"primaryKey;type:uuid"`
	User string `gorm:"not null;index"`
	Text string

	// AttachmentLocator — опциональная ссылка на объект в blob-хранилище.
	// Если задана, объект обязан существовать до удаления сообщения.
	AttachmentLocator *string `gorm:"index"`
	AttachmentName    string
	AttachmentType    string
	AttachmentSize    int64 `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"not null;index"`
}

// HasAttachment сообщает, ссылается ли сообщение на вложение.
func (m *Message) HasAttachment() bool {
	return m != nil && m.AttachmentLocator != nil && *m.AttachmentLocator != ""
}
