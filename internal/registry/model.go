package registry

import "time"

// Kind tells the delivery layer which send operation to use
// for a stored content reference.
type Kind string

const (
	KindPhoto    Kind = "photo"
	KindVideo    Kind = "video"
	KindDocument Kind = "document"
)

// MediaRecord — one stored deep-link target.
// Rows are append-only: created once when media arrives in a private
// chat, never updated, never deleted.
type MediaRecord struct {
	Code       string `gorm:"primaryKey;size:16"`
	ContentRef string `gorm:"size:512;not null"` // Telegram file_id, stable across sends
	Kind       Kind   `gorm:"size:16;not null"`
	Caption    string `gorm:"type:text"`
	UploaderID int64  `gorm:"index"`
	CreatedAt  time.Time
}

// TableName — table name in the database.
func (MediaRecord) TableName() string {
	return "media_records"
}
