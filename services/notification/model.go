package notification

import (
	"time"

	"gorm.io/datatypes"
)

// Notification is the delivered record; actual channel fan-out (email, push)
// happens elsewhere and reads from this table.
type Notification struct {
	ID        string         `gorm:"column:id;primaryKey" json:"id"`
	UserID    string         `gorm:"column:user_id;index" json:"user_id"`
	Type      string         `gorm:"column:type" json:"type"`
	Payload   datatypes.JSON `gorm:"column:payload" json:"payload"`
	CreatedAt time.Time      `gorm:"column:created_at" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}
