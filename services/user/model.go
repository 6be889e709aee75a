package user

import (
	"time"

	"github.com/shopspring/decimal"
)

// User carries the running balance accumulators. They are mutated only by
// payment completion and refund reversal, never reset independently.
type User struct {
	ID            string          `gorm:"column:id;primaryKey" json:"id"`
	Name          string          `gorm:"column:name" json:"name"`
	Email         string          `gorm:"column:email;uniqueIndex" json:"email"`
	TotalEarnings decimal.Decimal `gorm:"column:total_earnings;type:decimal(14,2)" json:"total_earnings"`
	TotalSpent    decimal.Decimal `gorm:"column:total_spent;type:decimal(14,2)" json:"total_spent"`
	CreatedAt     time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

type CreateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Balance struct {
	UserID        string          `json:"user_id"`
	TotalEarnings decimal.Decimal `json:"total_earnings"`
	TotalSpent    decimal.Decimal `json:"total_spent"`
}
