package task

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
	StatusDisputed   Status = "DISPUTED"
)

type BudgetType string

const (
	BudgetFixed      BudgetType = "FIXED"
	BudgetHourly     BudgetType = "HOURLY"
	BudgetNegotiable BudgetType = "NEGOTIABLE"
)

type Task struct {
	ID          string          `gorm:"column:id;primaryKey" json:"id"`
	OwnerID     string          `gorm:"column:owner_id;index" json:"owner_id"`
	AssigneeID  *string         `gorm:"column:assignee_id;index" json:"assignee_id,omitempty"`
	Title       string          `gorm:"column:title" json:"title"`
	Description string          `gorm:"column:description" json:"description"`
	Budget      decimal.Decimal `gorm:"column:budget;type:decimal(12,2)" json:"budget"`
	BudgetType  BudgetType      `gorm:"column:budget_type" json:"budget_type"`
	Status      Status          `gorm:"column:status;index" json:"status"`
	Deadline    *time.Time      `gorm:"column:deadline" json:"deadline,omitempty"`
	StartedAt   *time.Time      `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt *time.Time      `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (Task) TableName() string {
	return "tasks"
}

// DeadlinePassed reports whether the task deadline lies in the past. Tasks
// without a deadline never expire.
func (t *Task) DeadlinePassed(now time.Time) bool {
	return t.Deadline != nil && t.Deadline.Before(now)
}

type CreateTaskRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Budget      decimal.Decimal `json:"budget"`
	BudgetType  BudgetType      `json:"budget_type"`
	Deadline    *time.Time      `json:"deadline,omitempty"`
}

type ListTasksRequest struct {
	OwnerID string `form:"owner_id"`
	Status  Status `form:"status"`
	Limit   int    `form:"limit,default=20"`
}
