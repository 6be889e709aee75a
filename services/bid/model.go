package bid

import (
	"time"

	"github.com/shopspring/decimal"

	"flextasker/pkg/db/pagination"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusAccepted  Status = "ACCEPTED"
	StatusRejected  Status = "REJECTED"
	StatusWithdrawn Status = "WITHDRAWN"
)

// Terminal reports whether the status can never change again.
func (s Status) Terminal() bool {
	return s == StatusAccepted || s == StatusRejected || s == StatusWithdrawn
}

// OverbudgetFactor flags bids above budget * factor on FIXED-budget tasks.
// Advisory only; creation is never blocked by it.
var OverbudgetFactor = decimal.RequireFromString("1.5")

type Bid struct {
	ID          string          `gorm:"column:id;primaryKey" json:"id"`
	TaskID      string          `gorm:"column:task_id;index:idx_bids_task" json:"task_id"`
	BidderID    string          `gorm:"column:bidder_id;index" json:"bidder_id"`
	Amount      decimal.Decimal `gorm:"column:amount;type:decimal(12,2)" json:"amount"`
	Description string          `gorm:"column:description" json:"description"`
	Timeline    string          `gorm:"column:timeline" json:"timeline"`
	Status      Status          `gorm:"column:status;index:idx_bids_task" json:"status"`
	SubmittedAt time.Time       `gorm:"column:submitted_at" json:"submitted_at"`
	RespondedAt *time.Time      `gorm:"column:responded_at" json:"responded_at,omitempty"`
	CreatedAt   time.Time       `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"column:updated_at" json:"updated_at"`
}

func (Bid) TableName() string {
	return "bids"
}

type CreateBidRequest struct {
	TaskID      string          `json:"task_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Timeline    string          `json:"timeline"`
}

// UpdateBidRequest carries a partial merge; nil fields are untouched.
type UpdateBidRequest struct {
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Description *string          `json:"description,omitempty"`
	Timeline    *string          `json:"timeline,omitempty"`
}

type SearchBidsRequest struct {
	TaskID string `form:"task_id"`
	Status Status `form:"status"`
	pagination.Pagination
}

type SearchBidsResponse struct {
	Bids     []*Bid               `json:"bids"`
	PageInfo *pagination.PageInfo `json:"page_info"`
}

// TaskBidStatistics is the read-only aggregate over a task's bids.
type TaskBidStatistics struct {
	TaskID        string           `json:"task_id"`
	TotalBids     int64            `json:"total_bids"`
	MinAmount     decimal.Decimal  `json:"min_amount"`
	MaxAmount     decimal.Decimal  `json:"max_amount"`
	AverageAmount decimal.Decimal  `json:"average_amount"`
	ByStatus      map[Status]int64 `json:"by_status"`
	// ByDay counts submissions per UTC day, keyed YYYY-MM-DD.
	ByDay map[string]int64 `json:"by_day"`
}
