package payment

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusRefunded  Status = "REFUNDED"
)

// Terminal reports whether the payment can never change state again.
// COMPLETED is not terminal; it may still move to REFUNDED.
func (s Status) Terminal() bool {
	return s == StatusFailed || s == StatusRefunded
}

// Payment is one monetary movement tied to a completed task. The fee columns
// freeze the breakdown computed at creation time; refunds reverse against
// these stored values, never against re-derived ones, for a full refund.
type Payment struct {
	ID      string `gorm:"column:id;primaryKey" json:"id"`
	Code    string `gorm:"column:code;index" json:"code"`
	TaskID  string `gorm:"column:task_id;index:idx_payments_task" json:"task_id"`
	PayerID string `gorm:"column:payer_id;index" json:"payer_id"`
	// PayeeID is the task assignee at payment time. Nullable: a task can be
	// paid out even if the assignee was cleared afterwards.
	PayeeID *string `gorm:"column:payee_id;index" json:"payee_id,omitempty"`

	Amount decimal.Decimal `gorm:"column:amount;type:decimal(12,2)" json:"amount"`
	Method string          `gorm:"column:method" json:"method"`
	Status Status          `gorm:"column:status;index:idx_payments_task" json:"status"`

	PlatformFee      decimal.Decimal `gorm:"column:platform_fee;type:decimal(12,2)" json:"platform_fee"`
	ProcessingFee    decimal.Decimal `gorm:"column:processing_fee;type:decimal(12,2)" json:"processing_fee"`
	TotalFees        decimal.Decimal `gorm:"column:total_fees;type:decimal(12,2)" json:"total_fees"`
	AssigneeEarnings decimal.Decimal `gorm:"column:assignee_earnings;type:decimal(12,2)" json:"assignee_earnings"`

	GatewayTransactionID *string        `gorm:"column:gateway_transaction_id" json:"gateway_transaction_id,omitempty"`
	RefundMeta           datatypes.JSON `gorm:"column:refund_meta" json:"refund_meta,omitempty"`

	CreatedAt   time.Time  `gorm:"column:created_at" json:"created_at"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}

// RefundMeta is serialized into the payment row when the refund clears.
type RefundMeta struct {
	Code             string          `json:"code"`
	Amount           decimal.Decimal `json:"amount"`
	Reason           string          `json:"reason"`
	RequestedBy      string          `json:"requested_by"`
	GatewayRefundID  string          `json:"gateway_refund_id"`
	ReversedEarnings decimal.Decimal `json:"reversed_earnings"`
	RefundedAt       time.Time       `json:"refunded_at"`
}

type CreatePaymentRequest struct {
	TaskID string          `json:"task_id"`
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"payment_method"`
}

type RefundRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason"`
}

// StatusAggregate is one row of a grouped status rollup.
type StatusAggregate struct {
	Status Status          `json:"status"`
	Count  int64           `json:"count"`
	Volume decimal.Decimal `json:"volume"`
}

// Summary is the per-user money view: what they spent as a payer, broken down
// by payment status, and what they earned as a payee.
type Summary struct {
	UserID      string            `json:"user_id"`
	Spent       []StatusAggregate `json:"spent"`
	TotalEarned decimal.Decimal   `json:"total_earned"`
	TotalSpent  decimal.Decimal   `json:"total_spent"`
}

type StatisticsRequest struct {
	From string `form:"from"`
	To   string `form:"to"`
}

// Statistics is the platform-wide rollup over a date range.
type Statistics struct {
	From        time.Time         `json:"from"`
	To          time.Time         `json:"to"`
	ByStatus    []StatusAggregate `json:"by_status"`
	TotalVolume decimal.Decimal   `json:"total_volume"`
	TotalFees   decimal.Decimal   `json:"total_fees"`
}
