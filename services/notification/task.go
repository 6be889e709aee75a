package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"flextasker/pkg/repository"
)

var TaskModule = fx.Module("task.notification",
	fx.Provide(NewTask),
)

type Task struct {
	db   *gorm.DB
	node *snowflake.Node
	repo repository.Repository[Notification]
}

type TaskParams struct {
	fx.In

	DB   *gorm.DB
	Node *snowflake.Node
}

func NewTask(p TaskParams) *Task {
	return &Task{
		db:   p.DB,
		node: p.Node,
		repo: repository.ProvideStore[Notification](p.DB),
	}
}

func (t *Task) HandleBidOverbudget(ctx context.Context, task *asynq.Task) error {
	var payload BidOverbudgetPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}

	zap.L().Info("bid above fixed budget",
		zap.String("task_type", task.Type()),
		zap.String("task_id", payload.TaskID),
		zap.String("bid_id", payload.BidID),
		zap.String("amount", payload.Amount),
		zap.String("budget", payload.Budget),
	)

	return t.record(ctx, payload.OwnerID, task.Type(), task.Payload())
}

func (t *Task) HandleBidDecision(ctx context.Context, task *asynq.Task) error {
	var payload BidDecisionPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}

	zap.L().Info("bid decision notification",
		zap.String("task_type", task.Type()),
		zap.String("bid_id", payload.BidID),
		zap.String("bidder_id", payload.BidderID),
		zap.String("decision", payload.Decision),
	)

	return t.record(ctx, payload.BidderID, task.Type(), task.Payload())
}

func (t *Task) HandlePaymentReceipt(ctx context.Context, task *asynq.Task) error {
	var payload PaymentReceiptPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}

	zap.L().Info("payment receipt notification",
		zap.String("task_type", task.Type()),
		zap.String("payment_id", payload.PaymentID),
		zap.String("payee_id", payload.PayeeID),
		zap.String("earnings", payload.Earnings),
	)

	return t.record(ctx, payload.PayeeID, task.Type(), task.Payload())
}

func (t *Task) record(ctx context.Context, userID, taskType string, payload []byte) error {
	if userID == "" {
		return nil
	}

	return t.repo.Create(ctx, &Notification{
		ID:        t.node.Generate().String(),
		UserID:    userID,
		Type:      taskType,
		Payload:   datatypes.JSON(payload),
		CreatedAt: time.Now(),
	})
}
