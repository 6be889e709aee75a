package bid

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"flextasker/pkg/db/option"
	"flextasker/pkg/errutil"
	"flextasker/pkg/queue"
	"flextasker/pkg/repository"
	"flextasker/services/notification"
	"flextasker/services/task"
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node

	bids  repository.Repository[Bid]
	tasks repository.Repository[task.Task]

	asynq queue.Enqueuer
	rdb   *redis.Client
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node

	Asynq queue.Enqueuer `optional:"true"`
	Redis *redis.Client  `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:    p.DB,
		node:  p.Node,
		bids:  repository.ProvideStore[Bid](p.DB),
		tasks: repository.ProvideStore[task.Task](p.DB),
		asynq: p.Asynq,
		rdb:   p.Redis,
	}
}

// Create places a new bid on an open task. The duplicate check and the insert
// run in one transaction with the task row locked, so a bidder cannot race
// themselves into two live bids.
func (s *Service) Create(ctx context.Context, bidderID string, req CreateBidRequest) (*Bid, error) {
	span := trace.SpanFromContext(ctx)
	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("task_id", req.TaskID),
		zap.String("bidder_id", bidderID),
	)

	if req.TaskID == "" {
		return nil, errutil.ValidationFailed("task_id is required")
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, errutil.ValidationFailed("bid amount must be positive")
	}

	b := &Bid{
		ID:          s.node.Generate().String(),
		TaskID:      req.TaskID,
		BidderID:    bidderID,
		Amount:      req.Amount,
		Description: req.Description,
		Timeline:    req.Timeline,
		Status:      StatusPending,
	}

	var parent *task.Task
	if err := s.db.Transaction(func(tx *gorm.DB) error {
		bidTx := s.bids.WithTrx(tx)
		taskTx := s.tasks.WithTrx(tx)

		t, err := taskTx.FindOne(ctx, &task.Task{ID: req.TaskID}, option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if t == nil {
			return errutil.NotFound("task not found")
		}
		if t.Status != task.StatusOpen {
			return errutil.Conflict("task is not open for bidding")
		}
		if t.DeadlinePassed(time.Now()) {
			return errutil.Conflict("task deadline has passed")
		}
		if t.OwnerID == bidderID {
			return errutil.Conflict("task owner cannot bid on their own task")
		}

		existing, err := bidTx.FindOne(ctx, &Bid{TaskID: req.TaskID, BidderID: bidderID},
			option.ApplyOperator(option.Condition{Field: "status", Operator: option.NEQ, Value: StatusWithdrawn}),
		)
		if err != nil {
			return err
		}
		if existing != nil {
			return errutil.Conflict("bidder already has an active bid on this task")
		}

		parent = t

		now := time.Now()
		b.SubmittedAt = now
		b.CreatedAt = now
		b.UpdatedAt = now

		return bidTx.Create(ctx, b)
	}); err != nil {
		return nil, err
	}

	zapLog.Info("bid created", zap.String("bid_id", b.ID), zap.String("amount", b.Amount.String()))

	s.maybeWarnOverbudget(parent, b)

	return b, nil
}

// Update merges new fields into a PENDING bid. Only the bidder may update,
// and only while the parent task still accepts bids.
func (s *Service) Update(ctx context.Context, bidID, bidderID string, req UpdateBidRequest) (*Bid, error) {
	if req.Amount != nil && req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, errutil.ValidationFailed("bid amount must be positive")
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		bidTx := s.bids.WithTrx(tx)
		taskTx := s.tasks.WithTrx(tx)

		b, err := bidTx.FindOne(ctx, &Bid{ID: bidID}, option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if b == nil {
			return errutil.NotFound("bid not found")
		}
		if b.BidderID != bidderID {
			return errutil.Forbidden("only the bidder may update the bid")
		}
		if b.Status != StatusPending {
			return errutil.Conflict("only pending bids can be updated")
		}

		t, err := taskTx.FindOne(ctx, &task.Task{ID: b.TaskID})
		if err != nil {
			return err
		}
		if t == nil {
			return errutil.NotFound("task not found")
		}
		if t.Status != task.StatusOpen {
			return errutil.Conflict("task is no longer open")
		}
		if t.DeadlinePassed(time.Now()) {
			return errutil.Conflict("task deadline has passed")
		}

		updates := map[string]any{"updated_at": time.Now()}
		if req.Amount != nil {
			updates["amount"] = *req.Amount
		}
		if req.Description != nil {
			updates["description"] = *req.Description
		}
		if req.Timeline != nil {
			updates["timeline"] = *req.Timeline
		}

		return bidTx.Update(ctx, b.ID, updates)
	}); err != nil {
		return nil, err
	}

	return s.Get(ctx, bidID)
}

// Accept is the single-winner transition. In one transaction it accepts the
// bid, rejects every other pending bid on the task, and assigns the task to
// the winning bidder. Concurrent accepts serialize on the locked task row;
// the loser observes a non-open task and gets a conflict.
func (s *Service) Accept(ctx context.Context, bidID, ownerID string) (*Bid, error) {
	span := trace.SpanFromContext(ctx)
	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("bid_id", bidID),
		zap.String("owner_id", ownerID),
	)

	var (
		winner *Bid
		losers []*Bid
	)

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		bidTx := s.bids.WithTrx(tx)
		taskTx := s.tasks.WithTrx(tx)

		b, err := bidTx.FindOne(ctx, &Bid{ID: bidID}, option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if b == nil {
			return errutil.NotFound("bid not found")
		}

		t, err := taskTx.FindOne(ctx, &task.Task{ID: b.TaskID}, option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if t == nil {
			return errutil.NotFound("task not found")
		}
		if t.OwnerID != ownerID {
			return errutil.Forbidden("only the task owner may accept bids")
		}
		if b.Status != StatusPending {
			return errutil.Conflict("bid is not pending")
		}
		if t.Status != task.StatusOpen {
			return errutil.Conflict("task is not open")
		}

		now := time.Now()

		if err := bidTx.Update(ctx, b.ID, map[string]any{
			"status":       StatusAccepted,
			"responded_at": now,
			"updated_at":   now,
		}); err != nil {
			return err
		}

		// Capture the losing bidders before the sweep so they can be notified
		// after commit.
		losers, err = bidTx.Find(ctx, &Bid{TaskID: b.TaskID, Status: StatusPending},
			option.ApplyOperator(option.Condition{Field: "id", Operator: option.NEQ, Value: b.ID}),
		)
		if err != nil {
			return err
		}

		if err := tx.Model(&Bid{}).
			Where("task_id = ? AND id <> ? AND status = ?", b.TaskID, b.ID, StatusPending).
			Updates(map[string]any{
				"status":       StatusRejected,
				"responded_at": now,
				"updated_at":   now,
			}).Error; err != nil {
			return err
		}

		if err := taskTx.Update(ctx, t.ID, map[string]any{
			"status":      task.StatusInProgress,
			"assignee_id": b.BidderID,
			"started_at":  now,
			"updated_at":  now,
		}); err != nil {
			return err
		}

		winner = b
		return nil
	}); err != nil {
		return nil, err
	}

	zapLog.Info("bid accepted",
		zap.String("task_id", winner.TaskID),
		zap.String("assignee_id", winner.BidderID),
		zap.Int("rejected_bids", len(losers)),
	)

	s.notifyDecision(winner, string(StatusAccepted))
	for _, l := range losers {
		s.notifyDecision(l, string(StatusRejected))
	}

	return s.Get(ctx, bidID)
}

// Reject declines a single pending bid; no other bids are touched.
func (s *Service) Reject(ctx context.Context, bidID, ownerID string) (*Bid, error) {
	var rejected *Bid

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		bidTx := s.bids.WithTrx(tx)
		taskTx := s.tasks.WithTrx(tx)

		b, err := bidTx.FindOne(ctx, &Bid{ID: bidID}, option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if b == nil {
			return errutil.NotFound("bid not found")
		}

		t, err := taskTx.FindOne(ctx, &task.Task{ID: b.TaskID})
		if err != nil {
			return err
		}
		if t == nil {
			return errutil.NotFound("task not found")
		}
		if t.OwnerID != ownerID {
			return errutil.Forbidden("only the task owner may reject bids")
		}
		if b.Status != StatusPending {
			return errutil.Conflict("bid is not pending")
		}

		now := time.Now()
		rejected = b
		return bidTx.Update(ctx, b.ID, map[string]any{
			"status":       StatusRejected,
			"responded_at": now,
			"updated_at":   now,
		})
	}); err != nil {
		return nil, err
	}

	s.notifyDecision(rejected, string(StatusRejected))

	return s.Get(ctx, bidID)
}

// Withdraw lets a bidder pull a pending bid. A withdrawn bid frees the
// bidder to bid on the task again.
func (s *Service) Withdraw(ctx context.Context, bidID, bidderID string) (*Bid, error) {
	if err := s.db.Transaction(func(tx *gorm.DB) error {
		bidTx := s.bids.WithTrx(tx)

		b, err := bidTx.FindOne(ctx, &Bid{ID: bidID}, option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if b == nil {
			return errutil.NotFound("bid not found")
		}
		if b.BidderID != bidderID {
			return errutil.Forbidden("only the bidder may withdraw the bid")
		}
		if b.Status != StatusPending {
			return errutil.Conflict("bid is not pending")
		}

		now := time.Now()
		return bidTx.Update(ctx, b.ID, map[string]any{
			"status":       StatusWithdrawn,
			"responded_at": now,
			"updated_at":   now,
		})
	}); err != nil {
		return nil, err
	}

	return s.Get(ctx, bidID)
}

func (s *Service) Get(ctx context.Context, bidID string) (*Bid, error) {
	b, err := s.bids.FindOne(ctx, &Bid{ID: bidID})
	if err != nil {
		zap.L().Error("failed to query bid", zap.Error(err), zap.String("bid_id", bidID))
		return nil, err
	}
	if b == nil {
		return nil, errutil.NotFound("bid not found")
	}
	return b, nil
}

func (s *Service) maybeWarnOverbudget(t *task.Task, b *Bid) {
	if s.asynq == nil || t == nil {
		return
	}
	if t.BudgetType != task.BudgetFixed {
		return
	}
	if b.Amount.LessThanOrEqual(t.Budget.Mul(OverbudgetFactor)) {
		return
	}

	payload, err := json.Marshal(notification.BidOverbudgetPayload{
		TaskID:   t.ID,
		BidID:    b.ID,
		BidderID: b.BidderID,
		OwnerID:  t.OwnerID,
		Amount:   b.Amount.String(),
		Budget:   t.Budget.String(),
	})
	if err != nil {
		return
	}

	if _, err := s.asynq.Enqueue(asynq.NewTask(notification.TypeBidOverbudget, payload), asynq.Queue("low")); err != nil {
		zap.L().Warn("failed to enqueue overbudget warning", zap.Error(err), zap.String("bid_id", b.ID))
	}
}

func (s *Service) notifyDecision(b *Bid, decision string) {
	if s.asynq == nil || b == nil {
		return
	}

	payload, err := json.Marshal(notification.BidDecisionPayload{
		TaskID:   b.TaskID,
		BidID:    b.ID,
		BidderID: b.BidderID,
		Decision: decision,
	})
	if err != nil {
		return
	}

	if _, err := s.asynq.Enqueue(asynq.NewTask(notification.TypeBidDecision, payload)); err != nil {
		zap.L().Warn("failed to enqueue bid decision notification", zap.Error(err), zap.String("bid_id", b.ID))
	}
}
