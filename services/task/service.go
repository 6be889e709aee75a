package task

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"flextasker/pkg/db/option"
	"flextasker/pkg/errutil"
	"flextasker/pkg/repository"
)

type Service struct {
	db   *gorm.DB
	node *snowflake.Node
	repo repository.Repository[Task]
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:   p.DB,
		node: p.Node,
		repo: repository.ProvideStore[Task](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, ownerID string, req CreateTaskRequest) (*Task, error) {
	span := trace.SpanFromContext(ctx)
	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("owner_id", ownerID),
	)

	if req.Title == "" {
		return nil, errutil.ValidationFailed("title is required")
	}
	if req.Budget.LessThanOrEqual(decimal.Zero) {
		return nil, errutil.ValidationFailed("budget must be positive")
	}
	switch req.BudgetType {
	case BudgetFixed, BudgetHourly, BudgetNegotiable:
	default:
		return nil, errutil.ValidationFailed("unknown budget type")
	}
	if req.Deadline != nil && req.Deadline.Before(time.Now()) {
		return nil, errutil.ValidationFailed("deadline must be in the future")
	}

	now := time.Now()
	t := &Task{
		ID:          s.node.Generate().String(),
		OwnerID:     ownerID,
		Title:       req.Title,
		Description: req.Description,
		Budget:      req.Budget,
		BudgetType:  req.BudgetType,
		Status:      StatusOpen,
		Deadline:    req.Deadline,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, t); err != nil {
		zapLog.Error("failed to create task", zap.Error(err))
		return nil, err
	}

	zapLog.Info("task created", zap.String("task_id", t.ID))
	return t, nil
}

func (s *Service) Get(ctx context.Context, taskID string) (*Task, error) {
	t, err := s.repo.FindOne(ctx, &Task{ID: taskID})
	if err != nil {
		zap.L().Error("failed to query task", zap.Error(err), zap.String("task_id", taskID))
		return nil, err
	}
	if t == nil {
		return nil, errutil.NotFound("task not found")
	}
	return t, nil
}

func (s *Service) List(ctx context.Context, req ListTasksRequest) ([]*Task, error) {
	query := &Task{OwnerID: req.OwnerID, Status: req.Status}

	limit := req.Limit
	if limit <= 0 || limit > 250 {
		limit = 20
	}

	tasks, err := s.repo.Find(ctx, query,
		option.WithSortBy(option.QuerySortBy{SortBy: "created_at", OrderBy: "desc", Allow: map[string]bool{"created_at": true}}),
		option.WithLimit(limit),
	)
	if err != nil {
		zap.L().Error("failed to list tasks", zap.Error(err))
		return nil, err
	}
	return tasks, nil
}

// Complete moves an IN_PROGRESS task to COMPLETED. Only the owner may do it;
// completion is what makes the task payable.
func (s *Service) Complete(ctx context.Context, taskID, ownerID string) (*Task, error) {
	if err := s.db.Transaction(func(tx *gorm.DB) error {
		taskTx := s.repo.WithTrx(tx)

		t, err := taskTx.FindOne(ctx, &Task{ID: taskID}, option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if t == nil {
			return errutil.NotFound("task not found")
		}
		if t.OwnerID != ownerID {
			return errutil.Forbidden("only the task owner may complete the task")
		}
		if t.Status != StatusInProgress {
			return errutil.Conflict("task is not in progress")
		}

		now := time.Now()
		return taskTx.Update(ctx, t.ID, map[string]any{
			"status":       StatusCompleted,
			"completed_at": now,
			"updated_at":   now,
		})
	}); err != nil {
		return nil, err
	}

	return s.Get(ctx, taskID)
}

// Cancel withdraws an OPEN task from the marketplace.
func (s *Service) Cancel(ctx context.Context, taskID, ownerID string) (*Task, error) {
	if err := s.db.Transaction(func(tx *gorm.DB) error {
		taskTx := s.repo.WithTrx(tx)

		t, err := taskTx.FindOne(ctx, &Task{ID: taskID}, option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if t == nil {
			return errutil.NotFound("task not found")
		}
		if t.OwnerID != ownerID {
			return errutil.Forbidden("only the task owner may cancel the task")
		}
		if t.Status != StatusOpen {
			return errutil.Conflict("only open tasks can be cancelled")
		}

		return taskTx.Update(ctx, t.ID, map[string]any{
			"status":     StatusCancelled,
			"updated_at": time.Now(),
		})
	}); err != nil {
		return nil, err
	}

	return s.Get(ctx, taskID)
}
