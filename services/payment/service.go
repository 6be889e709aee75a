package payment

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"flextasker/pkg/config"
	"flextasker/pkg/db/option"
	"flextasker/pkg/errutil"
	"flextasker/pkg/gateway"
	"flextasker/pkg/money"
	"flextasker/pkg/queue"
	"flextasker/pkg/repository"
	"flextasker/pkg/sequence"
	"flextasker/services/notification"
	"flextasker/services/task"
	"flextasker/services/user"
)

const defaultGatewayTimeout = 10 * time.Second

type Service struct {
	db   *gorm.DB
	node *snowflake.Node

	payments repository.Repository[Payment]
	tasks    repository.Repository[task.Task]

	gw      gateway.Gateway
	fees    money.FeeModel
	timeout time.Duration

	seq   sequence.Generator
	asynq queue.Enqueuer
}

type ServiceParams struct {
	fx.In
	DB      *gorm.DB
	Node    *snowflake.Node
	Gateway gateway.Gateway
	Config  *config.Config

	Sequence sequence.Generator `optional:"true"`
	Asynq    queue.Enqueuer     `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	timeout := defaultGatewayTimeout
	if p.Config != nil && p.Config.Payment.GatewayTimeout > 0 {
		timeout = p.Config.Payment.GatewayTimeout
	}

	fees := money.DefaultFeeModel()
	if p.Config != nil {
		fees = money.FeeModelFromConfig(p.Config)
	}

	return &Service{
		db:       p.DB,
		node:     p.Node,
		payments: repository.ProvideStore[Payment](p.DB),
		tasks:    repository.ProvideStore[task.Task](p.DB),
		gw:       p.Gateway,
		fees:     fees,
		timeout:  timeout,
		seq:      p.Sequence,
		asynq:    p.Asynq,
	}
}

// Create charges the task owner for a completed task. The precondition checks
// and the PENDING insert run in one transaction with the task row locked, so
// two concurrent payments for the same task cannot both pass the
// no-existing-payment check. The gateway call happens outside any
// transaction; a second transaction finalizes the outcome.
func (s *Service) Create(ctx context.Context, payerID string, req CreatePaymentRequest) (*Payment, error) {
	span := trace.SpanFromContext(ctx)
	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("task_id", req.TaskID),
		zap.String("payer_id", payerID),
	)

	if req.TaskID == "" {
		return nil, errutil.ValidationFailed("task_id is required")
	}
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, errutil.ValidationFailed("payment amount must be positive")
	}
	if req.Method == "" {
		return nil, errutil.ValidationFailed("payment_method is required")
	}

	breakdown := s.fees.Compute(req.Amount)

	p := &Payment{
		ID:               s.node.Generate().String(),
		Code:             s.paymentCode(ctx),
		TaskID:           req.TaskID,
		PayerID:          payerID,
		Amount:           req.Amount,
		Method:           req.Method,
		Status:           StatusPending,
		PlatformFee:      breakdown.PlatformFee,
		ProcessingFee:    breakdown.ProcessingFee,
		TotalFees:        breakdown.TotalFees,
		AssigneeEarnings: breakdown.AssigneeEarnings,
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		payTx := s.payments.WithTrx(tx)
		taskTx := s.tasks.WithTrx(tx)

		t, err := taskTx.FindOne(ctx, &task.Task{ID: req.TaskID}, option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if t == nil {
			return errutil.NotFound("task not found")
		}
		if t.OwnerID != payerID {
			return errutil.ValidationFailed("payer is not the task owner")
		}
		if t.Status != task.StatusCompleted {
			return errutil.Conflict("task is not completed")
		}

		existing, err := payTx.FindOne(ctx, &Payment{TaskID: req.TaskID},
			option.ApplyOperator(option.Condition{Field: "status", Operator: option.NEQ, Value: StatusFailed}),
			option.ApplyOperator(option.Condition{Field: "status", Operator: option.NEQ, Value: StatusRefunded}),
		)
		if err != nil {
			return err
		}
		if existing != nil {
			return errutil.Conflict("a payment already exists for this task")
		}

		p.PayeeID = t.AssigneeID

		now := time.Now()
		p.CreatedAt = now
		p.UpdatedAt = now

		return payTx.Create(ctx, p)
	}); err != nil {
		return nil, err
	}

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	res, err := s.gw.Charge(cctx, gateway.ChargeRequest{
		Amount:    p.Amount,
		Method:    p.Method,
		Reference: p.Code,
	})
	cancel()

	if err != nil || !res.Success {
		// Timeout and decline land in the same place: FAILED, no balances
		// touched.
		s.markFailed(ctx, p.ID)
		zapLog.Warn("gateway charge failed", zap.Error(err), zap.String("payment_id", p.ID))
		return nil, errutil.BadGateway("payment gateway declined the charge",
			errutil.WithDetails(errutil.Detail{Field: "payment_id", Message: p.ID}),
			errutil.WithErr(err),
		)
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		payTx := s.payments.WithTrx(tx)

		current, err := payTx.FindOne(ctx, &Payment{ID: p.ID}, option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if current == nil || current.Status != StatusPending {
			return errutil.Conflict("payment is no longer pending")
		}

		now := time.Now()
		if err := payTx.Update(ctx, p.ID, map[string]any{
			"status":                 StatusCompleted,
			"gateway_transaction_id": res.TransactionID,
			"completed_at":           now,
			"updated_at":             now,
		}); err != nil {
			return err
		}

		if err := tx.Model(&user.User{}).Where("id = ?", p.PayerID).Updates(map[string]any{
			"total_spent": gorm.Expr("total_spent + ?", p.Amount),
			"updated_at":  now,
		}).Error; err != nil {
			return err
		}

		if p.PayeeID != nil {
			if err := tx.Model(&user.User{}).Where("id = ?", *p.PayeeID).Updates(map[string]any{
				"total_earnings": gorm.Expr("total_earnings + ?", p.AssigneeEarnings),
				"updated_at":     now,
			}).Error; err != nil {
				return err
			}
		}

		return nil
	}); err != nil {
		return nil, err
	}

	zapLog.Info("payment completed",
		zap.String("payment_id", p.ID),
		zap.String("amount", p.Amount.String()),
		zap.String("assignee_earnings", p.AssigneeEarnings.String()),
	)

	s.notifyReceipt(p)

	return s.Get(ctx, p.ID)
}

// Refund reverses a COMPLETED payment. A full-amount refund reverses the
// stored fee breakdown exactly; a partial refund recomputes fees on the
// refunded amount with the same model.
func (s *Service) Refund(ctx context.Context, paymentID, requesterID string, req RefundRequest) (*Payment, error) {
	span := trace.SpanFromContext(ctx)
	zapLog := zap.L().With(
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("payment_id", paymentID),
		zap.String("requester_id", requesterID),
	)

	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, errutil.ValidationFailed("refund amount must be positive")
	}

	p, err := s.Get(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.PayerID != requesterID {
		return nil, errutil.Forbidden("only the payer may request a refund")
	}
	if p.Status != StatusCompleted {
		return nil, errutil.Conflict("only completed payments can be refunded")
	}
	if req.Amount.GreaterThan(p.Amount) {
		return nil, errutil.ValidationFailed("refund amount exceeds payment amount")
	}

	var gatewayTxnID string
	if p.GatewayTransactionID != nil {
		gatewayTxnID = *p.GatewayTransactionID
	}

	refundCode := s.refundCode(ctx)

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	res, err := s.gw.Refund(cctx, gateway.RefundRequest{
		TransactionID: gatewayTxnID,
		Amount:        req.Amount,
		Reference:     refundCode,
	})
	cancel()

	if err != nil || !res.Success {
		zapLog.Warn("gateway refund failed", zap.Error(err))
		return nil, errutil.BadGateway("payment gateway declined the refund", errutil.WithErr(err))
	}

	reversedEarnings := p.AssigneeEarnings
	if !req.Amount.Equal(p.Amount) {
		reversedEarnings = s.fees.Compute(req.Amount).AssigneeEarnings
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		payTx := s.payments.WithTrx(tx)

		current, err := payTx.FindOne(ctx, &Payment{ID: paymentID}, option.WithLockingUpdate())
		if err != nil {
			return err
		}
		if current == nil || current.Status != StatusCompleted {
			return errutil.Conflict("payment is no longer refundable")
		}

		now := time.Now()

		meta, err := json.Marshal(RefundMeta{
			Code:             refundCode,
			Amount:           req.Amount,
			Reason:           req.Reason,
			RequestedBy:      requesterID,
			GatewayRefundID:  res.RefundTransactionID,
			ReversedEarnings: reversedEarnings,
			RefundedAt:       now,
		})
		if err != nil {
			return err
		}

		if err := payTx.Update(ctx, paymentID, map[string]any{
			"status":      StatusRefunded,
			"refund_meta": meta,
			"updated_at":  now,
		}); err != nil {
			return err
		}

		if err := tx.Model(&user.User{}).Where("id = ?", current.PayerID).Updates(map[string]any{
			"total_spent": gorm.Expr("total_spent - ?", req.Amount),
			"updated_at":  now,
		}).Error; err != nil {
			return err
		}

		if current.PayeeID != nil {
			if err := tx.Model(&user.User{}).Where("id = ?", *current.PayeeID).Updates(map[string]any{
				"total_earnings": gorm.Expr("total_earnings - ?", reversedEarnings),
				"updated_at":     now,
			}).Error; err != nil {
				return err
			}
		}

		return nil
	}); err != nil {
		return nil, err
	}

	zapLog.Info("payment refunded",
		zap.String("refund_code", refundCode),
		zap.String("amount", req.Amount.String()),
		zap.String("reversed_earnings", reversedEarnings.String()),
	)

	return s.Get(ctx, paymentID)
}

func (s *Service) Get(ctx context.Context, paymentID string) (*Payment, error) {
	p, err := s.payments.FindOne(ctx, &Payment{ID: paymentID})
	if err != nil {
		zap.L().Error("failed to query payment", zap.Error(err), zap.String("payment_id", paymentID))
		return nil, err
	}
	if p == nil {
		return nil, errutil.NotFound("payment not found")
	}
	return p, nil
}

// Summary rolls up a user's payments: spend by status as a payer, earnings as
// a payee.
func (s *Service) Summary(ctx context.Context, userID string) (*Summary, error) {
	var spent []StatusAggregate
	if err := s.db.WithContext(ctx).Model(&Payment{}).
		Select("status, count(*) as count, coalesce(sum(amount), 0) as volume").
		Where("payer_id = ?", userID).
		Group("status").
		Scan(&spent).Error; err != nil {
		return nil, err
	}

	summary := &Summary{UserID: userID, Spent: spent}

	for _, row := range spent {
		if row.Status == StatusCompleted {
			summary.TotalSpent = summary.TotalSpent.Add(row.Volume)
		}
	}

	var earned decimal.NullDecimal
	if err := s.db.WithContext(ctx).Model(&Payment{}).
		Select("coalesce(sum(assignee_earnings), 0)").
		Where("payee_id = ? AND status = ?", userID, StatusCompleted).
		Scan(&earned).Error; err != nil {
		return nil, err
	}
	if earned.Valid {
		summary.TotalEarned = earned.Decimal
	}

	return summary, nil
}

// Statistics rolls up payment counts and volume over a created_at range.
// Defaults to the trailing 30 days.
func (s *Service) Statistics(ctx context.Context, req StatisticsRequest) (*Statistics, error) {
	to := time.Now()
	if req.To != "" {
		t, err := time.Parse("2006-01-02", req.To)
		if err != nil {
			return nil, errutil.BadRequest("invalid to date, expected YYYY-MM-DD", errutil.WithErr(err))
		}
		to = t.AddDate(0, 0, 1)
	}

	from := to.AddDate(0, 0, -30)
	if req.From != "" {
		t, err := time.Parse("2006-01-02", req.From)
		if err != nil {
			return nil, errutil.BadRequest("invalid from date, expected YYYY-MM-DD", errutil.WithErr(err))
		}
		from = t
	}

	if from.After(to) {
		return nil, errutil.BadRequest("from date is after to date")
	}

	var byStatus []StatusAggregate
	if err := s.db.WithContext(ctx).Model(&Payment{}).
		Select("status, count(*) as count, coalesce(sum(amount), 0) as volume").
		Where("created_at >= ? AND created_at < ?", from, to).
		Group("status").
		Scan(&byStatus).Error; err != nil {
		return nil, err
	}

	stats := &Statistics{From: from, To: to, ByStatus: byStatus}

	var totals struct {
		Volume decimal.Decimal
		Fees   decimal.Decimal
	}
	if err := s.db.WithContext(ctx).Model(&Payment{}).
		Select("coalesce(sum(amount), 0) as volume, coalesce(sum(total_fees), 0) as fees").
		Where("status = ? AND created_at >= ? AND created_at < ?", StatusCompleted, from, to).
		Scan(&totals).Error; err != nil {
		return nil, err
	}
	stats.TotalVolume = totals.Volume
	stats.TotalFees = totals.Fees

	return stats, nil
}

func (s *Service) markFailed(ctx context.Context, paymentID string) {
	// The caller's context may already be expired after a gateway timeout; the
	// FAILED mark must still land.
	err := s.payments.Update(context.WithoutCancel(ctx), paymentID, map[string]any{
		"status":     StatusFailed,
		"updated_at": time.Now(),
	})
	if err != nil {
		zap.L().Error("failed to mark payment failed", zap.Error(err), zap.String("payment_id", paymentID))
	}
}

func (s *Service) paymentCode(ctx context.Context) string {
	if s.seq != nil {
		if code, err := s.seq.NextPaymentCode(ctx); err == nil {
			return code
		}
	}
	return sequence.FallbackCode("PAY")
}

func (s *Service) refundCode(ctx context.Context) string {
	if s.seq != nil {
		if code, err := s.seq.NextRefundCode(ctx); err == nil {
			return code
		}
	}
	return sequence.FallbackCode("REF")
}

func (s *Service) notifyReceipt(p *Payment) {
	if s.asynq == nil || p.PayeeID == nil {
		return
	}

	payload, err := json.Marshal(notification.PaymentReceiptPayload{
		TaskID:    p.TaskID,
		PaymentID: p.ID,
		PayeeID:   *p.PayeeID,
		Amount:    p.Amount.String(),
		Earnings:  p.AssigneeEarnings.String(),
	})
	if err != nil {
		return
	}

	if _, err := s.asynq.Enqueue(asynq.NewTask(notification.TypePaymentReceipt, payload)); err != nil {
		zap.L().Warn("failed to enqueue payment receipt", zap.Error(err), zap.String("payment_id", p.ID))
	}
}
