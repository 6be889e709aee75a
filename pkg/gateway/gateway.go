package gateway

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Gateway is the external payment processor. It is a black box with a boolean
// outcome; callers bound each call with a context timeout and treat
// expiration as failure.
type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	Refund(ctx context.Context, req RefundRequest) (*RefundResult, error)
}

type ChargeRequest struct {
	Amount    decimal.Decimal
	Method    string
	Reference string
}

type ChargeResult struct {
	Success       bool
	TransactionID string
	Details       string
}

type RefundRequest struct {
	TransactionID string
	Amount        decimal.Decimal
	Reference     string
}

type RefundResult struct {
	Success             bool
	RefundTransactionID string
	Details             string
}

var Module = fx.Module("gateway",
	fx.Provide(
		fx.Annotate(NewSandbox, fx.As(new(Gateway))),
	),
)

// Decider resolves whether the sandbox approves a request, keyed by the
// payment reference. Tests inject deterministic outcomes.
type Decider func(reference string) bool

// Sandbox is the stand-in processor used outside production. It approves
// everything unless a Decider says otherwise.
type Sandbox struct {
	decide Decider
}

func NewSandbox() *Sandbox {
	return &Sandbox{}
}

// WithDecider returns a sandbox with a custom approval function.
func (g *Sandbox) WithDecider(decide Decider) *Sandbox {
	return &Sandbox{decide: decide}
}

func (g *Sandbox) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if g.decide != nil && !g.decide(req.Reference) {
		zap.L().Info("sandbox gateway declined charge", zap.String("reference", req.Reference))
		return &ChargeResult{Success: false, Details: "declined"}, nil
	}

	return &ChargeResult{
		Success:       true,
		TransactionID: "ch_" + uuid.NewString(),
		Details:       "approved",
	}, nil
}

func (g *Sandbox) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if g.decide != nil && !g.decide(req.Reference) {
		zap.L().Info("sandbox gateway declined refund", zap.String("reference", req.Reference))
		return &RefundResult{Success: false, Details: "declined"}, nil
	}

	return &RefundResult{
		Success:             true,
		RefundTransactionID: "re_" + uuid.NewString(),
		Details:             "approved",
	}, nil
}
