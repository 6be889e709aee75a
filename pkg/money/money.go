package money

import (
	"github.com/shopspring/decimal"

	"flextasker/pkg/config"
)

// Default fee constants, used when config does not override them.
const (
	DefaultPlatformFeeRate    = "0.05"
	DefaultProcessingFeeRate  = "0.029"
	DefaultProcessingFeeFixed = "0.30"
)

// FeeModel computes the fee breakdown for a payment amount. The same model is
// applied for charging and refunding so a full-amount reversal is exact.
type FeeModel struct {
	PlatformRate    decimal.Decimal
	ProcessingRate  decimal.Decimal
	ProcessingFixed decimal.Decimal
}

// Breakdown is the fee split of one payment. The invariant
// PlatformFee + ProcessingFee + AssigneeEarnings == amount holds exactly:
// earnings are derived as amount minus total fees rather than computed
// independently.
type Breakdown struct {
	PlatformFee      decimal.Decimal `json:"platform_fee"`
	ProcessingFee    decimal.Decimal `json:"processing_fee"`
	TotalFees        decimal.Decimal `json:"total_fees"`
	AssigneeEarnings decimal.Decimal `json:"assignee_earnings"`
}

func DefaultFeeModel() FeeModel {
	return FeeModel{
		PlatformRate:    decimal.RequireFromString(DefaultPlatformFeeRate),
		ProcessingRate:  decimal.RequireFromString(DefaultProcessingFeeRate),
		ProcessingFixed: decimal.RequireFromString(DefaultProcessingFeeFixed),
	}
}

// FeeModelFromConfig builds the model from config, falling back to defaults
// for unset rates.
func FeeModelFromConfig(cfg *config.Config) FeeModel {
	m := DefaultFeeModel()
	if cfg.Payment.PlatformFeeRate > 0 {
		m.PlatformRate = decimal.NewFromFloat(cfg.Payment.PlatformFeeRate)
	}
	if cfg.Payment.ProcessingFeeRate > 0 {
		m.ProcessingRate = decimal.NewFromFloat(cfg.Payment.ProcessingFeeRate)
	}
	if cfg.Payment.ProcessingFeeFixed > 0 {
		m.ProcessingFixed = decimal.NewFromFloat(cfg.Payment.ProcessingFeeFixed)
	}
	return m
}

// Compute returns the fee breakdown for amount. Each fee component is rounded
// to cents; earnings absorb the remainder so the split always sums back to
// amount.
func (m FeeModel) Compute(amount decimal.Decimal) Breakdown {
	platformFee := amount.Mul(m.PlatformRate).Round(2)
	processingFee := amount.Mul(m.ProcessingRate).Add(m.ProcessingFixed).Round(2)
	totalFees := platformFee.Add(processingFee)

	return Breakdown{
		PlatformFee:      platformFee,
		ProcessingFee:    processingFee,
		TotalFees:        totalFees,
		AssigneeEarnings: amount.Sub(totalFees),
	}
}
