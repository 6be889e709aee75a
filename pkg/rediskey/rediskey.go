package rediskey

import "fmt"

// Key conventions shared across services.
const (
	TaskBidStatsPrefix = "task:bidstats"
	PaymentSeqPrefix   = "seq:payment"
	RefundSeqPrefix    = "seq:refund"
)

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// BuildTaskBidStatsKey returns "task:bidstats:{taskID}"
func BuildTaskBidStatsKey(taskID string) string {
	return NamespaceKey(TaskBidStatsPrefix, taskID)
}

// BuildPaymentSeqKey returns "seq:payment:{yymmdd}"
func BuildPaymentSeqKey(day string) string {
	return NamespaceKey(PaymentSeqPrefix, day)
}

// BuildRefundSeqKey returns "seq:refund:{yymmdd}"
func BuildRefundSeqKey(day string) string {
	return NamespaceKey(RefundSeqPrefix, day)
}
