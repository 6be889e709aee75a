package notification

// Asynq task types produced by the bid and payment services and consumed by
// the notifier worker.
const (
	TypeBidOverbudget  = "notification:bid_overbudget"
	TypeBidDecision    = "notification:bid_decision"
	TypePaymentReceipt = "notification:payment_receipt"
)

// BidOverbudgetPayload warns a task owner that a bid landed well above a
// fixed budget. Advisory only; the bid itself is already created.
type BidOverbudgetPayload struct {
	TaskID   string `json:"task_id"`
	BidID    string `json:"bid_id"`
	BidderID string `json:"bidder_id"`
	OwnerID  string `json:"owner_id"`
	Amount   string `json:"amount"`
	Budget   string `json:"budget"`
}

// BidDecisionPayload tells a bidder their bid was accepted or rejected.
type BidDecisionPayload struct {
	TaskID   string `json:"task_id"`
	BidID    string `json:"bid_id"`
	BidderID string `json:"bidder_id"`
	Decision string `json:"decision"`
}

// PaymentReceiptPayload tells the assignee a payment for their work cleared.
type PaymentReceiptPayload struct {
	TaskID    string `json:"task_id"`
	PaymentID string `json:"payment_id"`
	PayeeID   string `json:"payee_id"`
	Amount    string `json:"amount"`
	Earnings  string `json:"earnings"`
}
