package events

// Topic constants for domain events emitted by the POS.
const (
	TopicOrderCreated   = "order.created"
	TopicOrderPaid      = "order.paid"
	TopicOrderCancelled = "order.cancelled"
	TopicPaymentFailed  = "payment.failed"
)

// DefaultTopics returns the topics forwarded to the background worker.
func DefaultTopics() []string {
	return []string{
		TopicOrderCreated,
		TopicOrderPaid,
		TopicOrderCancelled,
		TopicPaymentFailed,
	}
}
