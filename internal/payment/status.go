package payment

// Status is the application-level lifecycle state of a payment.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
	StatusRefunded  Status = "refunded"
)

// Valid reports whether s is one of the known application statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// Terminal reports whether the status admits no further transitions from the
// provider side.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// MapProviderStatus folds a LiqPay status into the application lifecycle.
// Sandbox callbacks count as completed so test-mode purchases behave like
// real ones. Unrecognised values fall back to pending rather than failing
// the webhook.
func MapProviderStatus(provider string) Status {
	switch provider {
	case "success", "sandbox":
		return StatusCompleted
	case "failure", "error":
		return StatusFailed
	case "reversed", "refund":
		return StatusRefunded
	case "processing", "prepared", "wait_secure", "wait_accept", "wait_card":
		return StatusPending
	case "cancelled":
		return StatusCancelled
	default:
		return StatusPending
	}
}
