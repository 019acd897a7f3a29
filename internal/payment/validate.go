package payment

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// requiredFields must all be present in a callback payload before it is
// accepted for processing.
var requiredFields = []string{
	"public_key",
	"version",
	"action",
	"payment_id",
	"status",
	"amount",
	"currency",
	"description",
	"order_id",
	"liqpay_order_id",
	"create_date",
}

var stringFields = []string{"public_key", "action", "status", "currency", "description", "order_id", "liqpay_order_id"}

var numericFields = []string{"version", "amount", "create_date"}

// providerStatuses enumerates every LiqPay callback status the application
// knows how to fold into its own lifecycle.
var providerStatuses = map[string]struct{}{
	"success":     {},
	"failure":     {},
	"error":       {},
	"reversed":    {},
	"refund":      {},
	"processing":  {},
	"prepared":    {},
	"wait_secure": {},
	"wait_accept": {},
	"wait_card":   {},
	"cancelled":   {},
	"sandbox":     {},
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidationError pins the first structural problem found in a callback
// payload to a field.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Field)
}

// ValidateNotification checks the decoded payload for the full set of
// required fields, their types, and a recognised provider status, then
// binds it into a Notification. Optional fields are carried through when
// present and well typed.
func ValidateNotification(raw map[string]any) (*Notification, error) {
	if len(raw) == 0 {
		return nil, &ValidationError{Field: "payload", Reason: "missing field"}
	}
	for _, field := range requiredFields {
		v, ok := raw[field]
		if !ok || v == nil {
			return nil, &ValidationError{Field: field, Reason: "missing field"}
		}
	}
	for _, field := range stringFields {
		if _, ok := raw[field].(string); !ok {
			return nil, &ValidationError{Field: field, Reason: "invalid type"}
		}
	}
	for _, field := range numericFields {
		if _, ok := raw[field].(float64); !ok {
			return nil, &ValidationError{Field: field, Reason: "invalid type"}
		}
	}
	status := raw["status"].(string)
	if _, ok := providerStatuses[status]; !ok {
		return nil, &ValidationError{Field: status, Reason: "invalid status"}
	}

	buf, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("payment: marshal payload: %w", err)
	}
	var n Notification
	if err := json.Unmarshal(buf, &n); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, &ValidationError{Field: typeErr.Field, Reason: "invalid type"}
		}
		return nil, fmt.Errorf("payment: bind payload: %w", err)
	}
	if err := validate.Struct(&n); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return nil, &ValidationError{Field: fieldErrs[0].Field(), Reason: "invalid value"}
		}
		return nil, err
	}
	return &n, nil
}
