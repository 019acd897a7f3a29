package payment

// Notification is the decoded LiqPay server callback payload. Optional
// provider fields are kept so the audit trail and store updates can use
// them when present.
type Notification struct {
	PublicKey     string  `json:"public_key" validate:"required"`
	Version       int     `json:"version"`
	Action        string  `json:"action" validate:"required"`
	PaymentID     int64   `json:"payment_id"`
	Status        string  `json:"status" validate:"required"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency" validate:"required,len=3"`
	Description   string  `json:"description" validate:"required"`
	OrderID       string  `json:"order_id" validate:"required"`
	LiqPayOrderID string  `json:"liqpay_order_id" validate:"required"`
	CreateDate    int64   `json:"create_date"`

	TransactionID     string `json:"transaction_id,omitempty"`
	EndDate           int64  `json:"end_date,omitempty"`
	SenderPhone       string `json:"sender_phone,omitempty"`
	SenderCardMask    string `json:"sender_card_mask2,omitempty"`
	SenderCardBank    string `json:"sender_card_bank,omitempty"`
	SenderCardType    string `json:"sender_card_type,omitempty"`
	SenderCardCountry int    `json:"sender_card_country,omitempty"`
	IP                string `json:"ip,omitempty"`
	ErrCode           string `json:"err_code,omitempty"`
	ErrDescription    string `json:"err_description,omitempty"`
}
