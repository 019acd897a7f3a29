package payment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPaidAtForReadsEpochSeconds(t *testing.T) {
	n := &Notification{EndDate: 1700000060}

	paidAt := paidAtFor(StatusCompleted, n)
	require.True(t, paidAt.Valid)
	require.Equal(t, time.Date(2023, time.November, 14, 22, 14, 20, 0, time.UTC), paidAt.Time)
	require.Equal(t, time.Unix(n.EndDate, 0).UTC(), paidAt.Time)
}

func TestPaidAtForDefaultsToNow(t *testing.T) {
	before := time.Now().UTC()
	paidAt := paidAtFor(StatusCompleted, &Notification{})
	after := time.Now().UTC()

	require.True(t, paidAt.Valid)
	require.False(t, paidAt.Time.Before(before))
	require.False(t, paidAt.Time.After(after))
}

func TestPaidAtForNonCompleted(t *testing.T) {
	require.False(t, paidAtFor(StatusFailed, &Notification{EndDate: 1700000060}).Valid)
	require.False(t, paidAtFor(StatusCompleted, nil).Valid)
}

func TestTransactionID(t *testing.T) {
	tests := []struct {
		name  string
		n     *Notification
		want  string
		valid bool
	}{
		{"provider transaction id", &Notification{TransactionID: "tx-42", PaymentID: 3085058731}, "tx-42", true},
		{"falls back to payment id", &Notification{PaymentID: 3085058731}, "3085058731", true},
		{"neither present", &Notification{}, "", false},
		{"nil notification", nil, "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := transactionID(tc.n)
			require.Equal(t, tc.valid, got.Valid)
			require.Equal(t, tc.want, got.String)
		})
	}
}
