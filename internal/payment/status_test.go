package payment

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMapProviderStatus(t *testing.T) {
	cases := []struct {
		provider string
		want     Status
	}{
		{"success", StatusCompleted},
		{"sandbox", StatusCompleted},
		{"failure", StatusFailed},
		{"error", StatusFailed},
		{"reversed", StatusRefunded},
		{"refund", StatusRefunded},
		{"processing", StatusPending},
		{"prepared", StatusPending},
		{"wait_secure", StatusPending},
		{"wait_accept", StatusPending},
		{"wait_card", StatusPending},
		{"cancelled", StatusCancelled},
		{"something_new", StatusPending},
		{"", StatusPending},
	}
	for _, tc := range cases {
		t.Run(tc.provider, func(t *testing.T) {
			require.Equal(t, tc.want, MapProviderStatus(tc.provider))
		})
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusCompleted, StatusFailed, StatusCancelled, StatusRefunded} {
		require.True(t, s.Valid())
	}
	require.False(t, Status("success").Valid())
	require.False(t, Status("").Valid())
}

func TestStatusTerminal(t *testing.T) {
	require.False(t, StatusPending.Terminal())
	for _, s := range []Status{StatusCompleted, StatusFailed, StatusCancelled, StatusRefunded} {
		require.True(t, s.Terminal())
	}
}
