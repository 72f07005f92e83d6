package closing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReconcile(t *testing.T) {
	cases := []struct {
		name                          string
		carried, reported, posRecorded int64
		want                          Reconciliation
	}{
		{
			name: "operator reports more than terminals recorded",
			carried: 10, reported: 5, posRecorded: 3,
			want: Reconciliation{EffectiveTotalSold: 5, Unregistered: 2, QuantityReturned: 5},
		},
		{
			name: "operator count clamped up to recorded history",
			carried: 10, reported: 2, posRecorded: 6,
			want: Reconciliation{EffectiveTotalSold: 6, Unregistered: 0, QuantityReturned: 4},
		},
		{
			name: "counts agree",
			carried: 8, reported: 8, posRecorded: 8,
			want: Reconciliation{EffectiveTotalSold: 8, Unregistered: 0, QuantityReturned: 0},
		},
		{
			name: "oversold relative to carried never yields negative returns",
			carried: 3, reported: 7, posRecorded: 4,
			want: Reconciliation{EffectiveTotalSold: 7, Unregistered: 3, QuantityReturned: 0},
		},
		{
			name: "nothing sold",
			carried: 12, reported: 0, posRecorded: 0,
			want: Reconciliation{EffectiveTotalSold: 0, Unregistered: 0, QuantityReturned: 12},
		},
		{
			name: "everything sold off-terminal",
			carried: 5, reported: 5, posRecorded: 0,
			want: Reconciliation{EffectiveTotalSold: 5, Unregistered: 5, QuantityReturned: 0},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Reconcile(tc.carried, tc.reported, tc.posRecorded)
			require.Equal(t, tc.want, got)
			require.GreaterOrEqual(t, got.Unregistered, int64(0))
			require.GreaterOrEqual(t, got.QuantityReturned, int64(0))
			require.GreaterOrEqual(t, got.EffectiveTotalSold, tc.posRecorded, "recorded history never shrinks")
		})
	}
}
