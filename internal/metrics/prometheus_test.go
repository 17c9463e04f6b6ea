package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCouponIssuedLabels(t *testing.T) {
	before := testutil.ToFloat64(RewardCouponsIssued.WithLabelValues("unknown"))
	IncCouponIssued("  ")
	require.Equal(t, before+1, testutil.ToFloat64(RewardCouponsIssued.WithLabelValues("unknown")))

	before = testutil.ToFloat64(RewardCouponsIssued.WithLabelValues("milestone"))
	IncCouponIssued("milestone")
	require.Equal(t, before+1, testutil.ToFloat64(RewardCouponsIssued.WithLabelValues("milestone")))
}

func TestAddPointsCredited_IgnoresNonPositive(t *testing.T) {
	before := testutil.ToFloat64(RewardPointsCredited)
	AddPointsCredited(0)
	AddPointsCredited(-5)
	require.Equal(t, before, testutil.ToFloat64(RewardPointsCredited))

	AddPointsCredited(25)
	require.Equal(t, before+25, testutil.ToFloat64(RewardPointsCredited))
}

func TestOutboxAndGateCounters(t *testing.T) {
	before := testutil.ToFloat64(OrderGateRejections)
	IncOrderGateRejection()
	require.Equal(t, before+1, testutil.ToFloat64(OrderGateRejections))

	before = testutil.ToFloat64(OutboxEvents.WithLabelValues("failed"))
	IncOutboxEvent("failed")
	require.Equal(t, before+1, testutil.ToFloat64(OutboxEvents.WithLabelValues("failed")))
}
