package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrderGateRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordersvc_order_gate_rejections_total",
		Help: "Orders refused because the shop was closed",
	})

	RewardCouponsIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ordersvc_reward_coupons_issued_total",
		Help: "Reward coupons issued by kind",
	}, []string{"kind"})

	RewardPointsCredited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordersvc_reward_points_credited_total",
		Help: "Loyalty points credited to wallets",
	})

	RewardFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ordersvc_reward_failures_total",
		Help: "Reward engine runs that failed and were rolled back",
	})

	RewardDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ordersvc_reward_duration_seconds",
		Help:    "Time to process one order event in the reward engine",
		Buckets: prometheus.DefBuckets,
	})

	OutboxEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ordersvc_outbox_events_total",
		Help: "Outbox events handled by the dispatcher by result",
	}, []string{"result"})
)

func IncOrderGateRejection() {
	OrderGateRejections.Inc()
}

func IncCouponIssued(kind string) {
	label := strings.TrimSpace(kind)
	if label == "" {
		label = "unknown"
	}
	RewardCouponsIssued.WithLabelValues(label).Inc()
}

func AddPointsCredited(points int64) {
	if points <= 0 {
		return
	}
	RewardPointsCredited.Add(float64(points))
}

func IncRewardFailure() {
	RewardFailures.Inc()
}

func ObserveRewardDuration(d time.Duration) {
	RewardDuration.Observe(d.Seconds())
}

func IncOutboxEvent(result string) {
	OutboxEvents.WithLabelValues(result).Inc()
}
