package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	attendanceOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spotrunner_attendance_operations_total",
			Help: "Participation and cancellation attempts by outcome",
		},
		[]string{"operation", "outcome"},
	)

	redemptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spotrunner_redemptions_total",
			Help: "Merchandise redemption attempts by outcome",
		},
		[]string{"outcome"},
	)

	redeemedCoins = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "spotrunner_redeemed_coins_total",
			Help: "Coins transferred from runners to organizers",
		},
	)

	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spotrunner_http_requests_total",
			Help: "HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "spotrunner_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	statusRefreshes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "spotrunner_event_status_refreshed_total",
			Help: "Cached event statuses rewritten by the refresh job",
		},
	)
)

func TrackAttendance(operation, outcome string) {
	attendanceOperations.WithLabelValues(operation, outcome).Inc()
}

func TrackRedemption(outcome string, coins int) {
	redemptions.WithLabelValues(outcome).Inc()
	if coins > 0 {
		redeemedCoins.Add(float64(coins))
	}
}

func TrackRequest(method, route, status string, duration time.Duration) {
	httpRequests.WithLabelValues(method, route, status).Inc()
	httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func TrackStatusRefresh(updated int64) {
	statusRefreshes.Add(float64(updated))
}
