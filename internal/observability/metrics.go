package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpDurationHistogram *prometheus.HistogramVec
	betCounter            *prometheus.CounterVec
	miningPayoutCounter   *prometheus.CounterVec
	referralCreditCounter prometheus.Counter
	ledgerViolationCount  *prometheus.CounterVec
	idempotencyCounter    *prometheus.CounterVec
	workerRunCounter      *prometheus.CounterVec
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		betCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bets_settled_total",
			Help: "Settled bets by game and outcome",
		}, []string{"game_type", "outcome"})

		miningPayoutCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mining_payouts_total",
			Help: "Mining payout cycle results per position",
		}, []string{"result"})

		referralCreditCounter = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "referral_credits_total",
			Help: "Referral bonuses credited",
		})

		ledgerViolationCount = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_violations_total",
			Help: "Integrity check violations by check name",
		}, []string{"check"})

		idempotencyCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_events_total",
			Help: "Idempotency middleware outcomes",
		}, []string{"outcome"})

		workerRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Background worker run outcomes",
		}, []string{"worker", "result"})

		prometheus.MustRegister(
			httpDurationHistogram,
			betCounter,
			miningPayoutCounter,
			referralCreditCounter,
			ledgerViolationCount,
			idempotencyCounter,
			workerRunCounter,
		)
	})
}

func ObserveHTTP(method, path string, status int, duration time.Duration) {
	if httpDurationHistogram == nil {
		return
	}
	httpDurationHistogram.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

func RecordBet(gameType, outcome string) {
	if betCounter == nil {
		return
	}
	betCounter.WithLabelValues(gameType, outcome).Inc()
}

func RecordMiningPayout(result string) {
	if miningPayoutCounter == nil {
		return
	}
	miningPayoutCounter.WithLabelValues(result).Inc()
}

func RecordReferralCredit() {
	if referralCreditCounter == nil {
		return
	}
	referralCreditCounter.Inc()
}

func IncrementLedgerViolation(check string) {
	if ledgerViolationCount == nil {
		return
	}
	ledgerViolationCount.WithLabelValues(check).Inc()
}

func IncrementIdempotencyEvent(outcome string) {
	if idempotencyCounter == nil {
		return
	}
	idempotencyCounter.WithLabelValues(outcome).Inc()
}

func IncrementWorkerRun(worker, result string) {
	if workerRunCounter == nil {
		return
	}
	workerRunCounter.WithLabelValues(worker, result).Inc()
}
