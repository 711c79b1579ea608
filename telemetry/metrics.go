// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	RoundsStarted   prometheus.Counter
	RoundsWon       prometheus.Counter
	RoundsTimedOut  prometheus.Counter
	GuessesChecked  prometheus.Counter
	GuessesCorrect  prometheus.Counter
	RewardsRedeemed prometheus.Counter

	// Histograms (seconds)
	RoundDuration prometheus.Observer

	// Gauges
	ActiveRoundsGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		RoundsStarted = promauto.NewCounter(prometheus.CounterOpts{Name: "quiz_rounds_started_total", Help: "Number of quiz rounds started"})
		RoundsWon = promauto.NewCounter(prometheus.CounterOpts{Name: "quiz_rounds_won_total", Help: "Number of quiz rounds resolved by a correct guess"})
		RoundsTimedOut = promauto.NewCounter(prometheus.CounterOpts{Name: "quiz_rounds_timed_out_total", Help: "Number of quiz rounds that expired unanswered"})
		GuessesChecked = promauto.NewCounter(prometheus.CounterOpts{Name: "quiz_guesses_total", Help: "Number of guesses checked against an active question"})
		GuessesCorrect = promauto.NewCounter(prometheus.CounterOpts{Name: "quiz_guesses_correct_total", Help: "Number of correct guesses"})
		RewardsRedeemed = promauto.NewCounter(prometheus.CounterOpts{Name: "quiz_rewards_redeemed_total", Help: "Number of channel-point redemptions that triggered a round"})
		RoundDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "quiz_round_duration_seconds", Help: "Time from round start to resolution or timeout", Buckets: prometheus.ExponentialBuckets(1, 2, 12)})
		ActiveRoundsGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "quiz_active_rounds", Help: "Number of rounds currently in flight"})
	})
}

// RoundStarted records a round start. Safe to call before Init.
func RoundStarted() {
	if RoundsStarted != nil {
		RoundsStarted.Inc()
	}
	if ActiveRoundsGauge != nil {
		ActiveRoundsGauge.Inc()
	}
}

// RoundWon records a round resolved by a correct guess.
func RoundWon(d time.Duration) {
	if RoundsWon != nil {
		RoundsWon.Inc()
	}
	finishRound(d)
}

// RoundTimedOut records a round that expired unanswered.
func RoundTimedOut(d time.Duration) {
	if RoundsTimedOut != nil {
		RoundsTimedOut.Inc()
	}
	finishRound(d)
}

func finishRound(d time.Duration) {
	if ActiveRoundsGauge != nil {
		ActiveRoundsGauge.Dec()
	}
	if RoundDuration != nil {
		RoundDuration.Observe(d.Seconds())
	}
}

// GuessChecked records one guess evaluation.
func GuessChecked(correct bool) {
	if GuessesChecked != nil {
		GuessesChecked.Inc()
	}
	if correct && GuessesCorrect != nil {
		GuessesCorrect.Inc()
	}
}

// RewardRedeemed records a redemption that triggered a round.
func RewardRedeemed() {
	if RewardsRedeemed != nil {
		RewardsRedeemed.Inc()
	}
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns the correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with a corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
