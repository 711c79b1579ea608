// Package rewards bridges Twitch channel-points redemptions to quiz rounds.
// It creates the quiz reward on capable channels and polls for unfulfilled
// redemptions, starting a round for each and marking it fulfilled so it is
// processed exactly once.
package rewards

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"github.com/onnwee/quizbot/db"
	"github.com/onnwee/quizbot/quiz"
	"github.com/onnwee/quizbot/telemetry"
	"github.com/onnwee/quizbot/twitchapi"
)

// EnsureRewards creates the quiz reward for every channel that has a valid
// user token but no reward configured yet. Failures are per-channel and best
// effort; a channel without the manage-redemptions scope simply keeps
// working without the reward trigger.
func EnsureRewards(ctx context.Context, store *db.ChannelStore, api *twitchapi.Client) {
	rows, err := store.ListChannels(ctx)
	if err != nil {
		slog.Error("rewards: list channels", slog.Any("err", err))
		return
	}
	for _, row := range rows {
		if !row.HasToken || row.InvalidToken || row.RewardID != "" {
			continue
		}
		token, err := store.UserToken(ctx, row.RoomID)
		if err != nil || token == "" {
			slog.Warn("rewards: token unavailable", slog.String("channel", row.Name), slog.Any("err", err))
			continue
		}
		rewardID, err := api.CreateQuizReward(ctx, token, row.RoomID)
		if err != nil {
			slog.Warn("rewards: create reward failed", slog.String("channel", row.Name), slog.Any("err", err))
			continue
		}
		if err := store.SetRewardID(ctx, row.RoomID, rewardID); err != nil {
			slog.Error("rewards: persist reward id", slog.String("channel", row.Name), slog.Any("err", err))
			continue
		}
		slog.Info("rewards: quiz reward created", slog.String("channel", row.Name), slog.String("reward_id", rewardID))
	}
}

// StartPoller launches a goroutine that periodically checks each capable
// channel for unfulfilled quiz-reward redemptions.
// interval: how often to wake up and poll.
func StartPoller(ctx context.Context, store *db.ChannelStore, registry *quiz.Registry, api *twitchapi.Client, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	// Randomize initial delay to spread load across instances.
	//nolint:gosec // G404: math/rand is sufficient for scheduling jitter, not used for security
	initialJitter := time.Duration(rand.Int63n(int64(interval/2) + 1))
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(initialJitter):
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		slog.Info("rewards: poller started", slog.Duration("interval", interval))
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			PollOnce(ctx, store, registry, api)
		}
	}()
}

// PollOnce runs a single pass: for every capable channel it fetches
// unfulfilled quiz-reward redemptions, starts a round per redemption, and
// fulfils each one so it is never replayed.
func PollOnce(ctx context.Context, store *db.ChannelStore, registry *quiz.Registry, api *twitchapi.Client) {
	rows, err := store.ListChannels(ctx)
	if err != nil {
		slog.Warn("rewards: list channels", slog.Any("err", err))
		return
	}
	for _, row := range rows {
		if !row.HasToken || row.InvalidToken || row.RewardID == "" {
			continue
		}
		token, err := store.UserToken(ctx, row.RoomID)
		if err != nil || token == "" {
			continue
		}
		reds, err := api.UnfulfilledRedemptions(ctx, token, row.RoomID, row.RewardID)
		if err != nil {
			slog.Debug("rewards: redemptions poll failed", slog.String("channel", row.Name), slog.Any("err", err))
			continue
		}
		for _, red := range reds {
			err := registry.OnRewardRedeemed(ctx, row.RoomID, row.RewardID)
			switch {
			case err == nil:
				telemetry.RewardRedeemed()
			case errors.Is(err, quiz.ErrRoundActive):
				// A round is already running; the redemption is consumed
				// rather than queued.
			default:
				slog.Warn("rewards: round start failed",
					slog.String("channel", row.Name),
					slog.Any("err", err))
			}
			if err := api.FulfillRedemption(ctx, token, row.RoomID, row.RewardID, red.ID); err != nil {
				slog.Warn("rewards: fulfil redemption failed",
					slog.String("channel", row.Name),
					slog.String("redemption_id", red.ID),
					slog.Any("err", err))
			}
		}
	}
}
