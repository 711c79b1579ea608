// Package oauth provides background validation for the per-channel user
// tokens persisted in the channels table. It performs jittered checks and
// flags tokens Twitch no longer accepts so API features degrade cleanly.
package oauth

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/onnwee/quizbot/db"
	"github.com/onnwee/quizbot/twitchapi"
)

const validateTimeout = 15 * time.Second

// Hint shown to streamers when their token goes stale.
const tokenHintURL = "https://gw2trivia.com/qpub/token"

// StartValidator launches a goroutine that periodically validates every
// stored user token against Twitch and marks rejected ones invalid.
// interval: how often to wake up and check.
func StartValidator(ctx context.Context, store *db.ChannelStore, api *twitchapi.Client, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	// Randomize initial delay to spread load across instances.
	//nolint:gosec // G404: math/rand is sufficient for scheduling jitter, not used for security
	initialJitter := time.Duration(rand.Int63n(int64(interval / 2)))
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(initialJitter):
		}
		slog.Info("token validator started", slog.Duration("interval", interval))
		for {
			// Add per-iteration jitter (±20% of interval) for scheduling diversity.
			jitterRange := int64(interval / 5)
			//nolint:gosec // G404: math/rand is sufficient for scheduling jitter, not used for security
			jitter := time.Duration(rand.Int63n(jitterRange*2) - jitterRange)
			nextSleep := interval + jitter
			if nextSleep < interval/2 {
				nextSleep = interval / 2
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(nextSleep):
			}
			ValidateAll(ctx, store, api)
		}
	}()
}

// ValidateAll runs one validation pass over every channel with a stored
// token. Network errors are skipped; only an explicit 401 flags the token.
func ValidateAll(ctx context.Context, store *db.ChannelStore, api *twitchapi.Client) {
	rows, err := store.ListChannels(ctx)
	if err != nil {
		slog.Warn("token validation: list channels", slog.Any("err", err))
		return
	}
	for _, row := range rows {
		if !row.HasToken || row.InvalidToken {
			continue
		}
		token, err := store.UserToken(ctx, row.RoomID)
		if err != nil || token == "" {
			continue
		}
		ctx2, cancel := context.WithTimeout(ctx, validateTimeout)
		ok, err := api.ValidateUserToken(ctx2, token)
		cancel()
		if err != nil {
			// Transient failure; try again next pass.
			slog.Debug("token validation request failed", slog.String("channel", row.Name), slog.Any("err", err))
			continue
		}
		if ok {
			continue
		}
		if err := store.MarkTokenInvalid(ctx, row.RoomID); err != nil {
			slog.Error("token validation: mark invalid", slog.String("channel", row.Name), slog.Any("err", err))
			continue
		}
		slog.Warn("user token rejected by twitch, channel flagged",
			slog.String("channel", row.Name),
			slog.String("hint", tokenHintURL))
	}
}
