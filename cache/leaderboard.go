// Package cache provides an optional Redis-backed leaderboard mirror so the
// score listing does not hit Postgres on every `top` command. Postgres stays
// authoritative; the ZSET is write-through and rebuilt lazily when empty.
package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/onnwee/quizbot/quiz"
)

// Leaderboard mirrors per-channel scores in a Redis sorted set.
type Leaderboard struct {
	client *redis.Client
}

func NewLeaderboard(client *redis.Client) *Leaderboard {
	return &Leaderboard{client: client}
}

func (l *Leaderboard) key(channelID string) string {
	return fmt.Sprintf("channel:%s:leaderboard", channelID)
}

// SetScore records a user's absolute accumulated points.
func (l *Leaderboard) SetScore(ctx context.Context, channelID, userID string, points int) error {
	return l.client.ZAdd(ctx, l.key(channelID), redis.Z{
		Score:  float64(points),
		Member: userID,
	}).Err()
}

// Top returns up to limit entries ordered by points descending. An empty
// slice means the mirror is cold and the caller should fall back to the
// store. limit <= 0 returns all entries.
func (l *Leaderboard) Top(ctx context.Context, channelID string, limit int) ([]quiz.ScoreEntry, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	zs, err := l.client.ZRevRangeWithScores(ctx, l.key(channelID), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("leaderboard read: %w", err)
	}
	entries := make([]quiz.ScoreEntry, 0, len(zs))
	for _, z := range zs {
		user, ok := z.Member.(string)
		if !ok {
			continue
		}
		entries = append(entries, quiz.ScoreEntry{UserID: user, Points: int(z.Score)})
	}
	return entries, nil
}

// Fill bulk-loads entries into a channel's mirror.
func (l *Leaderboard) Fill(ctx context.Context, channelID string, entries []quiz.ScoreEntry) error {
	if len(entries) == 0 {
		return nil
	}
	zs := make([]redis.Z, len(entries))
	for i, e := range entries {
		zs[i] = redis.Z{Score: float64(e.Points), Member: e.UserID}
	}
	return l.client.ZAdd(ctx, l.key(channelID), zs...).Err()
}
