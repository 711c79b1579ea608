package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/onnwee/quizbot/cache"
	"github.com/onnwee/quizbot/quiz"
)

// ScoreStore persists participations and accumulated scores. When a
// Leaderboard is attached, score writes are mirrored into Redis best effort
// and ScoresDesc reads through the mirror.
type ScoreStore struct {
	DB          *sql.DB
	Leaderboard *cache.Leaderboard
}

func (s *ScoreStore) RecordParticipation(ctx context.Context, p quiz.Participation) error {
	userID := sql.NullString{String: p.UserID, Valid: p.UserID != ""}
	answer := sql.NullString{String: p.Answer, Valid: p.Answer != ""}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO participations (channel_id, question_id, user_id, answer, points)
		 VALUES ($1, $2, $3, $4, $5)`,
		p.ChannelID, p.QuestionID, userID, answer, p.Points)
	if err != nil {
		return fmt.Errorf("insert participation: %w", err)
	}
	return nil
}

func (s *ScoreStore) Score(ctx context.Context, channelID, userID string) (int, bool, error) {
	var points int
	err := s.DB.QueryRowContext(ctx,
		`SELECT points FROM scores WHERE channel_id = $1 AND user_id = $2`,
		channelID, userID).Scan(&points)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read score: %w", err)
	}
	return points, true, nil
}

func (s *ScoreStore) UpsertScore(ctx context.Context, channelID, userID string, points int) error {
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO scores (channel_id, user_id, points)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (channel_id, user_id) DO UPDATE SET points = EXCLUDED.points, updated_at = NOW()`,
		channelID, userID, points)
	if err != nil {
		return fmt.Errorf("upsert score: %w", err)
	}
	if s.Leaderboard != nil {
		if err := s.Leaderboard.SetScore(ctx, channelID, userID, points); err != nil {
			slog.Warn("leaderboard mirror write failed", slog.String("channel_id", channelID), slog.Any("err", err))
		}
	}
	return nil
}

func (s *ScoreStore) ScoresDesc(ctx context.Context, channelID string) ([]quiz.ScoreEntry, error) {
	if s.Leaderboard != nil {
		entries, err := s.Leaderboard.Top(ctx, channelID, 0)
		if err != nil {
			slog.Warn("leaderboard mirror read failed", slog.String("channel_id", channelID), slog.Any("err", err))
		} else if len(entries) > 0 {
			return entries, nil
		}
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT user_id, points FROM scores WHERE channel_id = $1 ORDER BY points DESC`, channelID)
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	defer rows.Close()
	var entries []quiz.ScoreEntry
	for rows.Next() {
		var e quiz.ScoreEntry
		if err := rows.Scan(&e.UserID, &e.Points); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scores: %w", err)
	}

	if s.Leaderboard != nil && len(entries) > 0 {
		if err := s.Leaderboard.Fill(ctx, channelID, entries); err != nil {
			slog.Warn("leaderboard mirror fill failed", slog.String("channel_id", channelID), slog.Any("err", err))
		}
	}
	return entries, nil
}
