package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/onnwee/quizbot/crypto"
	"github.com/onnwee/quizbot/quiz"
)

// ChannelStore loads and updates channel rows. When an Encryptor is set, new
// user tokens are stored encrypted; rows written before encryption was
// enabled (token_encrypted = FALSE) are still readable.
type ChannelStore struct {
	DB        *sql.DB
	Encryptor *crypto.Encryptor
}

// ChannelRow is a raw channels row, used by boot-time joins and background
// loops that need more than the quiz engine's Channel view.
type ChannelRow struct {
	RoomID       string
	Name         string
	Prefix       string
	RewardID     string
	InvalidToken bool
	HasToken     bool
}

func (s *ChannelStore) ChannelConfig(ctx context.Context, channelID string) (quiz.Channel, error) {
	var (
		ch       quiz.Channel
		token    sql.NullString
		rewardID sql.NullString
		invalid  bool
	)
	err := s.DB.QueryRowContext(ctx,
		`SELECT room_id, name, prefix, user_token, custom_reward_id, invalid_token
		 FROM channels WHERE room_id = $1`, channelID).
		Scan(&ch.ID, &ch.Name, &ch.Prefix, &token, &rewardID, &invalid)
	if errors.Is(err, sql.ErrNoRows) {
		return quiz.Channel{}, quiz.ErrChannelNotConfigured
	}
	if err != nil {
		return quiz.Channel{}, fmt.Errorf("fetch channel %s: %w", channelID, err)
	}
	ch.RewardID = rewardID.String
	ch.HasAPI = token.Valid && token.String != "" && !invalid
	return ch, nil
}

// ListChannels returns all configured channels, for joining chat at boot and
// for the background pollers.
func (s *ChannelStore) ListChannels(ctx context.Context) ([]ChannelRow, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT room_id, name, prefix, user_token, custom_reward_id, invalid_token FROM channels`)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()
	var out []ChannelRow
	for rows.Next() {
		var (
			r        ChannelRow
			token    sql.NullString
			rewardID sql.NullString
		)
		if err := rows.Scan(&r.RoomID, &r.Name, &r.Prefix, &token, &rewardID, &r.InvalidToken); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		r.RewardID = rewardID.String
		r.HasToken = token.Valid && token.String != ""
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate channels: %w", err)
	}
	return out, nil
}

// UserToken returns the decrypted user token for a channel, or empty string
// when none is stored.
func (s *ChannelStore) UserToken(ctx context.Context, channelID string) (string, error) {
	var (
		token     sql.NullString
		encrypted bool
	)
	err := s.DB.QueryRowContext(ctx,
		`SELECT user_token, token_encrypted FROM channels WHERE room_id = $1`, channelID).
		Scan(&token, &encrypted)
	if errors.Is(err, sql.ErrNoRows) {
		return "", quiz.ErrChannelNotConfigured
	}
	if err != nil {
		return "", fmt.Errorf("fetch token for channel %s: %w", channelID, err)
	}
	if !token.Valid || token.String == "" {
		return "", nil
	}
	if !encrypted {
		return token.String, nil
	}
	if s.Encryptor == nil {
		return "", fmt.Errorf("token for channel %s is encrypted but ENCRYPTION_KEY is not configured", channelID)
	}
	plain, err := s.Encryptor.DecryptString(token.String)
	if err != nil {
		return "", fmt.Errorf("decrypt token for channel %s: %w", channelID, err)
	}
	return plain, nil
}

// SetUserToken stores a channel's user token, encrypting it when an
// Encryptor is configured, and clears the invalid flag.
func (s *ChannelStore) SetUserToken(ctx context.Context, channelID, token string) error {
	encrypted := false
	toStore := token
	if s.Encryptor != nil && token != "" {
		ct, err := s.Encryptor.EncryptString(token)
		if err != nil {
			return fmt.Errorf("encrypt token: %w", err)
		}
		toStore = ct
		encrypted = true
	}
	_, err := s.DB.ExecContext(ctx,
		`UPDATE channels SET user_token = $1, token_encrypted = $2, invalid_token = FALSE, updated_at = NOW()
		 WHERE room_id = $3`, toStore, encrypted, channelID)
	if err != nil {
		return fmt.Errorf("store token for channel %s: %w", channelID, err)
	}
	return nil
}

// MarkTokenInvalid flags a channel whose user token failed validation.
func (s *ChannelStore) MarkTokenInvalid(ctx context.Context, channelID string) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE channels SET invalid_token = TRUE, updated_at = NOW() WHERE room_id = $1`, channelID)
	if err != nil {
		return fmt.Errorf("mark token invalid for channel %s: %w", channelID, err)
	}
	return nil
}

// SetRewardID records the quiz reward created for a channel.
func (s *ChannelStore) SetRewardID(ctx context.Context, channelID, rewardID string) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE channels SET custom_reward_id = $1, updated_at = NOW() WHERE room_id = $2`, rewardID, channelID)
	if err != nil {
		return fmt.Errorf("store reward id for channel %s: %w", channelID, err)
	}
	return nil
}
