package quiz

import "errors"

var (
	// ErrRoundActive is returned when a round start is requested while a
	// question is already in flight; the request is rejected, not queued.
	ErrRoundActive = errors.New("a round is already active")

	// ErrNoQuestion is returned when the corpus holds no eligible (text
	// only) question, or a selection raced with a shrinking corpus.
	ErrNoQuestion = errors.New("no eligible question available")

	// ErrNotEligible is returned when an explicitly requested question has
	// an associated image and cannot be asked in chat.
	ErrNotEligible = errors.New("question has an associated image")

	// ErrChannelNotConfigured is returned when no channel row exists for a
	// room id; the registry does not cache a session in that case.
	ErrChannelNotConfigured = errors.New("channel not configured")
)
