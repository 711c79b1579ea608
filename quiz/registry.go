package quiz

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ChannelStore loads channel configuration rows.
type ChannelStore interface {
	// ChannelConfig returns ErrChannelNotConfigured when no row exists for
	// the room id.
	ChannelConfig(ctx context.Context, channelID string) (Channel, error)
}

// Registry is the process-wide table of channel sessions, keyed by room id.
// Sessions are created lazily on the first event referencing a channel and
// live for the process lifetime. Concurrent lookups of the same unknown
// channel construct exactly one session; failed lookups are not cached.
type Registry struct {
	channels  ChannelStore
	questions QuestionStore
	scores    ScoreStore
	notifier  Notifier

	mu       sync.Mutex
	sessions map[string]*Session
	group    singleflight.Group
}

func NewRegistry(channels ChannelStore, questions QuestionStore, scores ScoreStore, notifier Notifier) *Registry {
	return &Registry{
		channels:  channels,
		questions: questions,
		scores:    scores,
		notifier:  notifier,
		sessions:  make(map[string]*Session),
	}
}

// Session returns the cached session for a channel, constructing it from the
// channel store on first use.
func (r *Registry) Session(ctx context.Context, channelID string) (*Session, error) {
	r.mu.Lock()
	if s, ok := r.sessions[channelID]; ok {
		r.mu.Unlock()
		return s, nil
	}
	r.mu.Unlock()

	v, err, _ := r.group.Do(channelID, func() (any, error) {
		ch, err := r.channels.ChannelConfig(ctx, channelID)
		if err != nil {
			return nil, fmt.Errorf("load channel %s: %w", channelID, err)
		}
		s := NewSession(ch, r.questions, r.scores, r.notifier)
		r.mu.Lock()
		r.sessions[channelID] = s
		r.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

// Sessions returns a snapshot of all cached sessions.
func (r *Registry) Sessions() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// OnGuess forwards a chat message to the channel's active round, if any.
func (r *Registry) OnGuess(ctx context.Context, channelID, userID, userName, text string) error {
	s, err := r.Session(ctx, channelID)
	if err != nil {
		return err
	}
	return s.SubmitGuess(ctx, userID, userName, text)
}

// OnStartRound starts a round on a channel. durationSeconds <= 0 selects the
// default round duration.
func (r *Registry) OnStartRound(ctx context.Context, channelID string, durationSeconds int, sel Selector) error {
	s, err := r.Session(ctx, channelID)
	if err != nil {
		return err
	}
	return s.StartRound(ctx, time.Duration(durationSeconds)*time.Second, sel)
}

// OnRewardRedeemed starts a round when the redeemed reward matches the
// channel's configured quiz reward. Other rewards are ignored, as are
// redemptions on channels without API capability, since rewards only exist
// through the broadcaster's token.
func (r *Registry) OnRewardRedeemed(ctx context.Context, channelID, rewardID string) error {
	s, err := r.Session(ctx, channelID)
	if err != nil {
		return err
	}
	ch := s.Channel()
	if !ch.HasAPI || ch.RewardID == "" || ch.RewardID != rewardID {
		return nil
	}
	return s.StartRound(ctx, DefaultRoundDuration, Selector{})
}
