package quiz

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/onnwee/quizbot/telemetry"
)

// DefaultRoundDuration is how long a question stays open when the caller
// does not specify a duration.
const DefaultRoundDuration = 900 * time.Second

// finalizeTimeout bounds the store writes performed from a deadline timer,
// which has no caller context.
const finalizeTimeout = 10 * time.Second

// Channel is the configuration of one chat room, loaded from the channel
// store when its session is first created.
type Channel struct {
	ID       string
	Name     string
	Prefix   string
	RewardID string
	// HasAPI is set when the channel owner provided a valid user token, so
	// privileged Helix operations (reward management) are available.
	HasAPI bool
}

// Notifier posts announcements to a channel's chat. Announce is fire and
// forget; delivery failures are the transport's to log.
type Notifier interface {
	Announce(channel, text string)
}

// Session is the per-channel round state machine. It owns the channel's
// cooldown tracker and at most one active question at a time. A round is
// resolved exactly once: the first of a correct guess or the deadline timer
// claims it by clearing the round under the session mutex.
type Session struct {
	channel   Channel
	cooldowns *CooldownTracker
	questions QuestionStore
	scores    ScoreStore
	notifier  Notifier

	mu    sync.Mutex
	round *round
	gen   uint64
}

type round struct {
	question  *Question
	timer     *time.Timer
	startedAt time.Time
}

func NewSession(ch Channel, questions QuestionStore, scores ScoreStore, notifier Notifier) *Session {
	return &Session{
		channel:   ch,
		cooldowns: NewCooldownTracker(),
		questions: questions,
		scores:    scores,
		notifier:  notifier,
	}
}

// Channel returns the session's channel configuration.
func (s *Session) Channel() Channel { return s.channel }

// Cooldowns returns the channel's cooldown tracker.
func (s *Session) Cooldowns() *CooldownTracker { return s.cooldowns }

// Active returns the title of the question currently in flight, if any.
func (s *Session) Active() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.round == nil || s.round.question == nil {
		return "", false
	}
	return s.round.question.Title, true
}

// StartRound selects a question, announces it, and arms the deadline timer.
// It returns ErrRoundActive (after notifying the channel) if a round is
// already in flight, and announces a selection failure before returning it.
func (s *Session) StartRound(ctx context.Context, duration time.Duration, sel Selector) error {
	if duration <= 0 {
		duration = DefaultRoundDuration
	}

	s.mu.Lock()
	if s.round != nil {
		title := ""
		if s.round.question != nil {
			title = s.round.question.Title
		}
		s.mu.Unlock()
		s.notifier.Announce(s.channel.Name, fmt.Sprintf("⏳ Une question est déjà en cours : %s", title))
		return ErrRoundActive
	}
	// Reserve the round before the store call so concurrent starts are
	// rejected; guesses arriving before the question is set are ignored.
	s.round = &round{}
	s.mu.Unlock()

	q, err := SelectQuestion(ctx, s.questions, sel)
	if err != nil {
		s.mu.Lock()
		s.round = nil
		s.mu.Unlock()
		s.notifier.Announce(s.channel.Name, "Aucune question n'a été trouvée.")
		return fmt.Errorf("select question: %w", err)
	}

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.round.question = q
	s.round.startedAt = time.Now()
	s.round.timer = time.AfterFunc(duration, func() { s.deadline(gen) })
	s.mu.Unlock()

	telemetry.RoundStarted()
	slog.Info("round started",
		slog.String("channel", s.channel.Name),
		slog.Int64("question_id", q.ID),
		slog.Duration("duration", duration))
	s.notifier.Announce(s.channel.Name, q.Prompt())
	return nil
}

// SubmitGuess checks a guess against the active question. Wrong guesses are
// silent: no state change, no chat feedback. A correct guess claims the
// round, cancels the deadline timer, announces the winner, and finalizes the
// score. The session returns to Idle even if finalization fails, so the
// channel is never stuck; the error is still returned.
func (s *Session) SubmitGuess(ctx context.Context, userID, userName, text string) error {
	s.mu.Lock()
	r := s.round
	if r == nil || r.question == nil {
		s.mu.Unlock()
		return nil
	}
	correct := r.question.CheckAnswer(text)
	telemetry.GuessChecked(correct)
	if !correct {
		s.mu.Unlock()
		return nil
	}
	r.timer.Stop()
	s.round = nil
	s.mu.Unlock()

	telemetry.RoundWon(time.Since(r.startedAt))
	slog.Info("round won",
		slog.String("channel", s.channel.Name),
		slog.Int64("question_id", r.question.ID),
		slog.String("user", userName))
	s.notifier.Announce(s.channel.Name,
		fmt.Sprintf("✅ @%s a trouvé la bonne réponse et a gagné %d point(s) !", userName, r.question.Points))
	if err := r.question.Finalize(ctx, s.scores, s.channel.ID, Outcome{Winner: userID, Answer: text}); err != nil {
		return fmt.Errorf("finalize round: %w", err)
	}
	return nil
}

// deadline fires when a round's timer elapses. The generation check makes a
// stale timer a no-op: it only resolves the round it was armed for, never a
// later one.
func (s *Session) deadline(gen uint64) {
	s.mu.Lock()
	if s.round == nil || s.gen != gen {
		s.mu.Unlock()
		return
	}
	r := s.round
	s.round = nil
	s.mu.Unlock()

	telemetry.RoundTimedOut(time.Since(r.startedAt))
	slog.Info("round timed out",
		slog.String("channel", s.channel.Name),
		slog.Int64("question_id", r.question.ID))
	s.notifier.Announce(s.channel.Name, "❎ Personne n'a trouvé.")

	ctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
	defer cancel()
	if err := r.question.Finalize(ctx, s.scores, s.channel.ID, Outcome{}); err != nil {
		slog.Error("finalize timed-out round",
			slog.String("channel", s.channel.Name),
			slog.Int64("question_id", r.question.ID),
			slog.Any("err", err))
	}
}
