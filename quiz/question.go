package quiz

import (
	"context"
	"fmt"
	"math/rand/v2"
)

// Question is one active quiz question with its answer key.
type Question struct {
	ID           int64
	Title        string
	Points       int
	AnswerGroups []string
}

// CheckAnswer reports whether guess satisfies any of this question's answer
// groups.
func (q *Question) CheckAnswer(guess string) bool {
	return Matches(q.AnswerGroups, guess)
}

// Prompt returns the chat announcement for this question.
func (q *Question) Prompt() string {
	return fmt.Sprintf("%s (%d point(s))", q.Title, q.Points)
}

// QuestionStore supplies questions from the corpus. Eligible means the
// question has no associated image and can be asked in text chat.
type QuestionStore interface {
	CountEligible(ctx context.Context) (int, error)
	// QuestionByID returns ErrNoQuestion if the id is unknown and
	// ErrNotEligible if the question has an associated image.
	QuestionByID(ctx context.Context, id int64) (*Question, error)
	// QuestionAtOffset returns the eligible question at the given offset in
	// a stable ordering, or ErrNoQuestion if the offset is out of range.
	QuestionAtOffset(ctx context.Context, offset int) (*Question, error)
}

// Selector constrains question selection. The zero value selects uniformly
// at random among eligible questions.
type Selector struct {
	ByID int64
}

// SelectQuestion picks a question per the selector: the exact id when given,
// otherwise a uniformly random eligible question.
func SelectQuestion(ctx context.Context, store QuestionStore, sel Selector) (*Question, error) {
	if sel.ByID != 0 {
		return store.QuestionByID(ctx, sel.ByID)
	}
	n, err := store.CountEligible(ctx)
	if err != nil {
		return nil, fmt.Errorf("count eligible questions: %w", err)
	}
	if n == 0 {
		return nil, ErrNoQuestion
	}
	return store.QuestionAtOffset(ctx, rand.IntN(n))
}

// Participation is one append-only round record. UserID and Answer are empty
// when the round timed out.
type Participation struct {
	ChannelID  string
	QuestionID int64
	UserID     string
	Answer     string
	Points     int
}

// ScoreEntry is one row of a channel's score listing.
type ScoreEntry struct {
	UserID string
	Points int
}

// ScoreStore persists participations and accumulated scores.
type ScoreStore interface {
	RecordParticipation(ctx context.Context, p Participation) error
	// Score returns the accumulated points for (channel, user) and whether
	// a record exists.
	Score(ctx context.Context, channelID, userID string) (int, bool, error)
	// UpsertScore sets the absolute accumulated points for (channel, user).
	UpsertScore(ctx context.Context, channelID, userID string, points int) error
	// ScoresDesc lists a channel's scores ordered by points descending.
	ScoresDesc(ctx context.Context, channelID string) ([]ScoreEntry, error)
}

// Outcome describes how a round ended. The zero value is a timeout.
type Outcome struct {
	Winner string
	Answer string
}

// Finalize writes the round's participation record and, when a winner is
// set, folds the question's points into the winner's score. The two writes
// are sequential and best effort; a score failure after a recorded
// participation is surfaced, not rolled back. Only one round per channel is
// ever in flight, so the read-modify-write on the score is uncontended
// within a channel.
func (q *Question) Finalize(ctx context.Context, scores ScoreStore, channelID string, out Outcome) error {
	p := Participation{ChannelID: channelID, QuestionID: q.ID, UserID: out.Winner, Answer: out.Answer, Points: q.Points}
	if err := scores.RecordParticipation(ctx, p); err != nil {
		return fmt.Errorf("record participation: %w", err)
	}
	if out.Winner == "" {
		return nil
	}
	current, ok, err := scores.Score(ctx, channelID, out.Winner)
	if err != nil {
		return fmt.Errorf("read score: %w", err)
	}
	total := q.Points
	if ok {
		total += current
	}
	if err := scores.UpsertScore(ctx, channelID, out.Winner, total); err != nil {
		return fmt.Errorf("upsert score: %w", err)
	}
	return nil
}
