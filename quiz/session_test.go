package quiz

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestSession(questions []*Question) (*Session, *memScoreStore, *memNotifier) {
	scores := newMemScoreStore()
	notifier := &memNotifier{}
	s := NewSession(
		Channel{ID: "123", Name: "testchan", Prefix: "!"},
		&memQuestionStore{questions: questions},
		scores,
		notifier,
	)
	return s, scores, notifier
}

func TestStartRoundAnnouncesPrompt(t *testing.T) {
	s, _, notifier := newTestSession([]*Question{
		{ID: 1, Title: "Capitale de la France", Points: 10, AnswerGroups: []string{"paris"}},
	})
	if err := s.StartRound(context.Background(), time.Minute, Selector{}); err != nil {
		t.Fatalf("StartRound: %v", err)
	}
	if _, active := s.Active(); !active {
		t.Errorf("session should be active after StartRound")
	}
	msgs := notifier.all()
	if len(msgs) != 1 || !strings.Contains(msgs[0], "Capitale de la France (10 point(s))") {
		t.Errorf("prompt announcement missing, got %v", msgs)
	}
}

func TestStartRoundRejectedWhileActive(t *testing.T) {
	s, _, notifier := newTestSession([]*Question{{ID: 1, Title: "q", Points: 1, AnswerGroups: []string{"a"}}})
	if err := s.StartRound(context.Background(), time.Minute, Selector{}); err != nil {
		t.Fatalf("StartRound: %v", err)
	}
	err := s.StartRound(context.Background(), time.Minute, Selector{})
	if !errors.Is(err, ErrRoundActive) {
		t.Fatalf("second start should report ErrRoundActive, got %v", err)
	}
	msgs := notifier.all()
	if len(msgs) != 2 || !strings.Contains(msgs[1], "déjà en cours") {
		t.Errorf("busy notice missing, got %v", msgs)
	}
}

func TestStartRoundConcurrentYieldsOneSuccess(t *testing.T) {
	s, _, _ := newTestSession([]*Question{{ID: 1, Title: "q", Points: 1, AnswerGroups: []string{"a"}}})
	const n = 16
	var wg sync.WaitGroup
	results := make(chan error, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.StartRound(context.Background(), time.Minute, Selector{})
		}()
	}
	wg.Wait()
	close(results)
	successes := 0
	for err := range results {
		if err == nil {
			successes++
		} else if !errors.Is(err, ErrRoundActive) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Errorf("successes = %d, want exactly 1", successes)
	}
}

func TestStartRoundNoQuestionAvailable(t *testing.T) {
	s, _, notifier := newTestSession(nil)
	err := s.StartRound(context.Background(), time.Minute, Selector{})
	if !errors.Is(err, ErrNoQuestion) {
		t.Fatalf("expected ErrNoQuestion, got %v", err)
	}
	if _, active := s.Active(); active {
		t.Errorf("session must stay idle after a failed start")
	}
	msgs := notifier.all()
	if len(msgs) != 1 || !strings.Contains(msgs[0], "Aucune question") {
		t.Errorf("failure notice missing, got %v", msgs)
	}
	// The channel is not stuck: a later start with questions works.
}

func TestWrongGuessIsSilentAndKeepsRoundActive(t *testing.T) {
	s, scores, notifier := newTestSession([]*Question{
		{ID: 1, Title: "Capitale de la France", Points: 10, AnswerGroups: []string{"paris"}},
	})
	if err := s.StartRound(context.Background(), time.Minute, Selector{}); err != nil {
		t.Fatalf("StartRound: %v", err)
	}
	before := len(notifier.all())
	if err := s.SubmitGuess(context.Background(), "u1", "alice", "pariss"); err != nil {
		t.Fatalf("SubmitGuess: %v", err)
	}
	if _, active := s.Active(); !active {
		t.Errorf("wrong guess must not resolve the round")
	}
	if got := len(notifier.all()); got != before {
		t.Errorf("wrong guess must produce no chat feedback")
	}
	if scores.participationCount() != 0 {
		t.Errorf("wrong guess must not write a participation")
	}
}

func TestCorrectGuessWinsRound(t *testing.T) {
	s, scores, notifier := newTestSession([]*Question{
		{ID: 1, Title: "Capitale de la France", Points: 10, AnswerGroups: []string{"paris"}},
	})
	if err := s.StartRound(context.Background(), time.Minute, Selector{}); err != nil {
		t.Fatalf("StartRound: %v", err)
	}
	if err := s.SubmitGuess(context.Background(), "u1", "alice", "Paris"); err != nil {
		t.Fatalf("SubmitGuess: %v", err)
	}
	if _, active := s.Active(); active {
		t.Errorf("correct guess must return session to idle")
	}
	if got := scores.score("123", "u1"); got != 10 {
		t.Errorf("winner score = %d, want 10", got)
	}
	if got := scores.participationCount(); got != 1 {
		t.Errorf("participations = %d, want 1", got)
	}
	msgs := notifier.all()
	last := msgs[len(msgs)-1]
	if !strings.Contains(last, "@alice") || !strings.Contains(last, "10 point(s)") {
		t.Errorf("winner announcement missing, got %q", last)
	}
}

func TestConcurrentCorrectGuessesSingleWinner(t *testing.T) {
	s, scores, _ := newTestSession([]*Question{
		{ID: 1, Title: "q", Points: 10, AnswerGroups: []string{"paris"}},
	})
	if err := s.StartRound(context.Background(), time.Minute, Selector{}); err != nil {
		t.Fatalf("StartRound: %v", err)
	}
	var wg sync.WaitGroup
	users := []string{"u1", "u2", "u3", "u4"}
	for _, u := range users {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.SubmitGuess(context.Background(), u, u, "paris")
		}()
	}
	wg.Wait()
	if got := scores.participationCount(); got != 1 {
		t.Errorf("participations = %d, want exactly 1", got)
	}
	winners := 0
	for _, u := range users {
		if scores.score("123", u) > 0 {
			winners++
		}
	}
	if winners != 1 {
		t.Errorf("winners = %d, want exactly 1", winners)
	}
}

func TestDeadlineFinalizesTimeout(t *testing.T) {
	s, scores, notifier := newTestSession([]*Question{
		{ID: 1, Title: "q", Points: 10, AnswerGroups: []string{"paris"}},
	})
	if err := s.StartRound(context.Background(), 50*time.Millisecond, Selector{}); err != nil {
		t.Fatalf("StartRound: %v", err)
	}
	deadline := time.After(2 * time.Second)
	for {
		if _, active := s.Active(); !active {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("round did not time out")
		case <-time.After(10 * time.Millisecond):
		}
	}
	// Finalize runs after the state flips; give it a moment.
	time.Sleep(50 * time.Millisecond)
	if got := scores.participationCount(); got != 1 {
		t.Errorf("participations = %d, want 1", got)
	}
	if len(scores.scores) != 0 {
		t.Errorf("timeout must not award points")
	}
	msgs := notifier.all()
	if !strings.Contains(msgs[len(msgs)-1], "Personne n'a trouvé") {
		t.Errorf("timeout announcement missing, got %v", msgs)
	}
}

func TestLateDeadlineAfterWinIsNoOp(t *testing.T) {
	s, scores, _ := newTestSession([]*Question{
		{ID: 1, Title: "q", Points: 10, AnswerGroups: []string{"paris"}},
	})
	if err := s.StartRound(context.Background(), time.Minute, Selector{}); err != nil {
		t.Fatalf("StartRound: %v", err)
	}
	if err := s.SubmitGuess(context.Background(), "u1", "alice", "paris"); err != nil {
		t.Fatalf("SubmitGuess: %v", err)
	}
	// Simulate the timer firing late for the resolved round.
	s.deadline(1)
	time.Sleep(20 * time.Millisecond)
	if got := scores.participationCount(); got != 1 {
		t.Errorf("late deadline must not double-finalize, participations = %d", got)
	}
}

func TestStaleDeadlineFromPreviousRoundIsNoOp(t *testing.T) {
	s, scores, _ := newTestSession([]*Question{
		{ID: 1, Title: "q", Points: 10, AnswerGroups: []string{"paris"}},
	})
	if err := s.StartRound(context.Background(), time.Minute, Selector{}); err != nil {
		t.Fatalf("StartRound: %v", err)
	}
	if err := s.SubmitGuess(context.Background(), "u1", "alice", "paris"); err != nil {
		t.Fatalf("SubmitGuess: %v", err)
	}
	if err := s.StartRound(context.Background(), time.Minute, Selector{}); err != nil {
		t.Fatalf("second StartRound: %v", err)
	}
	// A stale timer from round 1 must not resolve round 2.
	s.deadline(1)
	if _, active := s.Active(); !active {
		t.Errorf("stale deadline resolved an unrelated round")
	}
	if got := scores.participationCount(); got != 1 {
		t.Errorf("participations = %d, want 1", got)
	}
}

func TestFinalizeFailureStillReturnsToIdle(t *testing.T) {
	s, scores, _ := newTestSession([]*Question{
		{ID: 1, Title: "q", Points: 10, AnswerGroups: []string{"paris"}},
	})
	if err := s.StartRound(context.Background(), time.Minute, Selector{}); err != nil {
		t.Fatalf("StartRound: %v", err)
	}
	scores.mu.Lock()
	scores.err = errors.New("store down")
	scores.mu.Unlock()
	err := s.SubmitGuess(context.Background(), "u1", "alice", "paris")
	if err == nil {
		t.Errorf("store failure during finalize must surface")
	}
	if _, active := s.Active(); active {
		t.Errorf("session must fail open to idle")
	}
}

func TestScenarioCapitaleDeLaFrance(t *testing.T) {
	s, scores, _ := newTestSession([]*Question{
		{ID: 1, Title: "Capitale de la France", Points: 10, AnswerGroups: []string{"paris"}},
	})
	if err := s.StartRound(context.Background(), time.Minute, Selector{}); err != nil {
		t.Fatalf("StartRound: %v", err)
	}
	if err := s.SubmitGuess(context.Background(), "userA", "userA", "pariss"); err != nil {
		t.Fatalf("SubmitGuess: %v", err)
	}
	if _, active := s.Active(); !active {
		t.Fatalf("session should still be active after a near-miss")
	}
	if err := s.SubmitGuess(context.Background(), "userA", "userA", "Paris"); err != nil {
		t.Fatalf("SubmitGuess: %v", err)
	}
	if got := scores.score("123", "userA"); got != 10 {
		t.Errorf("score = %d, want 10", got)
	}
	if _, active := s.Active(); active {
		t.Errorf("session should be idle after the win")
	}
}
