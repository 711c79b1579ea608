package quiz

import (
	"context"
	"sync"
)

// In-memory collaborator fakes shared by the session and registry tests.

type memQuestionStore struct {
	mu        sync.Mutex
	questions []*Question
	ineligble map[int64]bool
	err       error
}

func (m *memQuestionStore) CountEligible(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	return len(m.questions), nil
}

func (m *memQuestionStore) QuestionByID(ctx context.Context, id int64) (*Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.ineligble[id] {
		return nil, ErrNotEligible
	}
	for _, q := range m.questions {
		if q.ID == id {
			return q, nil
		}
	}
	return nil, ErrNoQuestion
}

func (m *memQuestionStore) QuestionAtOffset(ctx context.Context, offset int) (*Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if offset < 0 || offset >= len(m.questions) {
		return nil, ErrNoQuestion
	}
	return m.questions[offset], nil
}

type memScoreStore struct {
	mu             sync.Mutex
	participations []Participation
	scores         map[string]int // key: channelID + "/" + userID
	err            error
}

func newMemScoreStore() *memScoreStore {
	return &memScoreStore{scores: make(map[string]int)}
}

func (m *memScoreStore) RecordParticipation(ctx context.Context, p Participation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.participations = append(m.participations, p)
	return nil
}

func (m *memScoreStore) Score(ctx context.Context, channelID, userID string) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, false, m.err
	}
	pts, ok := m.scores[channelID+"/"+userID]
	return pts, ok, nil
}

func (m *memScoreStore) UpsertScore(ctx context.Context, channelID, userID string, points int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.scores[channelID+"/"+userID] = points
	return nil
}

func (m *memScoreStore) ScoresDesc(ctx context.Context, channelID string) ([]ScoreEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ScoreEntry
	for key, pts := range m.scores {
		out = append(out, ScoreEntry{UserID: key, Points: pts})
	}
	return out, nil
}

func (m *memScoreStore) participationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.participations)
}

func (m *memScoreStore) score(channelID, userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scores[channelID+"/"+userID]
}

type memNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (m *memNotifier) Announce(channel, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, text)
}

func (m *memNotifier) all() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.messages...)
}

type memChannelStore struct {
	mu       sync.Mutex
	channels map[string]Channel
	loads    int
}

func (m *memChannelStore) ChannelConfig(ctx context.Context, channelID string) (Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	ch, ok := m.channels[channelID]
	if !ok {
		return Channel{}, ErrChannelNotConfigured
	}
	return ch, nil
}
