package rewards_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/onnwee/quizbot/db"
	"github.com/onnwee/quizbot/quiz"
	"github.com/onnwee/quizbot/rewards"
	"github.com/onnwee/quizbot/testutil"
	"github.com/onnwee/quizbot/twitchapi"
)

type silentNotifier struct{}

func (silentNotifier) Announce(channel, text string) {}

func insertChannel(t *testing.T, store *db.ChannelStore, token, rewardID string) string {
	t.Helper()
	roomID := fmt.Sprintf("rewards-%d", time.Now().UnixNano())
	_, err := store.DB.ExecContext(context.Background(),
		`INSERT INTO channels (room_id, name) VALUES ($1, $2)`, roomID, "chan_"+roomID)
	if err != nil {
		t.Fatalf("insert channel: %v", err)
	}
	if token != "" {
		if err := store.SetUserToken(context.Background(), roomID, token); err != nil {
			t.Fatalf("set token: %v", err)
		}
	}
	if rewardID != "" {
		if err := store.SetRewardID(context.Background(), roomID, rewardID); err != nil {
			t.Fatalf("set reward: %v", err)
		}
	}
	return roomID
}

func findRow(t *testing.T, store *db.ChannelStore, roomID string) db.ChannelRow {
	t.Helper()
	rows, err := store.ListChannels(context.Background())
	if err != nil {
		t.Fatalf("list channels: %v", err)
	}
	for _, r := range rows {
		if r.RoomID == roomID {
			return r
		}
	}
	t.Fatalf("channel %s not found", roomID)
	return db.ChannelRow{}
}

func TestEnsureRewardsCreatesMissingReward(t *testing.T) {
	database := testutil.SetupTestDB(t)
	store := &db.ChannelStore{DB: database}
	roomID := insertChannel(t, store, "user-token", "")

	mock := testutil.NewMockTwitchServer(t)
	mock.MockRewardsResponse("rw-created")
	api := &twitchapi.Client{ClientID: "cid", HelixURL: mock.URL, HTTPClient: mock.Client()}

	rewards.EnsureRewards(context.Background(), store, api)

	if row := findRow(t, store, roomID); row.RewardID != "rw-created" {
		t.Errorf("reward id = %q, want rw-created", row.RewardID)
	}
}

func TestEnsureRewardsSkipsConfiguredChannels(t *testing.T) {
	database := testutil.SetupTestDB(t)
	store := &db.ChannelStore{DB: database}
	roomID := insertChannel(t, store, "user-token", "rw-existing")

	mock := testutil.NewMockTwitchServer(t)
	mock.MockRewardsResponse("rw-other")
	api := &twitchapi.Client{ClientID: "cid", HelixURL: mock.URL, HTTPClient: mock.Client()}

	rewards.EnsureRewards(context.Background(), store, api)

	if row := findRow(t, store, roomID); row.RewardID != "rw-existing" {
		t.Errorf("reward id = %q, want rw-existing untouched", row.RewardID)
	}
}

func TestPollOnceStartsRoundAndFulfils(t *testing.T) {
	database := testutil.SetupTestDB(t)
	store := &db.ChannelStore{DB: database}
	roomID := insertChannel(t, store, "user-token", "rw-quiz")

	ctx := context.Background()
	if _, err := db.InsertQuestion(ctx, database, "Capitale de la France ?", 1, []string{"Paris"}); err != nil {
		t.Fatalf("insert question: %v", err)
	}

	var fulfilled []string
	mock := testutil.NewMockTwitchServer(t)
	mock.MockRedemptionsResponse([]string{"red-1"}, &fulfilled)
	api := &twitchapi.Client{ClientID: "cid", HelixURL: mock.URL, HTTPClient: mock.Client()}

	questions := &db.QuestionStore{DB: database}
	scores := &db.ScoreStore{DB: database}
	registry := quiz.NewRegistry(store, questions, scores, silentNotifier{})

	rewards.PollOnce(ctx, store, registry, api)

	if len(fulfilled) != 1 || fulfilled[0] != "red-1" {
		t.Fatalf("fulfilled = %v, want [red-1]", fulfilled)
	}
	s, err := registry.Session(ctx, roomID)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if _, active := s.Active(); !active {
		t.Errorf("expected an active round after redemption")
	}
}

func TestPollOnceFulfilsEvenWhenRoundActive(t *testing.T) {
	database := testutil.SetupTestDB(t)
	store := &db.ChannelStore{DB: database}
	roomID := insertChannel(t, store, "user-token", "rw-quiz")

	ctx := context.Background()
	if _, err := db.InsertQuestion(ctx, database, "Capitale de l'Italie ?", 1, []string{"Rome"}); err != nil {
		t.Fatalf("insert question: %v", err)
	}

	questions := &db.QuestionStore{DB: database}
	scores := &db.ScoreStore{DB: database}
	registry := quiz.NewRegistry(store, questions, scores, silentNotifier{})
	if err := registry.OnStartRound(ctx, roomID, 0, quiz.Selector{}); err != nil {
		t.Fatalf("start round: %v", err)
	}

	var fulfilled []string
	mock := testutil.NewMockTwitchServer(t)
	mock.MockRedemptionsResponse([]string{"red-2"}, &fulfilled)
	api := &twitchapi.Client{ClientID: "cid", HelixURL: mock.URL, HTTPClient: mock.Client()}

	rewards.PollOnce(ctx, store, registry, api)

	// The redemption is consumed, not queued behind the running round.
	if len(fulfilled) != 1 || fulfilled[0] != "red-2" {
		t.Errorf("fulfilled = %v, want [red-2]", fulfilled)
	}
}
