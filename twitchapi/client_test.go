package twitchapi

import (
	"context"
	"net/http"
	"testing"

	"golang.org/x/oauth2"

	"github.com/onnwee/quizbot/testutil"
)

func testClient(m *testutil.MockTwitchServer) *Client {
	return &Client{
		ClientID:  "testclient",
		AppTokens: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "app-token"}),
		HelixURL:  m.URL,
		AuthURL:   m.URL,
	}
}

func TestValidateUserToken(t *testing.T) {
	m := testutil.NewMockTwitchServer(t)
	c := testClient(m)

	m.MockValidateResponse(http.StatusOK)
	ok, err := c.ValidateUserToken(context.Background(), "user-token")
	if err != nil || !ok {
		t.Errorf("valid token: got (%v, %v), want (true, nil)", ok, err)
	}

	m.MockValidateResponse(http.StatusUnauthorized)
	ok, err = c.ValidateUserToken(context.Background(), "user-token")
	if err != nil || ok {
		t.Errorf("rejected token: got (%v, %v), want (false, nil)", ok, err)
	}

	m.MockValidateResponse(http.StatusInternalServerError)
	if _, err := c.ValidateUserToken(context.Background(), "user-token"); err == nil {
		t.Errorf("server error should surface as error")
	}
}

func TestDisplayNames(t *testing.T) {
	m := testutil.NewMockTwitchServer(t)
	c := testClient(m)
	m.MockUsersResponse([]map[string]string{
		{"id": "1", "display_name": "Alice"},
		{"id": "2", "display_name": "Bob"},
	})

	names, err := c.DisplayNames(context.Background(), []string{"1", "2"})
	if err != nil {
		t.Fatalf("DisplayNames: %v", err)
	}
	if names["1"] != "Alice" || names["2"] != "Bob" {
		t.Errorf("unexpected names: %v", names)
	}

	names, err = c.DisplayNames(context.Background(), nil)
	if err != nil || len(names) != 0 {
		t.Errorf("no ids should short-circuit, got (%v, %v)", names, err)
	}
}

func TestCreateQuizReward(t *testing.T) {
	m := testutil.NewMockTwitchServer(t)
	c := testClient(m)
	m.MockRewardsResponse("rw-123")

	id, err := c.CreateQuizReward(context.Background(), "user-token", "456")
	if err != nil {
		t.Fatalf("CreateQuizReward: %v", err)
	}
	if id != "rw-123" {
		t.Errorf("reward id = %q, want rw-123", id)
	}
}

func TestRedemptionsListAndFulfill(t *testing.T) {
	m := testutil.NewMockTwitchServer(t)
	c := testClient(m)
	var fulfilled []string
	m.MockRedemptionsResponse([]string{"red-1", "red-2"}, &fulfilled)

	reds, err := c.UnfulfilledRedemptions(context.Background(), "user-token", "456", "rw-123")
	if err != nil {
		t.Fatalf("UnfulfilledRedemptions: %v", err)
	}
	if len(reds) != 2 || reds[0].ID != "red-1" {
		t.Errorf("unexpected redemptions: %+v", reds)
	}

	if err := c.FulfillRedemption(context.Background(), "user-token", "456", "rw-123", "red-1"); err != nil {
		t.Fatalf("FulfillRedemption: %v", err)
	}
	if len(fulfilled) != 1 || fulfilled[0] != "red-1" {
		t.Errorf("fulfilled = %v, want [red-1]", fulfilled)
	}
}
