package twitchapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Reward creation defaults, matching the product's historical quiz reward.
const (
	quizRewardTitle           = "Question pour un Quaggan"
	quizRewardCost            = 100
	quizRewardCooldownSeconds = 30 * 60
)

// Redemption is one channel-points redemption of the quiz reward.
type Redemption struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// CreateQuizReward creates the quiz channel-points reward on a broadcaster's
// channel and returns its id. Requires the broadcaster's user token with the
// channel:manage:redemptions scope.
func (c *Client) CreateQuizReward(ctx context.Context, userToken, broadcasterID string) (string, error) {
	q := url.Values{}
	q.Set("broadcaster_id", broadcasterID)
	body := map[string]any{
		"title":                      quizRewardTitle,
		"cost":                       quizRewardCost,
		"is_global_cooldown_enabled": true,
		"global_cooldown_seconds":    quizRewardCooldownSeconds,
	}
	var out struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/helix/channel_points/custom_rewards", userToken, q, body, &out); err != nil {
		return "", err
	}
	if len(out.Data) == 0 {
		return "", fmt.Errorf("reward creation returned no data")
	}
	return out.Data[0].ID, nil
}

// UnfulfilledRedemptions lists pending redemptions of a reward, oldest first.
func (c *Client) UnfulfilledRedemptions(ctx context.Context, userToken, broadcasterID, rewardID string) ([]Redemption, error) {
	q := url.Values{}
	q.Set("broadcaster_id", broadcasterID)
	q.Set("reward_id", rewardID)
	q.Set("status", "UNFULFILLED")
	q.Set("sort", "OLDEST")
	var out struct {
		Data []Redemption `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/helix/channel_points/custom_rewards/redemptions", userToken, q, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// FulfillRedemption marks a redemption as fulfilled so it is not processed
// again.
func (c *Client) FulfillRedemption(ctx context.Context, userToken, broadcasterID, rewardID, redemptionID string) error {
	q := url.Values{}
	q.Set("broadcaster_id", broadcasterID)
	q.Set("reward_id", rewardID)
	q.Set("id", redemptionID)
	body := map[string]string{"status": "FULFILLED"}
	return c.do(ctx, http.MethodPatch, "/helix/channel_points/custom_rewards/redemptions", userToken, q, body, nil)
}
