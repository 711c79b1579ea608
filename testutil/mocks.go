package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// MockTwitchServer creates a test server that mocks Twitch Helix and OAuth
// API responses.
type MockTwitchServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc
}

// NewMockTwitchServer creates a new mock Twitch API server.
func NewMockTwitchServer(t *testing.T) *MockTwitchServer {
	t.Helper()
	m := &MockTwitchServer{
		Handlers: make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path
		if handler, ok := m.Handlers[key]; ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// MockUsersResponse adds a handler for the /helix/users endpoint.
func (m *MockTwitchServer) MockUsersResponse(users []map[string]string) {
	m.Handlers["/helix/users"] = func(w http.ResponseWriter, r *http.Request) {
		response := map[string]interface{}{
			"data": users,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response) //nolint:errcheck // test mock response
	}
}

// MockValidateResponse adds a handler for the /oauth2/validate endpoint.
// status 200 means valid, 401 means invalid.
func (m *MockTwitchServer) MockValidateResponse(status int) {
	m.Handlers["/oauth2/validate"] = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		if status == http.StatusOK {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{ //nolint:errcheck // test mock response
				"client_id": "testclient",
				"login":     "testlogin",
			})
		}
	}
}

// MockRewardsResponse adds a handler for the custom rewards endpoint,
// returning the given reward id on creation or listing.
func (m *MockTwitchServer) MockRewardsResponse(rewardID string) {
	m.Handlers["/helix/channel_points/custom_rewards"] = func(w http.ResponseWriter, r *http.Request) {
		response := map[string]interface{}{
			"data": []map[string]string{
				{"id": rewardID},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response) //nolint:errcheck // test mock response
	}
}

// MockRedemptionsResponse adds a handler for the redemptions endpoint. GET
// returns the given redemption ids as UNFULFILLED; PATCH records the
// fulfilled ids into fulfilled.
func (m *MockTwitchServer) MockRedemptionsResponse(redemptionIDs []string, fulfilled *[]string) {
	m.Handlers["/helix/channel_points/custom_rewards/redemptions"] = func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPatch {
			if fulfilled != nil {
				*fulfilled = append(*fulfilled, r.URL.Query().Get("id"))
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": []map[string]string{}}) //nolint:errcheck // test mock response
			return
		}
		data := make([]map[string]string, 0, len(redemptionIDs))
		for _, id := range redemptionIDs {
			data = append(data, map[string]string{"id": id, "status": "UNFULFILLED"})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": data}) //nolint:errcheck // test mock response
	}
}
