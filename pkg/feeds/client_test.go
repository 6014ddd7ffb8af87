package feeds_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/itzcole03/A1forBolt-sub001/pkg/feeds"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_Defaults(t *testing.T) {
	client := feeds.NewClient(feeds.ClientOptions{BaseURL: "http://localhost:9000/"})

	assert.NotNil(t, client)
	assert.Equal(t, "http://localhost:9000", client.BaseURL)
	assert.NotNil(t, client.HTTPClient)
	assert.Equal(t, 10*time.Second, client.HTTPClient.Timeout)
}

func TestClient_GetJSON(t *testing.T) {
	tests := []struct {
		name           string
		responseStatus int
		responseBody   string
		expectError    bool
	}{
		{
			name:           "successful fetch",
			responseStatus: http.StatusOK,
			responseBody:   `{"value": 42}`,
			expectError:    false,
		},
		{
			name:           "server error surfaces status",
			responseStatus: http.StatusBadGateway,
			responseBody:   `{"error": "upstream down"}`,
			expectError:    true,
		},
		{
			name:           "malformed body fails decoding",
			responseStatus: http.StatusOK,
			responseBody:   `{"value": `,
			expectError:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/data", r.URL.Path)
				assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.responseStatus)
				_, _ = w.Write([]byte(tt.responseBody))
			}))
			defer server.Close()

			client := feeds.NewClient(feeds.ClientOptions{
				BaseURL: server.URL,
				APIKey:  "secret",
				Timeout: 5 * time.Second,
			})

			var result struct {
				Value int `json:"value"`
			}
			err := client.GetJSON(context.Background(), "/v1/data", nil, &result)

			if tt.expectError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, 42, result.Value)
			}
		})
	}
}

func TestClient_GetJSON_QueryParams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "us", r.URL.Query().Get("region"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer server.Close()

	client := feeds.NewClient(feeds.ClientOptions{BaseURL: server.URL})

	params := url.Values{"region": {"us"}}
	var result map[string]string
	err := client.GetJSON(context.Background(), "/v1/odds", params, &result)

	require.NoError(t, err)
	assert.Equal(t, "ok", result["status"])
}

func TestClient_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := feeds.NewClient(feeds.ClientOptions{BaseURL: server.URL})

	assert.True(t, client.Ping(context.Background(), "/health"))
	assert.False(t, client.Ping(context.Background(), "/missing"))
}

func TestClient_GetJSON_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := feeds.NewClient(feeds.ClientOptions{BaseURL: server.URL})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.GetJSON(ctx, "/v1/data", nil, nil)
	assert.Error(t, err)
}
