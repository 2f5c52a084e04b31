package twitch_client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"twitch_stream_monitor/internal/models"
)

type fakeCreds struct {
	clientID     string
	clientSecret string
}

func (fc fakeCreds) TwitchClientID() string     { return fc.clientID }
func (fc fakeCreds) TwitchClientSecret() string { return fc.clientSecret }

func TestTwitchOAuthGetToken(t *testing.T) {
	tests := []struct {
		name        string
		creds       fakeCreds
		statusCode  int
		response    interface{}
		wantToken   string
		wantErr     bool
		errContains string
	}{
		{
			name:       "successful exchange",
			creds:      fakeCreds{clientID: "id", clientSecret: "secret"},
			statusCode: http.StatusOK,
			response:   map[string]interface{}{"access_token": "tok123", "expires_in": 3600, "token_type": "bearer"},
			wantToken:  "tok123",
		},
		{
			name:        "invalid credentials",
			creds:       fakeCreds{clientID: "id", clientSecret: "wrong"},
			statusCode:  http.StatusBadRequest,
			response:    map[string]interface{}{"status": 400, "message": "invalid client"},
			wantErr:     true,
			errContains: "invalid credentials",
		},
		{
			name:        "missing credentials",
			creds:       fakeCreds{},
			wantErr:     true,
			errContains: "not configured",
		},
		{
			name:        "empty token in response",
			creds:       fakeCreds{clientID: "id", clientSecret: "secret"},
			statusCode:  http.StatusOK,
			response:    map[string]interface{}{},
			wantErr:     true,
			errContains: "no access token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/oauth2/token" {
					t.Errorf("path = %s, want /oauth2/token", r.URL.Path)
				}
				if got := r.URL.Query().Get("grant_type"); got != "client_credentials" {
					t.Errorf("grant_type = %s, want client_credentials", got)
				}

				w.WriteHeader(tt.statusCode)
				_ = jsoniter.NewEncoder(w).Encode(tt.response)
			}))
			defer server.Close()

			client := NewTwitchClientWithHosts(tt.creds, server.URL, server.URL)

			data, err := client.TwitchOAuthGetToken(context.Background())

			if tt.wantErr {
				if err == nil {
					t.Fatalf("TwitchOAuthGetToken() error = nil, want error containing %q", tt.errContains)
				}
				return
			}

			if err != nil {
				t.Fatalf("TwitchOAuthGetToken() unexpected error = %v", err)
			}
			if data.AccessToken != tt.wantToken {
				t.Errorf("AccessToken = %q, want %q", data.AccessToken, tt.wantToken)
			}
		})
	}
}

func TestTwitchOAuthValidateToken_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = jsoniter.NewEncoder(w).Encode(models.ValidateTokenInvalid{Status: 401, Message: "invalid access token"})
	}))
	defer server.Close()

	client := NewTwitchClientWithHosts(fakeCreds{clientID: "id", clientSecret: "secret"}, server.URL, server.URL)

	_, err := client.TwitchOAuthValidateToken(context.Background(), "dead-token")
	if !errors.Is(err, models.ErrUnauthorized) {
		t.Errorf("TwitchOAuthValidateToken() error = %v, want ErrUnauthorized", err)
	}
}

func TestGetStreamsPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Client-Id"); got != "id" {
			t.Errorf("Client-Id header = %q, want %q", got, "id")
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization header = %q, want %q", got, "Bearer tok")
		}
		if got := r.URL.Query()["game_id"]; len(got) != 2 {
			t.Errorf("game_id params = %v, want 2 entries", got)
		}
		if got := r.URL.Query().Get("language"); got != "en" {
			t.Errorf("language param = %q, want en", got)
		}
		if got := r.URL.Query().Get("first"); got != "100" {
			t.Errorf("first param = %q, want 100", got)
		}
		if got := r.URL.Query().Get("after"); got != "cursor-1" {
			t.Errorf("after param = %q, want cursor-1", got)
		}

		_ = jsoniter.NewEncoder(w).Encode(models.Streams{
			StreamInfo: []models.Stream{
				{StreamId: "s1", UserId: "u1", UserName: "alice", ViewerCount: 7},
			},
			Pagination: models.Pagination{Cursor: "cursor-2"},
		})
	}))
	defer server.Close()

	client := NewTwitchClientWithHosts(fakeCreds{clientID: "id", clientSecret: "secret"}, server.URL, server.URL)

	data, err := client.GetStreamsPage(context.Background(), "tok", []string{"509658", "32982"}, []string{"en"}, "cursor-1")
	if err != nil {
		t.Fatalf("GetStreamsPage() error = %v", err)
	}

	if len(data.StreamInfo) != 1 || data.StreamInfo[0].UserName != "alice" {
		t.Errorf("StreamInfo = %+v, want one stream by alice", data.StreamInfo)
	}
	if data.Pagination.Cursor != "cursor-2" {
		t.Errorf("Cursor = %q, want cursor-2", data.Pagination.Cursor)
	}
}

func TestGetStreamsPage_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = jsoniter.NewEncoder(w).Encode(models.GetUserUnauthorized{Error: "Unauthorized", Status: 401, Message: "Invalid OAuth token"})
	}))
	defer server.Close()

	client := NewTwitchClientWithHosts(fakeCreds{clientID: "id", clientSecret: "secret"}, server.URL, server.URL)

	_, err := client.GetStreamsPage(context.Background(), "dead", []string{"509658"}, nil, "")
	if !errors.Is(err, models.ErrUnauthorized) {
		t.Errorf("GetStreamsPage() error = %v, want ErrUnauthorized", err)
	}
}

func TestGetChannelFollowers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("broadcaster_id"); got != "u1" {
			t.Errorf("broadcaster_id = %q, want u1", got)
		}
		if got := r.URL.Query().Get("first"); got != "1" {
			t.Errorf("first = %q, want 1", got)
		}

		_ = jsoniter.NewEncoder(w).Encode(models.GetChannelFollowersResponse{Total: 1234})
	}))
	defer server.Close()

	client := NewTwitchClientWithHosts(fakeCreds{clientID: "id", clientSecret: "secret"}, server.URL, server.URL)

	data, err := client.GetChannelFollowers(context.Background(), "tok", "u1")
	if err != nil {
		t.Fatalf("GetChannelFollowers() error = %v", err)
	}
	if data.Total != 1234 {
		t.Errorf("Total = %d, want 1234", data.Total)
	}
}
