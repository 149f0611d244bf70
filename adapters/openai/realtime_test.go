package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/hirewise/server/domain/repositories"
	"github.com/hirewise/server/internal/realtime"
)

var (
	_ repositories.RealtimeSessions = &RealtimeClient{}
	_ repositories.Signaler         = &RealtimeClient{}
	_ repositories.LanguageModel    = &ChatModel{}
)

func TestRealtimeClient_CreateSession(t *testing.T) {
	var got createSessionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/realtime/sessions" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("unexpected authorization %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("invalid body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"sess_1","model":"gpt-4o-realtime-preview-2024-12-17","client_secret":{"value":"ek_abc","expires_at":1700000000}}`)
	}))
	defer server.Close()

	client := NewRealtimeClient("sk-test", server.URL+"/v1", realtime.DefaultModel, zap.NewNop())
	session, err := client.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	if session.ClientSecret != "ek_abc" || session.ExpiresAt != 1700000000 {
		t.Errorf("unexpected session %+v", session)
	}
	if session.Model != realtime.DefaultModel {
		t.Errorf("model = %q", session.Model)
	}
	if len(session.Payload) == 0 {
		t.Error("expected vendor payload to be kept")
	}

	if got.Voice != "verse" || got.Model != realtime.DefaultModel {
		t.Errorf("unexpected request body %+v", got)
	}
	if len(got.Modalities) != 2 || got.Modalities[0] != "audio" || got.Modalities[1] != "text" {
		t.Errorf("unexpected modalities %v", got.Modalities)
	}
}

func TestRealtimeClient_CreateSessionErrors(t *testing.T) {
	t.Run("missing api key", func(t *testing.T) {
		client := NewRealtimeClient("  ", "", realtime.DefaultModel, zap.NewNop())
		if _, err := client.CreateSession(context.Background()); !errors.Is(err, repositories.ErrMissingAPIKey) {
			t.Errorf("error = %v, want ErrMissingAPIKey", err)
		}
	})

	t.Run("vendor failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"error":{"message":"bad model"}}`)
		}))
		defer server.Close()

		client := NewRealtimeClient("sk-test", server.URL, "nope", zap.NewNop())
		_, err := client.CreateSession(context.Background())

		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("error = %v, want APIError", err)
		}
		if apiErr.StatusCode != http.StatusBadRequest || apiErr.Body == "" {
			t.Errorf("unexpected APIError %+v", apiErr)
		}
	})

	t.Run("unauthorized", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		client := NewRealtimeClient("sk-bad", server.URL, "m", zap.NewNop())
		if _, err := client.CreateSession(context.Background()); !errors.Is(err, repositories.ErrInvalidAPIKey) {
			t.Errorf("error = %v, want ErrInvalidAPIKey", err)
		}
	})
}

func TestRealtimeClient_ExchangeSDP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/realtime" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("model") != "gpt-4o-realtime-preview-2024-12-17" {
			t.Errorf("unexpected model %q", r.URL.Query().Get("model"))
		}
		if r.Header.Get("Content-Type") != "application/sdp" {
			t.Errorf("unexpected content type %q", r.Header.Get("Content-Type"))
		}
		if r.Header.Get("Authorization") != "Bearer ek_abc" {
			t.Errorf("unexpected authorization %q", r.Header.Get("Authorization"))
		}
		offer, _ := io.ReadAll(r.Body)
		if string(offer) != "v=0 offer" {
			t.Errorf("unexpected offer %q", offer)
		}
		w.Header().Set("Content-Type", "application/sdp")
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, "v=0 answer")
	}))
	defer server.Close()

	client := NewRealtimeClient("", server.URL+"/v1", "", zap.NewNop())
	answer, err := client.ExchangeSDP(context.Background(), "gpt-4o-realtime-preview-2024-12-17", "ek_abc", "v=0 offer")
	if err != nil {
		t.Fatalf("ExchangeSDP() error = %v", err)
	}
	if answer != "v=0 answer" {
		t.Errorf("answer = %q", answer)
	}
}

func TestRealtimeClient_ExchangeSDPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, "invalid offer")
	}))
	defer server.Close()

	client := NewRealtimeClient("", server.URL, "m", zap.NewNop())
	if _, err := client.ExchangeSDP(context.Background(), "m", "ek", "garbage"); err == nil {
		t.Error("expected error for non-2xx answer")
	}
}
