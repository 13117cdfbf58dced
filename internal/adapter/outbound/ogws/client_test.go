package ogws

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/protexis/ogx-gateway/internal/domain/auth"
	"github.com/protexis/ogx-gateway/pkg/ogx"
)

// memoryTokenStore is an in-memory TokenStore for tests.
type memoryTokenStore struct {
	mu     sync.Mutex
	record *auth.TokenRecord
	saves  int
}

func (s *memoryTokenStore) Load() (*auth.TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record, nil
}

func (s *memoryTokenStore) Save(record *auth.TokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *record
	s.record = &copied
	s.saves++
	return nil
}

type fakeOGWS struct {
	mu          sync.Mutex
	tokenCalls  int
	submitCalls int
	nextToken   string
	failSubmit  bool
}

func (f *fakeOGWS) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/token", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.tokenCalls++
		if err := r.ParseForm(); err != nil ||
			r.PostForm.Get("grant_type") != "client_credentials" ||
			r.PostForm.Get("client_id") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		token := f.nextToken
		if token == "" {
			token = "tok-1"
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": token,
			"token_type":   "bearer",
			"expires_in":   7200,
		})
	})
	mux.HandleFunc("POST /submit/messages", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.submitCalls++
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if f.failSubmit {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, "maintenance window")
			return
		}
		body, _ := io.ReadAll(r.Body)
		var req struct {
			DestinationID string          `json:"DestinationID"`
			Payload       json.RawMessage `json:"Payload"`
		}
		if err := json.Unmarshal(body, &req); err != nil || req.DestinationID == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"message_id": "ogws-42"})
	})
	mux.HandleFunc("GET /messages/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]int{"state": 1})
	})
	return mux
}

func testClient(t *testing.T, fake *fakeOGWS, store TokenStore) *Client {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(srv.URL, "client-1", "secret", store, logger)
}

func TestClient_GetValidToken(t *testing.T) {
	t.Parallel()
	fake := &fakeOGWS{}
	store := &memoryTokenStore{}
	c := testClient(t, fake, store)
	ctx := context.Background()

	token, err := c.GetValidToken(ctx, false)
	if err != nil {
		t.Fatalf("GetValidToken: %v", err)
	}
	if token != "tok-1" {
		t.Errorf("token = %q, want tok-1", token)
	}
	if store.saves != 1 {
		t.Errorf("token should be persisted once, saves = %d", store.saves)
	}

	// A healthy token is reused, not re-acquired.
	if _, err := c.GetValidToken(ctx, false); err != nil {
		t.Fatalf("second GetValidToken: %v", err)
	}
	if fake.tokenCalls != 1 {
		t.Errorf("tokenCalls = %d, want 1", fake.tokenCalls)
	}

	// forceRefresh discards the current token.
	fake.nextToken = "tok-2"
	token, err = c.GetValidToken(ctx, true)
	if err != nil {
		t.Fatalf("forced GetValidToken: %v", err)
	}
	if token != "tok-2" {
		t.Errorf("token = %q, want tok-2", token)
	}
	if fake.tokenCalls != 2 {
		t.Errorf("tokenCalls = %d, want 2", fake.tokenCalls)
	}
}

func TestClient_ReusesPersistedToken(t *testing.T) {
	t.Parallel()
	fake := &fakeOGWS{}
	now := time.Now().UTC()
	store := &memoryTokenStore{record: &auth.TokenRecord{
		Token:     "persisted-token",
		CreatedAt: now,
		ExpiresAt: now.Add(6 * time.Hour),
	}}
	c := testClient(t, fake, store)

	token, err := c.GetValidToken(context.Background(), false)
	if err != nil {
		t.Fatalf("GetValidToken: %v", err)
	}
	if token != "persisted-token" {
		t.Errorf("token = %q, want persisted-token", token)
	}
	if fake.tokenCalls != 0 {
		t.Errorf("no acquisition expected, tokenCalls = %d", fake.tokenCalls)
	}
}

func TestClient_RefreshesStaleToken(t *testing.T) {
	t.Parallel()
	fake := &fakeOGWS{}
	now := time.Now().UTC()
	// Persisted token is within the minimum-TTL window.
	store := &memoryTokenStore{record: &auth.TokenRecord{
		Token:     "stale-token",
		CreatedAt: now.Add(-time.Hour),
		ExpiresAt: now.Add(auth.MinTokenTTL / 2),
	}}
	c := testClient(t, fake, store)

	token, err := c.GetValidToken(context.Background(), false)
	if err != nil {
		t.Fatalf("GetValidToken: %v", err)
	}
	if token != "tok-1" {
		t.Errorf("token = %q, want fresh tok-1", token)
	}
	if fake.tokenCalls != 1 {
		t.Errorf("tokenCalls = %d, want 1", fake.tokenCalls)
	}
}

func TestClient_GetAuthHeader(t *testing.T) {
	t.Parallel()
	c := testClient(t, &fakeOGWS{}, &memoryTokenStore{})

	h, err := c.GetAuthHeader(context.Background())
	if err != nil {
		t.Fatalf("GetAuthHeader: %v", err)
	}
	if got := h.Get("Authorization"); got != "Bearer tok-1" {
		t.Errorf("Authorization = %q, want %q", got, "Bearer tok-1")
	}
}

func TestClient_ValidateToken(t *testing.T) {
	t.Parallel()
	c := testClient(t, &fakeOGWS{}, &memoryTokenStore{})
	ctx := context.Background()

	h, err := c.GetAuthHeader(ctx)
	if err != nil {
		t.Fatalf("GetAuthHeader: %v", err)
	}
	if !c.ValidateToken(h) {
		t.Error("current token should validate")
	}

	wrong := make(http.Header)
	wrong.Set("Authorization", "Bearer forged")
	if c.ValidateToken(wrong) {
		t.Error("forged token must not validate")
	}

	empty := NewClient("http://unused", "id", "secret", &memoryTokenStore{},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	if empty.ValidateToken(h) {
		t.Error("client without a token must not validate anything")
	}
}

func TestClient_SubmitMessage(t *testing.T) {
	t.Parallel()
	fake := &fakeOGWS{}
	c := testClient(t, fake, &memoryTokenStore{})

	id, err := c.SubmitMessage(context.Background(), "terminal-01",
		[]byte(`{"Name":"m","SIN":16,"MIN":1,"Fields":[]}`))
	if err != nil {
		t.Fatalf("SubmitMessage: %v", err)
	}
	if id != "ogws-42" {
		t.Errorf("message ID = %q, want ogws-42", id)
	}
}

func TestClient_SubmitMessage_UpstreamError(t *testing.T) {
	t.Parallel()
	fake := &fakeOGWS{failSubmit: true}
	c := testClient(t, fake, &memoryTokenStore{})

	_, err := c.SubmitMessage(context.Background(), "terminal-01", []byte(`{}`))
	if err == nil {
		t.Fatal("expected upstream error")
	}
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UpstreamError, got %T: %v", err, err)
	}
	if ue.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d, want 503", ue.StatusCode)
	}
	if ue.Body != "maintenance window" {
		t.Errorf("Body = %q", ue.Body)
	}
}

func TestClient_MessageStatus(t *testing.T) {
	t.Parallel()
	c := testClient(t, &fakeOGWS{}, &memoryTokenStore{})

	state, err := c.MessageStatus(context.Background(), "ogws-42")
	if err != nil {
		t.Fatalf("MessageStatus: %v", err)
	}
	if state != ogx.StateReceived {
		t.Errorf("state = %v, want %v", state, ogx.StateReceived)
	}
}
