package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// mockBluesky is an httptest stand-in for the XRPC session and feed endpoints
type mockBluesky struct {
	server *httptest.Server

	mu          sync.Mutex
	feeds       map[string][]map[string]interface{}
	feedStatus  int
	sessionFail bool
	tokens      int
	lastQuery   map[string]string
	lastAuth    string

	sessionCalls atomic.Int32
	feedCalls    atomic.Int32
}

func newMockBluesky(t *testing.T) *mockBluesky {
	t.Helper()

	m := &mockBluesky{feeds: make(map[string][]map[string]interface{})}
	mux := http.NewServeMux()

	mux.HandleFunc("/xrpc/com.atproto.server.createSession", func(w http.ResponseWriter, r *http.Request) {
		m.sessionCalls.Add(1)

		var body struct {
			Identifier string `json:"identifier"`
			Password   string `json:"password"`
		}
		if r.Method != http.MethodPost || json.NewDecoder(r.Body).Decode(&body) != nil {
			http.Error(w, `{"error":"InvalidRequest"}`, http.StatusBadRequest)
			return
		}

		m.mu.Lock()
		fail := m.sessionFail
		m.tokens++
		token := m.tokens
		m.mu.Unlock()

		if fail || body.Password != "app-password" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"AuthenticationRequired"}`))
			return
		}

		json.NewEncoder(w).Encode(map[string]string{
			"did":        "did:plc:bot",
			"handle":     body.Identifier,
			"accessJwt":  fmt.Sprintf("access-%d", token),
			"refreshJwt": "refresh-token",
		})
	})

	mux.HandleFunc("/xrpc/app.bsky.feed.getAuthorFeed", func(w http.ResponseWriter, r *http.Request) {
		m.feedCalls.Add(1)

		m.mu.Lock()
		m.lastAuth = r.Header.Get("Authorization")
		m.lastQuery = map[string]string{
			"actor": r.URL.Query().Get("actor"),
			"limit": r.URL.Query().Get("limit"),
		}
		status := m.feedStatus
		feed, ok := m.feeds[r.URL.Query().Get("actor")]
		m.mu.Unlock()

		if status != 0 {
			w.WriteHeader(status)
			w.Write([]byte(`{"error":"InternalServerError"}`))
			return
		}
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"InvalidRequest","message":"Profile not found"}`))
			return
		}

		json.NewEncoder(w).Encode(map[string]interface{}{"feed": feed, "cursor": "next"})
	})

	m.server = httptest.NewServer(mux)
	t.Cleanup(m.server.Close)
	return m
}

func (m *mockBluesky) setFeed(actor string, items ...map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feeds[actor] = items
}

func (m *mockBluesky) setFeedStatus(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.feedStatus = status
}

func (m *mockBluesky) setSessionFail(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionFail = fail
}

func (m *mockBluesky) client() *UpstreamClient {
	return NewUpstreamClient(m.server.URL, 5*time.Second)
}

// feedItem builds a feedViewPost; a non-empty reason marks a repost
func feedItem(handle, displayName, text, reason string) map[string]interface{} {
	item := map[string]interface{}{
		"post": map[string]interface{}{
			"uri": "at://did:plc:x/app.bsky.feed.post/1",
			"author": map[string]interface{}{
				"did":         "did:plc:" + handle,
				"handle":      handle,
				"displayName": displayName,
				"avatar":      "https://cdn.example/" + handle + ".jpg",
			},
			"record": map[string]interface{}{
				"$type": "app.bsky.feed.post",
				"text":  text,
			},
		},
	}
	if reason != "" {
		item["reason"] = map[string]interface{}{"$type": reason}
	}
	return item
}
