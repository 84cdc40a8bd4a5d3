package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
)

// mockOpenAI answers /v1/chat/completions with a fixed completion
type mockOpenAI struct {
	server *httptest.Server

	mu          sync.Mutex
	reply       string
	status      int
	lastRequest map[string]interface{}

	calls atomic.Int32
}

func newMockOpenAI(t *testing.T, reply string) *mockOpenAI {
	t.Helper()

	m := &mockOpenAI{reply: reply}
	m.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.calls.Add(1)
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}

		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)

		m.mu.Lock()
		m.lastRequest = body
		status := m.status
		reply := m.reply
		m.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if status != 0 {
			w.WriteHeader(status)
			w.Write([]byte(`{"error":{"message":"upstream exploded","type":"server_error"}}`))
			return
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   body["model"],
			"choices": []map[string]interface{}{
				{
					"index":         0,
					"message":       map[string]string{"role": "assistant", "content": reply},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}))
	t.Cleanup(m.server.Close)
	return m
}

func (m *mockOpenAI) setStatus(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = status
}

func (m *mockOpenAI) generator(prompts *PromptLibrary) *SummaryGenerator {
	return NewSummaryGenerator(SummaryGeneratorConfig{
		APIKey:  "sk-test",
		BaseURL: m.server.URL + "/v1",
		Model:   "gpt-test",
	}, prompts)
}

// lastPrompt returns the content of the single user message last sent
func (m *mockOpenAI) lastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	messages, _ := m.lastRequest["messages"].([]interface{})
	if len(messages) != 1 {
		return ""
	}
	msg, _ := messages[0].(map[string]interface{})
	content, _ := msg["content"].(string)
	return content
}
