package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatReply(content string) string {
	reply := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	}
	data, _ := json.Marshal(reply)
	return string(data)
}

func newTestClient(url string) *GroqClient {
	config := DefaultGroqConfig("test-key")
	config.BaseURL = url
	config.MaxAttempts = 3
	config.RetryDelay = 0
	return NewGroqClientWithConfig(config)
}

func TestGenerateDecodesShape(t *testing.T) {
	var gotBody chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		fmt.Fprint(w, chatReply(`{"slogan": "Carved from stone."}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	var out Slogan
	err := client.Generate(context.Background(), Request{
		Stage:       "slogan",
		System:      "sys",
		User:        "usr",
		Temperature: 0.6,
		TopP:        0.9,
	}, &out)

	require.NoError(t, err)
	assert.Equal(t, "Carved from stone.", out.Slogan)
	require.Len(t, gotBody.Messages, 2)
	assert.Equal(t, "system", gotBody.Messages[0].Role)
	assert.Equal(t, "json_object", gotBody.ResponseFormat.Type)
}

func TestGenerateUsesLargeModelTier(t *testing.T) {
	var gotModel string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body chatRequest
		json.NewDecoder(r.Body).Decode(&body)
		gotModel = body.Model
		fmt.Fprint(w, chatReply(`{"descricao": "long text"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	var out Narrative
	require.NoError(t, client.Generate(context.Background(), Request{
		Stage: "narrative", System: "s", User: "u", Large: true,
	}, &out))
	assert.Equal(t, "llama-3.3-70b-versatile", gotModel)
}

func TestGenerateStripsCodeFence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chatReply("```json\n{\"nome\": \"Ana Souza\"}\n```"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	var out NameFix
	require.NoError(t, client.Generate(context.Background(), Request{
		Stage: "name_fix", System: "s", User: "u",
	}, &out))
	assert.Equal(t, "Ana Souza", out.Name)
}

func TestGenerateRetriesInvalidShape(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			fmt.Fprint(w, chatReply(`{"wrong_key": "x"}`))
			return
		}
		fmt.Fprint(w, chatReply(`{"saudacao": "Oi!"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	var out Greeting
	require.NoError(t, client.Generate(context.Background(), Request{
		Stage: "greeting", System: "s", User: "u",
	}, &out))
	assert.Equal(t, 3, calls)
	assert.Equal(t, "Oi!", out.Greeting)
}

func TestGenerateExhaustsAttempts(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, chatReply(`not json at all`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	var out Greeting
	err := client.Generate(context.Background(), Request{
		Stage: "greeting", System: "s", User: "u",
	}, &out)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidShape))
	assert.Equal(t, 3, calls)
	assert.Empty(t, out.Greeting, "failed attempts must not touch out")
}

func TestGenerateRetriesRateLimit(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, chatReply(`{"slogan": "ok"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	var out Slogan
	require.NoError(t, client.Generate(context.Background(), Request{
		Stage: "slogan", System: "s", User: "u",
	}, &out))
	assert.Equal(t, 2, calls)
}

func TestGenerateRejectsEmptyPrompts(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	var out Slogan
	err := client.Generate(context.Background(), Request{Stage: "slogan", System: "", User: "u"}, &out)
	assert.Error(t, err)
	assert.Zero(t, calls)
}

func TestGenerateRequiresAPIKey(t *testing.T) {
	config := DefaultGroqConfig("")
	client := NewGroqClientWithConfig(config)
	var out Slogan
	err := client.Generate(context.Background(), Request{Stage: "slogan", System: "s", User: "u"}, &out)
	assert.Error(t, err)
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		in, want string
		wantErr  bool
	}{
		{`{"a": 1}`, `{"a": 1}`, false},
		{"```json\n{\"a\": 1}\n```", `{"a": 1}`, false},
		{"Here you go: {\"a\": 1} hope it helps", `{"a": 1}`, false},
		{"no object here", "", true},
	}
	for _, tt := range tests {
		got, err := extractJSON(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
