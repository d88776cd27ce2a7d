package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dvloznov/statement-splitter/internal/extraction"
)

func newTestServer(t *testing.T, handler func(t *testing.T, req chatRequest) (int, string)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s, want /chat/completions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}

		status, body := handler(t, req)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func completion(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{"content": content}}},
	})
	return string(b)
}

func TestClient_ExtractWindow(t *testing.T) {
	srv := newTestServer(t, func(t *testing.T, req chatRequest) (int, string) {
		if req.Model != "gpt-test" {
			t.Errorf("model = %q", req.Model)
		}
		if req.ResponseFormat["type"] != "json_object" {
			t.Errorf("response_format = %v", req.ResponseFormat)
		}
		user, _ := req.Messages[1].Content.(string)
		if !strings.Contains(user, "DATA CHUNK #4:\nsome text") {
			t.Errorf("user message missing window: %q", user)
		}
		return http.StatusOK, completion(`{"accounts":[{"account_name":"Chase","transactions":[{"date":"2024-01-02","description":"Walmart","amount":-50,"type":"debit"}]}]}`)
	})

	c := NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL, Model: "gpt-test"})
	res, err := c.ExtractWindow(context.Background(), "some text", 4)
	if err != nil {
		t.Fatalf("ExtractWindow failed: %v", err)
	}
	if len(res.Accounts) != 1 || res.Accounts[0].Name != "Chase" {
		t.Fatalf("unexpected accounts: %+v", res.Accounts)
	}
	if res.Model != "gpt-test" {
		t.Errorf("Model = %q", res.Model)
	}
}

func TestClient_ExtractWindow_HTTPError(t *testing.T) {
	srv := newTestServer(t, func(t *testing.T, req chatRequest) (int, string) {
		return http.StatusTooManyRequests, `{"error":"rate limited"}`
	})

	c := NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL})
	_, err := c.ExtractWindow(context.Background(), "text", 0)
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Errorf("error = %v, want status 429", err)
	}
}

func TestClient_ExtractWindow_Malformed(t *testing.T) {
	srv := newTestServer(t, func(t *testing.T, req chatRequest) (int, string) {
		return http.StatusOK, completion("not json at all")
	})

	c := NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL})
	_, err := c.ExtractWindow(context.Background(), "text", 0)
	if !errors.Is(err, extraction.ErrMalformedResponse) {
		t.Errorf("error = %v, want ErrMalformedResponse", err)
	}
}

func TestClient_ExtractImage(t *testing.T) {
	srv := newTestServer(t, func(t *testing.T, req chatRequest) (int, string) {
		parts, ok := req.Messages[0].Content.([]any)
		if !ok || len(parts) != 2 {
			t.Errorf("content = %#v, want two parts", req.Messages[0].Content)
			return http.StatusBadRequest, `{}`
		}
		img := parts[1].(map[string]any)["image_url"].(map[string]any)["url"].(string)
		if !strings.HasPrefix(img, "data:image/jpeg;base64,") {
			t.Errorf("image url = %q", img)
		}
		return http.StatusOK, completion(`{"accounts":[]}`)
	})

	c := NewClient(Config{APIKey: "sk-test", BaseURL: srv.URL})
	res, err := c.ExtractImage(context.Background(), []byte{0xff, 0xd8}, "image/jpeg")
	if err != nil {
		t.Fatalf("ExtractImage failed: %v", err)
	}
	if len(res.Accounts) != 0 {
		t.Errorf("expected no accounts, got %d", len(res.Accounts))
	}
}
