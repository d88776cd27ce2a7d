package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dvloznov/statement-splitter/internal/extraction"
	"github.com/dvloznov/statement-splitter/internal/logger"
)

// Config holds the settings of an OpenAI compatible chat/completions endpoint.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client extracts transactions through an OpenAI compatible API.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a client. A zero timeout means two minutes.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &Client{cfg: cfg, httpClient: &http.Client{Timeout: cfg.Timeout}}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat map[string]any `json:"response_format"`
	Messages       []chatMessage  `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ExtractWindow asks the model for the transactions in one text window.
func (c *Client) ExtractWindow(ctx context.Context, window string, index int) (*extraction.Result, error) {
	messages := []chatMessage{
		{Role: "system", Content: "You are a precise data cleaner."},
		{Role: "user", Content: extraction.WindowPrompt(window, index)},
	}

	raw, err := c.complete(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("ExtractWindow: window %d: %w", index, err)
	}

	accounts, err := extraction.Parse(raw)
	if err != nil {
		return &extraction.Result{Raw: raw, Model: c.cfg.Model}, fmt.Errorf("ExtractWindow: window %d: %w", index, err)
	}
	return &extraction.Result{Accounts: accounts, Raw: raw, Model: c.cfg.Model}, nil
}

// ExtractImage sends the image inline as a data URL.
func (c *Client) ExtractImage(ctx context.Context, data []byte, mimeType string) (*extraction.Result, error) {
	url := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
	messages := []chatMessage{
		{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: extraction.ImagePrompt()},
				{Type: "image_url", ImageURL: &imageURL{URL: url}},
			},
		},
	}

	raw, err := c.complete(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("ExtractImage: %w", err)
	}

	accounts, err := extraction.Parse(raw)
	if err != nil {
		return &extraction.Result{Raw: raw, Model: c.cfg.Model}, fmt.Errorf("ExtractImage: %w", err)
	}
	return &extraction.Result{Accounts: accounts, Raw: raw, Model: c.cfg.Model}, nil
}

func (c *Client) complete(ctx context.Context, messages []chatMessage) (string, error) {
	log := logger.FromContext(ctx)
	start := time.Now()

	body, err := json.Marshal(chatRequest{
		Model:          c.cfg.Model,
		Temperature:    0,
		ResponseFormat: map[string]any{"type": "json_object"},
		Messages:       messages,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai http error: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("openai status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var cc chatResponse
	if err := json.Unmarshal(payload, &cc); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return "", fmt.Errorf("no choices in openai response")
	}

	log.Debug().
		Str("model", c.cfg.Model).
		Int("response_len", len(cc.Choices[0].Message.Content)).
		Dur("elapsed", time.Since(start)).
		Msg("OpenAI call completed")

	return cc.Choices[0].Message.Content, nil
}
