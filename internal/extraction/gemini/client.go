package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/statement-splitter/internal/extraction"
	"github.com/dvloznov/statement-splitter/internal/logger"
	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// generator is the part of the genai client this package uses.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client extracts transactions and converts documents with Gemini.
type Client struct {
	models         generator
	model          string
	converterModel string
}

// Config holds the Gemini settings.
type Config struct {
	APIKey         string
	Model          string
	ConverterModel string
}

// NewClient creates a Gemini client. Without an API key the genai SDK reads
// its usual environment (GOOGLE_API_KEY or the Vertex AI variables).
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("NewClient: create genai client: %w", err)
	}
	return newClient(gc.Models, cfg), nil
}

func newClient(models generator, cfg Config) *Client {
	c := &Client{models: models, model: cfg.Model, converterModel: cfg.ConverterModel}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.converterModel == "" {
		c.converterModel = c.model
	}
	return c
}

// ExtractWindow asks the model for the transactions in one text window.
func (c *Client) ExtractWindow(ctx context.Context, window string, index int) (*extraction.Result, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(extraction.WindowPrompt(window, index), genai.RoleUser),
	}

	raw, err := c.generate(ctx, c.model, contents)
	if err != nil {
		return nil, fmt.Errorf("ExtractWindow: window %d: %w", index, err)
	}

	accounts, err := extraction.Parse(raw)
	if err != nil {
		return &extraction.Result{Raw: raw, Model: c.model}, fmt.Errorf("ExtractWindow: window %d: %w", index, err)
	}
	return &extraction.Result{Accounts: accounts, Raw: raw, Model: c.model}, nil
}

// ExtractImage asks the model for the transactions shown in an image.
func (c *Client) ExtractImage(ctx context.Context, data []byte, mimeType string) (*extraction.Result, error) {
	contents := []*genai.Content{
		{
			Role: genai.RoleUser,
			Parts: []*genai.Part{
				{Text: extraction.ImagePrompt()},
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}},
			},
		},
	}

	raw, err := c.generate(ctx, c.model, contents)
	if err != nil {
		return nil, fmt.Errorf("ExtractImage: %w", err)
	}

	accounts, err := extraction.Parse(raw)
	if err != nil {
		return &extraction.Result{Raw: raw, Model: c.model}, fmt.Errorf("ExtractImage: %w", err)
	}
	return &extraction.Result{Accounts: accounts, Raw: raw, Model: c.model}, nil
}

// Convert transcribes a document (PDF) into Markdown text.
func (c *Client) Convert(ctx context.Context, data []byte, mimeType string) (string, error) {
	contents := []*genai.Content{
		{
			Role: genai.RoleUser,
			Parts: []*genai.Part{
				{Text: extraction.ConversionPrompt()},
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}},
			},
		},
	}

	text, err := c.generate(ctx, c.converterModel, contents)
	if err != nil {
		return "", fmt.Errorf("Convert: %w", err)
	}
	return stripMarkdownFence(text), nil
}

func (c *Client) generate(ctx context.Context, model string, contents []*genai.Content) (string, error) {
	log := logger.FromContext(ctx)
	start := time.Now()

	resp, err := c.models.GenerateContent(ctx, model, contents, &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("empty response from model %s", model)
	}

	log.Debug().
		Str("model", model).
		Int("response_len", len(text)).
		Dur("elapsed", time.Since(start)).
		Msg("Gemini call completed")

	return text, nil
}

// stripMarkdownFence removes a ```markdown wrapper the model sometimes adds.
func stripMarkdownFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if idx := strings.Index(s, "\n"); idx != -1 {
		s = s[idx+1:]
	} else {
		return ""
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
