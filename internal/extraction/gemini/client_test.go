package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dvloznov/statement-splitter/internal/extraction"
	"google.golang.org/genai"
)

// mockGenerator is a mock implementation of generator for testing.
type mockGenerator struct {
	GenerateContentFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

func (m *mockGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return m.GenerateContentFunc(ctx, model, contents, config)
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: text}}}},
		},
	}
}

func TestClient_ExtractWindow(t *testing.T) {
	var gotModel, gotPrompt string
	gen := &mockGenerator{
		GenerateContentFunc: func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			gotModel = model
			gotPrompt = contents[0].Parts[0].Text
			return textResponse("```json\n{\"accounts\":[{\"account_name\":\"Main\",\"transactions\":[{\"date\":\"2025-01-05\",\"description\":\"STORE\",\"amount\":-1,\"type\":\"debit\"}]}]}\n```"), nil
		},
	}

	c := newClient(gen, Config{Model: "gemini-test"})
	res, err := c.ExtractWindow(context.Background(), "window text", 3)
	if err != nil {
		t.Fatalf("ExtractWindow failed: %v", err)
	}

	if gotModel != "gemini-test" {
		t.Errorf("model = %q, want gemini-test", gotModel)
	}
	if !strings.Contains(gotPrompt, "DATA CHUNK #3:\nwindow text") {
		t.Errorf("prompt missing window: %s", gotPrompt)
	}
	if len(res.Accounts) != 1 || len(res.Accounts[0].Transactions) != 1 {
		t.Fatalf("unexpected accounts: %+v", res.Accounts)
	}
	if res.Raw == "" || res.Model != "gemini-test" {
		t.Errorf("Raw/Model not recorded: %+v", res)
	}
}

func TestClient_ExtractWindow_Malformed(t *testing.T) {
	gen := &mockGenerator{
		GenerateContentFunc: func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return textResponse("Sorry, I cannot help with that."), nil
		},
	}

	c := newClient(gen, Config{})
	res, err := c.ExtractWindow(context.Background(), "text", 0)
	if !errors.Is(err, extraction.ErrMalformedResponse) {
		t.Fatalf("error = %v, want ErrMalformedResponse", err)
	}
	if res == nil || res.Raw == "" {
		t.Error("raw output should be kept for malformed responses")
	}
}

func TestClient_ExtractWindow_TransportError(t *testing.T) {
	gen := &mockGenerator{
		GenerateContentFunc: func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return nil, errors.New("quota exceeded")
		},
	}

	c := newClient(gen, Config{})
	if _, err := c.ExtractWindow(context.Background(), "text", 1); err == nil {
		t.Error("expected error")
	}
}

func TestClient_ExtractImage(t *testing.T) {
	gen := &mockGenerator{
		GenerateContentFunc: func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			blob := contents[0].Parts[1].InlineData
			if blob == nil || blob.MIMEType != "image/png" || string(blob.Data) != "png-bytes" {
				t.Errorf("unexpected inline data: %+v", blob)
			}
			return textResponse(`{"accounts":[{"account_name":"Cheque","transactions":[]}]}`), nil
		},
	}

	c := newClient(gen, Config{})
	res, err := c.ExtractImage(context.Background(), []byte("png-bytes"), "image/png")
	if err != nil {
		t.Fatalf("ExtractImage failed: %v", err)
	}
	if len(res.Accounts) != 1 || res.Accounts[0].Name != "Cheque" {
		t.Errorf("unexpected accounts: %+v", res.Accounts)
	}
}

func TestClient_Convert(t *testing.T) {
	gen := &mockGenerator{
		GenerateContentFunc: func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			if model != "converter" {
				t.Errorf("model = %q, want converter", model)
			}
			return textResponse("```markdown\n| Date | Description |\n```"), nil
		},
	}

	c := newClient(gen, Config{Model: "extractor", ConverterModel: "converter"})
	text, err := c.Convert(context.Background(), []byte("%PDF"), "application/pdf")
	if err != nil {
		t.Fatalf("Convert failed: %v", err)
	}
	if text != "| Date | Description |" {
		t.Errorf("Convert() = %q", text)
	}
}

func TestClient_Convert_EmptyResponse(t *testing.T) {
	gen := &mockGenerator{
		GenerateContentFunc: func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return textResponse("  "), nil
		},
	}

	c := newClient(gen, Config{})
	if _, err := c.Convert(context.Background(), []byte("%PDF"), "application/pdf"); err == nil {
		t.Error("expected error for empty conversion")
	}
}
