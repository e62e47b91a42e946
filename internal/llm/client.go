package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"finrag/internal/domain"
)

// Message is one role-tagged turn sent to the chat completion endpoint.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client calls an OpenAI-compatible chat completions endpoint. It is
// the external collaborator that turns retrieved document text into a
// structured answer; failures are surfaced to the caller, never fatal
// to the session.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// Config configures the chat completions client.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
}

// NewClient creates a new chat completions client using the provided
// configuration.
func NewClient(cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "DeepSeek-R1"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 60 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  key,
		model:   cfg.Model,
		client:  &http.Client{Timeout: t},
	}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.model }

// Complete sends the messages and returns the first choice's content.
func (c *Client) Complete(messages []Message) (string, error) {
	body := struct {
		Model    string    `json:"model"`
		Messages []Message `json:"messages"`
	}{Model: c.model, Messages: messages}
	data, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/chat/completions", c.baseURL), bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("chat completion failed: %s", resp.Status)
	}
	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", errors.New("no completion returned")
	}
	return out.Choices[0].Message.Content, nil
}

// SummaryPrompt pairs the retrieved document text with the user's
// instruction in a single user message.
func SummaryPrompt(results []domain.SearchResult, query string) []Message {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Text
	}
	content := fmt.Sprintf("Document content:\n%s\n\nUser query: %s", strings.Join(texts, "\n\n"), query)
	return []Message{{Role: "user", Content: content}}
}
