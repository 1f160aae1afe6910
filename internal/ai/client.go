package ai

import (
	"errors"
	"fmt"
	"time"

	"pharmacare_backend/pkg/utils"

	"github.com/guonaihong/gout"
)

// ErrNotConfigured is returned when no API key is present in the environment.
var ErrNotConfigured = errors.New("AI client is not configured")

// Client talks to an OpenAI-compatible chat completion endpoint.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	timeout time.Duration
}

// NewClientFromEnv builds a client from AI_API_URL, AI_API_KEY and AI_MODEL.
func NewClientFromEnv() *Client {
	return &Client{
		baseURL: utils.Getenv("AI_API_URL", "https://api.openai.com/v1"),
		apiKey:  utils.Getenv("AI_API_KEY", ""),
		model:   utils.Getenv("AI_MODEL", "gpt-4o-mini"),
		timeout: 30 * time.Second,
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// ChatCompletion sends one system+user exchange and returns the reply text.
func (c *Client) ChatCompletion(systemPrompt, userPrompt string) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.2,
	}

	var resp chatResponse
	var statusCode int
	err := gout.POST(c.baseURL+"/chat/completions").
		SetHeader(gout.H{"Authorization": "Bearer " + c.apiKey}).
		SetTimeout(c.timeout).
		SetJSON(reqBody).
		BindJSON(&resp).
		Code(&statusCode).
		Do()
	if err != nil {
		return "", fmt.Errorf("AI request failed: %w", err)
	}
	if statusCode < 200 || statusCode >= 300 {
		if resp.Error != nil {
			return "", fmt.Errorf("AI request failed with status %d: %s", statusCode, resp.Error.Message)
		}
		return "", fmt.Errorf("AI request failed with status %d", statusCode)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("AI response contained no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
