package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/ct-rrya/study-buddy/internal/metrics"
)

const (
	groqEndpoint = "https://api.groq.com/openai/v1/chat/completions"
	groqModel    = "llama-3.1-8b-instant"
	groqTimeout  = 30 * time.Second

	maxTokens   = 800
	temperature = 0.7
)

// ChatMessage is a single message in a chat-completions request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatClient produces a completion for a conversation.
type ChatClient interface {
	ChatCompletion(ctx context.Context, messages []ChatMessage) (string, error)
}

// GroqClient calls the Groq chat-completions API. Calls go through a circuit
// breaker so a degraded upstream fails fast instead of tying up request
// handlers for the full timeout.
type GroqClient struct {
	apiKey  string
	httpc   *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewGroqClient(apiKey string) *GroqClient {
	settings := gobreaker.Settings{
		Name:    "groq",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(_ string, _, to gobreaker.State) {
			metrics.BotCircuitBreakerState.Set(float64(to))
		},
	}

	return &GroqClient{
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: groqTimeout},
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *GroqClient) ChatCompletion(ctx context.Context, messages []ChatMessage) (string, error) {
	start := time.Now()
	result, err := c.breaker.Execute(func() (any, error) {
		return c.complete(ctx, messages)
	})
	metrics.BotRequestDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (c *GroqClient) complete(ctx context.Context, messages []ChatMessage) (string, error) {
	payload, err := json.Marshal(completionRequest{
		Model:       groqModel,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, groqEndpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("groq request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("groq returned status %d", resp.StatusCode)
	}

	var completion completionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if completion.Error != nil {
		return "", fmt.Errorf("groq error: %s", completion.Error.Message)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("groq returned no choices")
	}

	return completion.Choices[0].Message.Content, nil
}
