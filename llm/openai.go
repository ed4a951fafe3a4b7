package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	DefaultModel   = "openrouter/auto"
	DefaultBaseURL = "https://openrouter.ai/api/v1/"
	DefaultTimeout = 30 * time.Second

	systemPrompt = "You are a precise JSON-producing assistant."
)

// Settings configures the OpenAI-compatible backend.
type Settings struct {
	APIKey      string
	Model       string
	BaseURL     string
	HTTPReferer string
	XTitle      string
	Timeout     time.Duration
}

// Enabled reports whether a backend can be built at all. Without an API key
// the pipeline runs on its local heuristics only.
func (s Settings) Enabled() bool {
	return strings.TrimSpace(s.APIKey) != ""
}

// OpenAI implements Client using the official openai-go SDK (chat completions).
type OpenAI struct {
	Model   string
	Timeout time.Duration
	Opts    []option.RequestOption
}

// NewOpenAI builds a client from settings, filling model/base URL/timeout defaults.
func NewOpenAI(s Settings) (*OpenAI, error) {
	if !s.Enabled() {
		return nil, errors.New("llm: api key missing")
	}
	model := s.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	opts := []option.RequestOption{
		option.WithAPIKey(s.APIKey),
		option.WithBaseURL(normalizeBaseURL(s.BaseURL)),
		option.WithRequestTimeout(timeout),
		option.WithMaxRetries(0),
	}
	if s.HTTPReferer != "" {
		opts = append(opts, option.WithHeader("HTTP-Referer", s.HTTPReferer))
	}
	if s.XTitle != "" {
		opts = append(opts, option.WithHeader("X-Title", s.XTitle))
	}
	return &OpenAI{Model: model, Timeout: timeout, Opts: opts}, nil
}

// NewFromSettings returns nil (and no error) when the backend is not configured.
func NewFromSettings(s Settings) (Client, error) {
	if !s.Enabled() {
		return nil, nil
	}
	c, err := NewOpenAI(s)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (o *OpenAI) Complete(ctx context.Context, prompt Prompt) (string, error) {
	client := openai.NewClient(o.Opts...)

	system := prompt.System
	if system == "" {
		system = systemPrompt
	}

	ctx, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(prompt.User),
		},
		Temperature: openai.Float(0.2),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty choices")
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

// normalizeBaseURL accepts either an API root or a full chat-completions
// endpoint, since the SDK appends the route itself.
func normalizeBaseURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return DefaultBaseURL
	}
	u = strings.TrimSuffix(u, "/")
	u = strings.TrimSuffix(u, "/chat/completions")
	return u + "/"
}
