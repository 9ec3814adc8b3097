package llm

import "context"

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func System(content string) Message    { return Message{Role: "system", Content: content} }
func User(content string) Message      { return Message{Role: "user", Content: content} }
func Assistant(content string) Message { return Message{Role: "assistant", Content: content} }

// SamplingParams travels with every call. Strategies that need different
// values copy the struct; nothing shares a mutable instance.
type SamplingParams struct {
	Model            string  `json:"model" yaml:"model"`
	Temperature      float64 `json:"temperature" yaml:"temperature"`
	TopP             float64 `json:"top_p" yaml:"top_p"`
	MaxTokens        int     `json:"max_tokens" yaml:"max_tokens"`
	FrequencyPenalty float64 `json:"frequency_penalty" yaml:"frequency_penalty"`
	PresencePenalty  float64 `json:"presence_penalty" yaml:"presence_penalty"`
}

// WithTemperature returns a copy of p using temperature t.
func (p SamplingParams) WithTemperature(t float64) SamplingParams {
	p.Temperature = t
	return p
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// NewUsage builds a Usage whose total is always prompt + completion.
// Negative counts are clamped to zero.
func NewUsage(prompt, completion int) Usage {
	if prompt < 0 {
		prompt = 0
	}
	if completion < 0 {
		completion = 0
	}
	return Usage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      prompt + completion,
	}
}

func (u Usage) Add(o Usage) Usage {
	return NewUsage(u.PromptTokens+o.PromptTokens, u.CompletionTokens+o.CompletionTokens)
}

type Response struct {
	Text  string
	Model string
	Usage Usage
}

// Service is one logical generate operation against a remote model.
type Service interface {
	Generate(ctx context.Context, msgs []Message, params SamplingParams) (Response, error)
}

// ServiceFunc adapts a function to Service.
type ServiceFunc func(ctx context.Context, msgs []Message, params SamplingParams) (Response, error)

func (f ServiceFunc) Generate(ctx context.Context, msgs []Message, params SamplingParams) (Response, error) {
	return f(ctx, msgs, params)
}
