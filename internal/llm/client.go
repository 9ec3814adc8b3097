package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultBaseURL = "https://api.openai.com/v1"

// Client talks to any OpenAI-compatible chat/completions endpoint.
type Client struct {
	url    string
	apiKey string
	model  string
	do     func(*http.Request) (*http.Response, error)
}

type ClientOpts struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	// HTTPClient overrides the default client built from Timeout.
	HTTPClient *http.Client
}

func NewClient(opts ClientOpts) *Client {
	base := opts.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		url:    strings.TrimRight(base, "/") + "/chat/completions",
		apiKey: opts.APIKey,
		model:  opts.Model,
		do:     hc.Do,
	}
}

type chatRequest struct {
	Model            string    `json:"model"`
	Messages         []Message `json:"messages"`
	Temperature      float64   `json:"temperature"`
	TopP             float64   `json:"top_p,omitempty"`
	MaxTokens        int       `json:"max_tokens,omitempty"`
	FrequencyPenalty float64   `json:"frequency_penalty"`
	PresencePenalty  float64   `json:"presence_penalty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Generate issues exactly one request. Failures come back as *ServiceError.
func (c *Client) Generate(ctx context.Context, msgs []Message, params SamplingParams) (Response, error) {
	model := params.Model
	if model == "" {
		model = c.model
	}
	body, err := json.Marshal(chatRequest{
		Model:            model,
		Messages:         msgs,
		Temperature:      params.Temperature,
		TopP:             params.TopP,
		MaxTokens:        params.MaxTokens,
		FrequencyPenalty: params.FrequencyPenalty,
		PresencePenalty:  params.PresencePenalty,
	})
	if err != nil {
		return Response{}, fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Response{}, &ServiceError{Kind: KindCanceled, Err: ctx.Err()}
		}
		return Response{}, Transient(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return Response{}, RateLimited(resp.StatusCode, readSnippet(resp.Body))
	}
	if resp.StatusCode/100 != 2 {
		return Response{}, Transient(resp.StatusCode, errors.New(readSnippet(resp.Body)))
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return Response{}, &ServiceError{Kind: KindMalformed, Message: "decoding response", Err: err}
	}
	if len(cr.Choices) == 0 {
		return Response{}, Malformed("response has no choices")
	}
	if cr.Usage == nil {
		return Response{}, Malformed("response has no usage record")
	}
	if cr.Model == "" {
		cr.Model = model
	}
	return Response{
		Text:  cr.Choices[0].Message.Content,
		Model: cr.Model,
		Usage: NewUsage(cr.Usage.PromptTokens, cr.Usage.CompletionTokens),
	}, nil
}

func readSnippet(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 4<<10))
	return strings.TrimSpace(string(data))
}
