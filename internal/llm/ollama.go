package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

type Ollama struct {
	BaseURL   string
	ModelName string
	Client    *http.Client
}

func NewOllama(baseURL string, model string) *Ollama {
	if baseURL == "" {
		baseURL = "http://127.0.0.1:11434"
	}
	if model == "" {
		model = "qwen2.5:0.5b"
	}
	return &Ollama{BaseURL: baseURL, ModelName: model, Client: &http.Client{Timeout: 60 * time.Second}}
}

func (o *Ollama) Name() string  { return "ollama" }
func (o *Ollama) Model() string { return o.ModelName }

func (o *Ollama) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	if o.BaseURL == "" {
		return "", errors.New("ollama url not configured")
	}
	payload := map[string]any{
		"model":  o.ModelName,
		"prompt": prompt,
		"stream": false,
	}
	options := map[string]any{}
	if opts.Temperature > 0 {
		options["temperature"] = opts.Temperature
	}
	if opts.MaxTokens > 0 {
		options["num_predict"] = opts.MaxTokens
	}
	if len(options) > 0 {
		payload["options"] = options
	}
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/api/generate", o.BaseURL), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := o.Client.Do(req)
	if err != nil {
		return "", err
	}
	if resp.Body != nil {
		defer resp.Body.Close()
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("ollama generate failed: %s", resp.Status)
	}
	var decoded struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", err
	}
	return decoded.Response, nil
}
