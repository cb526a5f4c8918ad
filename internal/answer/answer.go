// Package answer is the client for the external answer-generation
// service. The service is an opaque collaborator: it takes a question
// and a tier and returns the rendered answer text. Settlement never
// depends on it; the homework handler refunds a committed spend when
// this call fails.
package answer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/askielabs/askie-api/internal/config"
)

var ErrAnswerUnavailable = errors.New("answer service unavailable")

// Generator is what the homework handler depends on; tests substitute
// a stub.
type Generator interface {
	Generate(ctx context.Context, question, tier, imageURL string) (*Answer, error)
}

type Answer struct {
	Text         string `json:"text"`
	TimeEstimate string `json:"time_estimate"`
}

type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewClient(cfg *config.Config) *Client {
	timeout := cfg.Answers.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		baseURL: cfg.Answers.BaseURL,
		apiKey:  cfg.Answers.APIKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) Generate(ctx context.Context, question, tier, imageURL string) (*Answer, error) {
	payload := map[string]string{
		"question": question,
		"tier":     tier,
	}
	if imageURL != "" {
		payload["image_url"] = imageURL
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/answers", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnswerUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrAnswerUnavailable, resp.StatusCode)
	}

	var ans Answer
	if err := json.NewDecoder(resp.Body).Decode(&ans); err != nil {
		return nil, err
	}

	return &ans, nil
}
