// Package ai screens complaints through an OpenAI-compatible backend and
// drafts resolution recommendations for reviewers. Everything here is
// advisory; the lifecycle engine never gates a transition on it.
package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"sunportal/backend/internal/models"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const scoreSystemPrompt = `You screen institutional grievance reports. Respond with a single JSON object:
{"sentiment": "Low" | "Moderate" | "High Risk", "toxicity": bool, "riskScore": 0-100, "duplicate": bool}
riskScore reflects urgency and potential harm; toxicity flags abusive language in the report itself; duplicate flags boilerplate or copy-pasted text.`

const recommendSystemPrompt = `You advise a grievance committee. Given a complaint, respond with a single JSON object:
{"recommendations": [{"title": "...", "description": "..."}]}
Give two or three concrete, procedural next steps. Never recommend punishments.`

// Recommendation is one suggested next step for a reviewer.
type Recommendation struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type Client struct {
	api    *openai.Client
	model  string
	logger *zap.Logger
}

// NewClient creates the screening client. Model defaults to gpt-4o-mini.
func NewClient(apiKey, model string, logger *zap.Logger) *Client {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &Client{api: openai.NewClient(apiKey), model: model, logger: logger}
}

// Score produces the one-shot screening annotation for a fresh complaint.
func (c *Client) Score(ctx context.Context, title, description string) (*models.AIAnnotation, error) {
	raw, err := c.complete(ctx, scoreSystemPrompt, fmt.Sprintf("Title: %s\n\n%s", title, description))
	if err != nil {
		return nil, err
	}

	var ann models.AIAnnotation
	if err := json.Unmarshal([]byte(raw), &ann); err != nil {
		return nil, fmt.Errorf("parse screening response: %w", err)
	}
	if ann.RiskScore < 0 {
		ann.RiskScore = 0
	}
	if ann.RiskScore > 100 {
		ann.RiskScore = 100
	}
	switch ann.Sentiment {
	case models.SentimentLow, models.SentimentModerate, models.SentimentHighRisk:
	default:
		ann.Sentiment = models.SentimentModerate
	}
	return &ann, nil
}

// Recommend drafts reviewer guidance for an existing complaint.
func (c *Client) Recommend(ctx context.Context, cmp *models.Complaint) ([]Recommendation, error) {
	prompt := fmt.Sprintf("Category: %s\nUrgency: %s\nStatus: %s\nTitle: %s\n\n%s",
		cmp.Category, cmp.Urgency, cmp.Status, cmp.Title, cmp.Description)
	raw, err := c.complete(ctx, recommendSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	var out struct {
		Recommendations []Recommendation `json:"recommendations"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("parse recommendations: %w", err)
	}
	return out.Recommendations, nil
}

func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}
	return resp.Choices[0].Message.Content, nil
}
