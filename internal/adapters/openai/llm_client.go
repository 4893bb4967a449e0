package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mailsift/mailsift/internal/core"
	"github.com/mailsift/mailsift/internal/utils"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIClient is a Classifier implementation backed by the OpenAI chat
// completion API.
type OpenAIClient struct {
	client        *openai.Client
	modelName     string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
	promptFormat  string
}

// AdAnalysisResponse represents the structured response from the model
type AdAnalysisResponse struct {
	IsAdvertisement bool    `json:"is_advertisement"`
	Score           float64 `json:"score"`
	Confidence      float64 `json:"confidence"`
	Explanation     string  `json:"explanation"`
}

// NewOpenAIClient creates a new OpenAI classifier client
func NewOpenAIClient(
	client *openai.Client,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *OpenAIClient {
	return &OpenAIClient{
		client:        client,
		modelName:     modelName,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
		promptFormat: `You are an advertising-mail detector. Analyze the following email and determine whether it is an advertisement (marketing, promotional, or bulk commercial mail).
Respond with a JSON object containing:
- is_advertisement: boolean (true if the email is an advertisement)
- score: number between 0 and 1 (higher means more advertisement-like)
- confidence: number between 0 and 1 (how confident you are in your assessment)
- explanation: string (brief explanation of your assessment)

Email:
From: %s
Subject: %s
Body:
%s

Respond only with the JSON object and nothing else.`,
	}
}

// ClassifyMessage scores a message for advertisement content
func (c *OpenAIClient) ClassifyMessage(ctx context.Context, msg *core.MessageRecord) (*core.ClassificationResult, error) {
	body := c.textProcessor.ProcessText(msg.Body, c.maxBodySize)
	prompt := fmt.Sprintf(c.promptFormat, msg.From, msg.Subject, body)

	req := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an advertising-mail detector. Respond only with JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from OpenAI")
	}

	responseText := resp.Choices[0].Message.Content

	var analysis AdAnalysisResponse
	if err := json.Unmarshal([]byte(responseText), &analysis); err != nil {
		// The model sometimes wraps the object in prose; take the
		// outermost brace span and try again.
		jsonStart := 0
		jsonEnd := len(responseText)

		for i := 0; i < len(responseText); i++ {
			if responseText[i] == '{' {
				jsonStart = i
				break
			}
		}
		for i := len(responseText) - 1; i >= 0; i-- {
			if responseText[i] == '}' {
				jsonEnd = i + 1
				break
			}
		}

		if jsonStart < jsonEnd {
			if err := json.Unmarshal([]byte(responseText[jsonStart:jsonEnd]), &analysis); err != nil {
				return nil, fmt.Errorf("failed to parse model response as JSON: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to extract JSON from model response: %w", err)
		}
	}

	c.logger.Debug("OpenAI classification",
		zap.String("sender", msg.Address),
		zap.Float64("score", analysis.Score),
		zap.Float64("confidence", analysis.Confidence))

	return &core.ClassificationResult{
		Score:        analysis.Score,
		Confidence:   analysis.Confidence,
		Explanation:  analysis.Explanation,
		ClassifiedAt: time.Now(),
		ModelUsed:    c.modelName,
		ProcessingID: resp.ID,
	}, nil
}
