package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/mailsift/mailsift/internal/core"
	"github.com/mailsift/mailsift/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// GeminiClient is a Classifier implementation backed by Google Gemini
type GeminiClient struct {
	client        *genai.Client
	model         *genai.GenerativeModel
	modelName     string
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

// NewGeminiClient creates a new Gemini classifier client
func NewGeminiClient(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) (*GeminiClient, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetTopP(topP)
	model.SetMaxOutputTokens(int32(maxTokens))

	return &GeminiClient{
		client:        client,
		model:         model,
		modelName:     modelName,
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
	}, nil
}

// Close closes the Gemini client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// ClassifyMessage scores a message for advertisement content
func (c *GeminiClient) ClassifyMessage(ctx context.Context, msg *core.MessageRecord) (*core.ClassificationResult, error) {
	processedBody := c.textProcessor.ProcessText(msg.Body, c.maxBodySize)
	prompt := fmt.Sprintf(c.promptFormat, msg.From, msg.Subject, processedBody)

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content with Gemini: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	responseText := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])

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

	c.logger.Debug("Gemini classification",
		zap.String("sender", msg.Address),
		zap.Float64("score", analysis.Score),
		zap.Float64("confidence", analysis.Confidence))

	return &core.ClassificationResult{
		Score:        analysis.Score,
		Confidence:   analysis.Confidence,
		Explanation:  analysis.Explanation,
		ClassifiedAt: time.Now(),
		ModelUsed:    c.modelName,
	}, nil
}
