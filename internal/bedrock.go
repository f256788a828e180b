package internal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// BedrockAPI is the part of the Bedrock runtime client we use
type BedrockAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// mistralRequest is the native request body for Mistral models on Bedrock
type mistralRequest struct {
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type mistralResponse struct {
	Outputs []struct {
		Text       string `json:"text"`
		StopReason string `json:"stop_reason"`
	} `json:"outputs"`
}

// BedrockModel answers prompts with a Mistral model hosted on AWS Bedrock
type BedrockModel struct {
	client      BedrockAPI
	modelID     string
	maxTokens   int
	temperature float64
}

// NewBedrockModel creates a LanguageModel for modelID
func NewBedrockModel(client BedrockAPI, modelID string) *BedrockModel {
	return &BedrockModel{
		client:      client,
		modelID:     modelID,
		maxTokens:   512,
		temperature: 0.5,
	}
}

// Complete implements LanguageModel
func (m *BedrockModel) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(mistralRequest{
		Prompt:      "<s>[INST] " + prompt + " [/INST]",
		MaxTokens:   m.maxTokens,
		Temperature: m.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("encoding bedrock request: %w", err)
	}

	out, err := m.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(m.modelID),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("invoking %s: %w", m.modelID, err)
	}

	var resp mistralResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", fmt.Errorf("decoding bedrock response: %w", err)
	}
	if len(resp.Outputs) == 0 {
		return "", fmt.Errorf("no outputs from %s", m.modelID)
	}
	return resp.Outputs[0].Text, nil
}
