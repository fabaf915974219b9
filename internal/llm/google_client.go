package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

const defaultGoogleModel = "gemini-2.5-flash"

// GoogleGenAIClient implements the Client interface for Gemini models.
type GoogleGenAIClient struct {
	modelName string
	client    *genai.Client
}

// NewGoogleAIClient creates a Google GenAI client for the provided model.
// baseURL and httpClient are optional and used for testing.
func NewGoogleAIClient(ctx context.Context, apiKey, modelName, baseURL string, httpClient *http.Client) (*GoogleGenAIClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("google client requires an API key")
	}

	model := strings.TrimPrefix(strings.TrimSpace(modelName), "models/")
	if model == "" {
		model = defaultGoogleModel
	}

	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google GenAI client: %w", err)
	}

	return &GoogleGenAIClient{
		modelName: model,
		client:    client,
	}, nil
}

func (c *GoogleGenAIClient) GetModelName() string {
	return c.modelName
}

func (c *GoogleGenAIClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	if req == nil {
		return nil, errNilRequest
	}

	contents := convertMessagesToGenAI(req.Messages)
	if len(contents) == 0 {
		return nil, fmt.Errorf("no messages provided")
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.modelName, contents, buildGenAIGenerationConfig(req))
	if err != nil {
		return nil, fmt.Errorf("google genai completion failed: %w", apiError(err, time.Now()))
	}
	return buildGenAICompletionResponse(resp), nil
}

func convertMessagesToGenAI(messages []*Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		if msg == nil {
			continue
		}

		switch msg.Role {
		case RoleAssistant:
			parts := make([]*genai.Part, 0, len(msg.ToolCalls)+1)
			if strings.TrimSpace(msg.Content) != "" {
				parts = append(parts, genai.NewPartFromText(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				part := genai.NewPartFromFunctionCall(call.Name, argumentsObject(call.Arguments))
				part.FunctionCall.ID = call.ID
				parts = append(parts, part)
			}
			if len(parts) == 0 {
				continue
			}
			contents = append(contents, genai.NewContentFromParts(parts, genai.RoleModel))
		case RoleTool:
			payload := map[string]any{}
			if err := json.Unmarshal([]byte(msg.Content), &payload); err != nil || len(payload) == 0 {
				payload = map[string]any{"output": msg.Content}
			}
			part := genai.NewPartFromFunctionResponse(msg.ToolName, payload)
			part.FunctionResponse.ID = msg.ToolID
			contents = append(contents, genai.NewContentFromParts([]*genai.Part{part}, genai.RoleUser))
		case RoleSystem:
			continue
		default:
			if strings.TrimSpace(msg.Content) == "" {
				continue
			}
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}
	return contents
}

func buildGenAIGenerationConfig(req *CompletionRequest) *genai.GenerateContentConfig {
	temp := float32(req.Temperature)
	cfg := &genai.GenerateContentConfig{Temperature: &temp}

	if req.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}

	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	if tools := convertToolsToGenAI(req.Tools); len(tools) > 0 {
		cfg.Tools = tools
		cfg.ToolConfig = &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: genai.FunctionCallingConfigModeAuto},
		}
	}

	return cfg
}

func convertToolsToGenAI(tools []map[string]interface{}) []*genai.Tool {
	defs := functionDefinitions(tools)
	if len(defs) == 0 {
		return nil
	}

	decls := make([]*genai.FunctionDeclaration, 0, len(defs))
	for _, fn := range defs {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:                 fn.name,
			Description:          fn.description,
			ParametersJsonSchema: fn.parameters,
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

func buildGenAICompletionResponse(resp *genai.GenerateContentResponse) *CompletionResponse {
	if resp == nil {
		return &CompletionResponse{}
	}

	out := &CompletionResponse{}
	if resp.UsageMetadata != nil {
		out.Usage = Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}

	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil {
			out.StopReason = string(resp.PromptFeedback.BlockReason)
		}
		return out
	}

	candidate := resp.Candidates[0]
	out.StopReason = string(candidate.FinishReason)
	if candidate.Content == nil {
		return out
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil {
			continue
		}
		if part.Text != "" && !part.Thought {
			sb.WriteString(part.Text)
		}
		if part.FunctionCall != nil {
			argsJSON, err := json.Marshal(part.FunctionCall.Args)
			if err != nil || part.FunctionCall.Args == nil {
				argsJSON = []byte("{}")
			}
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        part.FunctionCall.ID,
				Name:      part.FunctionCall.Name,
				Arguments: string(argsJSON),
			})
		}
	}
	out.Content = sb.String()
	return out
}
