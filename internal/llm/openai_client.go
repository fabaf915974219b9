package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
)

const defaultOpenAIModel = "gpt-4o"

// OpenAIClient implements the Client interface on top of the Responses API.
type OpenAIClient struct {
	client openai.Client
	model  string
}

// NewOpenAIClient constructs a client that talks directly to the OpenAI API.
func NewOpenAIClient(apiKey, modelName string, opts ...option.RequestOption) (*OpenAIClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("openai client requires an API key")
	}

	model := strings.TrimSpace(modelName)
	if model == "" {
		model = defaultOpenAIModel
	}

	return &OpenAIClient{
		client: openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...),
		model:  model,
	}, nil
}

func (c *OpenAIClient) GetModelName() string {
	return c.model
}

func (c *OpenAIClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	params, err := buildResponsesParams(c.model, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Responses.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai completion failed: %w", apiError(err, time.Now()))
	}
	return convertResponsesCompletion(resp), nil
}

func buildResponsesParams(model string, req *CompletionRequest) (responses.ResponseNewParams, error) {
	if req == nil {
		return responses.ResponseNewParams{}, errNilRequest
	}

	inputItems := buildResponsesInput(req.Messages)
	if len(inputItems) == 0 {
		return responses.ResponseNewParams{}, fmt.Errorf("no messages provided")
	}

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(model),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: inputItems,
		},
	}

	if req.SystemPrompt != "" {
		params.Instructions = openai.String(req.SystemPrompt)
	}

	if !isReasoningModel(model) {
		params.Temperature = openai.Float(req.Temperature)
	}

	if req.MaxTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(req.MaxTokens))
	}

	if tools := convertResponsesTools(req.Tools); len(tools) > 0 {
		params.Tools = tools
		params.ParallelToolCalls = openai.Bool(false)
	}

	return params, nil
}

func buildResponsesInput(messages []*Message) responses.ResponseInputParam {
	input := make(responses.ResponseInputParam, 0, len(messages))

	for _, msg := range messages {
		if msg == nil {
			continue
		}

		switch msg.Role {
		case RoleTool:
			if msg.ToolID == "" {
				continue
			}
			input = append(input, responses.ResponseInputItemParamOfFunctionCallOutput(msg.ToolID, msg.Content))
		case RoleAssistant:
			if strings.TrimSpace(msg.Content) != "" {
				input = append(input, responses.ResponseInputItemParamOfMessage(msg.Content, responses.EasyInputMessageRoleAssistant))
			}
			for _, call := range msg.ToolCalls {
				callID := call.ID
				if callID == "" {
					callID = "call_" + call.Name
				}
				input = append(input, responses.ResponseInputItemParamOfFunctionCall(call.Arguments, callID, call.Name))
			}
		case RoleSystem:
			if strings.TrimSpace(msg.Content) == "" {
				continue
			}
			input = append(input, responses.ResponseInputItemParamOfMessage(msg.Content, responses.EasyInputMessageRoleSystem))
		default:
			if strings.TrimSpace(msg.Content) == "" {
				continue
			}
			input = append(input, responses.ResponseInputItemParamOfMessage(msg.Content, responses.EasyInputMessageRoleUser))
		}
	}

	return input
}

func convertResponsesTools(tools []map[string]interface{}) []responses.ToolUnionParam {
	defs := functionDefinitions(tools)
	result := make([]responses.ToolUnionParam, 0, len(defs))
	for _, fn := range defs {
		variant := responses.ToolParamOfFunction(fn.name, fn.parameters, false)
		if fn.description != "" && variant.OfFunction != nil {
			variant.OfFunction.Description = openai.String(fn.description)
		}
		result = append(result, variant)
	}
	return result
}

func convertResponsesCompletion(resp *responses.Response) *CompletionResponse {
	if resp == nil {
		return &CompletionResponse{}
	}

	out := &CompletionResponse{
		Content:    resp.OutputText(),
		StopReason: string(resp.Status),
		Usage: Usage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
		},
	}

	for _, item := range resp.Output {
		if item.Type != "function_call" {
			continue
		}
		call := item.AsFunctionCall()
		identifier := call.CallID
		if identifier == "" {
			identifier = call.ID
		}
		out.ToolCalls = append(out.ToolCalls, ToolCall{ID: identifier, Name: call.Name, Arguments: call.Arguments})
	}
	return out
}

// isReasoningModel reports models that reject a temperature parameter.
func isReasoningModel(modelName string) bool {
	model := strings.ToLower(strings.TrimSpace(modelName))
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return strings.Contains(model, "codex") || strings.Contains(model, "reasoning")
}
