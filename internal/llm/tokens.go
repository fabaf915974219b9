package llm

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

const (
	systemMessageOverhead = 2
	perMessageOverhead    = 4
)

var (
	encoderMu    sync.Mutex
	encoderCache = map[string]*tiktoken.Tiktoken{}
)

// CountTokens estimates the prompt size of req for model. The boolean reports
// whether the estimate is approximate (no exact encoding for the model).
func CountTokens(model string, req *CompletionRequest) (int, bool) {
	if req == nil {
		return 0, true
	}
	encoder, approx := encodingForModel(model)

	total := tokenCount(encoder, req.SystemPrompt)
	if req.SystemPrompt != "" {
		total += systemMessageOverhead
	}

	for _, msg := range req.Messages {
		if msg == nil {
			continue
		}
		total += tokenCount(encoder, msg.Content) + perMessageOverhead
		total += tokenCount(encoder, msg.ToolName)
		for _, call := range msg.ToolCalls {
			total += tokenCount(encoder, call.Name) + tokenCount(encoder, call.Arguments)
		}
	}
	return total, approx
}

// EstimateTokenCount returns a token estimate for content using the generic encoding.
func EstimateTokenCount(content string) int {
	encoder, _ := encodingForModel("")
	return tokenCount(encoder, content)
}

func encodingForModel(modelID string) (*tiktoken.Tiktoken, bool) {
	encoderMu.Lock()
	defer encoderMu.Unlock()

	if enc, ok := encoderCache[modelID]; ok {
		return enc, enc == nil || modelID == ""
	}

	if modelID != "" {
		if encoder, err := tiktoken.EncodingForModel(modelID); err == nil {
			encoderCache[modelID] = encoder
			return encoder, false
		}
	}

	fallback, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		fallback = nil
	}
	encoderCache[modelID] = fallback
	return fallback, true
}

func tokenCount(encoder *tiktoken.Tiktoken, text string) int {
	if text == "" {
		return 0
	}

	if encoder != nil {
		return len(encoder.Encode(text, nil, nil))
	}

	runes := utf8.RuneCountInString(text)
	// Rough heuristic: 1 token is about 4 characters
	return (runes + 3) / 4
}
