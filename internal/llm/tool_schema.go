package llm

import "strings"

type functionDefinition struct {
	name        string
	description string
	parameters  map[string]interface{}
}

// functionDefinitions extracts the function entries of OpenAI style tool
// definitions ({"type":"function","function":{...}}). Malformed entries are skipped.
func functionDefinitions(tools []map[string]interface{}) []functionDefinition {
	result := make([]functionDefinition, 0, len(tools))
	for _, tool := range tools {
		if tool == nil {
			continue
		}
		if toolType, _ := tool["type"].(string); toolType != "" && toolType != "function" {
			continue
		}

		function, ok := tool["function"].(map[string]interface{})
		if !ok || function == nil {
			continue
		}

		name, _ := function["name"].(string)
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		description, _ := function["description"].(string)
		parameters, _ := function["parameters"].(map[string]interface{})
		if parameters == nil {
			parameters = map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
		}

		result = append(result, functionDefinition{
			name:        name,
			description: strings.TrimSpace(description),
			parameters:  parameters,
		})
	}
	return result
}

func extractStringSlice(raw interface{}) []string {
	switch v := raw.(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
