// Package tools defines the functions the model may call while resolving a
// request and the invoker that validates, deduplicates and executes them.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/codefionn/autoresolve/internal/progress"
	"github.com/codefionn/autoresolve/internal/request"
)

var (
	// ErrUnknownTool is returned for calls to a name that is not registered.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrInvalidArguments is returned when arguments do not match the tool schema.
	ErrInvalidArguments = errors.New("invalid tool arguments")
)

// Env is the per-resolution state a tool executes against.
type Env struct {
	Base request.BaseArgs
	// Progress is the loop's current completion percentage.
	Progress int
	// Reporter receives status notes posted by the model.
	Reporter progress.Reporter
}

// ToolSpec is the static description of a tool (name, description, parameters)
// used to build the schema handed to the model.
type ToolSpec interface {
	Kind() Kind
	Name() string
	Description() string
	Parameters() map[string]interface{}
}

// ToolExecutor runs a validated call. params only holds declared, normalized arguments.
type ToolExecutor interface {
	Execute(ctx context.Context, env Env, params map[string]interface{}) (string, error)
}

// Tool combines ToolSpec and ToolExecutor.
type Tool interface {
	ToolSpec
	ToolExecutor
}

// Registry manages available tools
type Registry struct {
	entries map[string]Tool
}

// NewRegistry creates a new tool registry
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{entries: make(map[string]Tool)}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register adds a tool to the registry
func (r *Registry) Register(tool Tool) {
	r.entries[tool.Name()] = tool
}

// Get retrieves a tool by name
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.entries[name]
	return t, ok
}

// Names returns the sorted names of all registered tools.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Subset returns the schemas of the registered tools of the given kinds, in
// the order requested, in OpenAI function-tool format.
func (r *Registry) Subset(kinds ...Kind) []map[string]interface{} {
	result := make([]map[string]interface{}, 0, len(kinds))
	for _, k := range kinds {
		if t, ok := r.Get(k.String()); ok {
			result = append(result, ToOpenAIFormat(t))
		}
	}
	return result
}

// ToOpenAIFormat converts a spec to {"type":"function","function":{...}}.
func ToOpenAIFormat(spec ToolSpec) map[string]interface{} {
	return map[string]interface{}{
		"type": "function",
		"function": map[string]interface{}{
			"name":        spec.Name(),
			"description": spec.Description(),
			"parameters":  spec.Parameters(),
		},
	}
}

// Call is a validated invocation of a registered tool.
type Call struct {
	Tool Tool
	Kind Kind
	Name string
	// Args holds the declared arguments only, with strings trimmed.
	Args map[string]interface{}
	// Signature identifies the call for deduplication.
	Signature string
}

// Fingerprint is a short hash of the signature for logs and spans.
func (c *Call) Fingerprint() string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(c.Signature))
}

// ArgsJSON renders the canonical arguments.
func (c *Call) ArgsJSON() string {
	data, err := json.Marshal(c.Args)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// Decode validates a raw call against the registered schema.
func (r *Registry) Decode(name, rawArgs string) (*Call, error) {
	name = strings.TrimSpace(name)
	tool, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownTool, name, strings.Join(r.Names(), ", "))
	}

	raw := map[string]interface{}{}
	if strings.TrimSpace(rawArgs) != "" {
		if err := json.Unmarshal([]byte(rawArgs), &raw); err != nil {
			return nil, fmt.Errorf("%w: %s arguments are not a JSON object: %v", ErrInvalidArguments, name, err)
		}
	}

	args, err := normalizeArgs(tool.Parameters(), raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidArguments, name, err)
	}

	call := &Call{Tool: tool, Kind: tool.Kind(), Name: name, Args: args}
	call.Signature = name + ":" + call.ArgsJSON()
	return call, nil
}

// normalizeArgs keeps declared properties only, checks required ones and
// their types, and trims strings. encoding/json sorts map keys, which makes
// the marshalled result canonical.
func normalizeArgs(schema map[string]interface{}, raw map[string]interface{}) (map[string]interface{}, error) {
	props, _ := schema["properties"].(map[string]interface{})
	required := map[string]bool{}
	switch req := schema["required"].(type) {
	case []string:
		for _, name := range req {
			required[name] = true
		}
	case []interface{}:
		for _, name := range req {
			if s, ok := name.(string); ok {
				required[s] = true
			}
		}
	}

	args := make(map[string]interface{}, len(props))
	var problems []string
	for _, name := range sortedKeys(props) {
		prop, _ := props[name].(map[string]interface{})
		propType, _ := prop["type"].(string)

		value, present := raw[name]
		if !present || value == nil {
			if required[name] {
				problems = append(problems, fmt.Sprintf("missing required argument %q", name))
			}
			continue
		}

		switch propType {
		case "integer":
			n, ok := value.(float64)
			if !ok || n != math.Trunc(n) {
				problems = append(problems, fmt.Sprintf("argument %q must be an integer", name))
				continue
			}
			args[name] = int(n)
		default:
			s, ok := value.(string)
			if !ok {
				problems = append(problems, fmt.Sprintf("argument %q must be a string", name))
				continue
			}
			s = strings.TrimSpace(s)
			if s == "" {
				if required[name] {
					problems = append(problems, fmt.Sprintf("argument %q must not be empty", name))
				}
				continue
			}
			args[name] = s
		}
	}

	if len(problems) > 0 {
		return nil, errors.New(strings.Join(problems, "; "))
	}
	return args, nil
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetStringParam returns params[key] as a string, or def.
func GetStringParam(params map[string]interface{}, key, def string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return def
}

// GetIntParam returns params[key] as an int, or def.
func GetIntParam(params map[string]interface{}, key string, def int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return def
	}
}

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

func objectSchema(required []string, props map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}
