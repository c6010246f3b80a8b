package toolspec

import (
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/shared"

	"github.com/skosovsky/convo"
	"github.com/skosovsky/convo/internal/cast"
)

// Struct describes a tool by a Go struct type. Value may be a struct or a pointer to one;
// only its type is used. Name defaults to the snake_case type name.
type Struct struct {
	Name        string
	Description string
	Value       any
}

// Tool is implemented by tool objects that carry their own argument schema.
// ArgsSchema returns a struct value (as in Struct.Value) or a JSON Schema object.
type Tool interface {
	Name() string
	Description() string
	ArgsSchema() any
}

// JSONSchema is a raw JSON Schema object. "title" is the tool name and "description" the
// tool description; the rest describes the arguments.
type JSONSchema map[string]any

// ConvertAll converts every spec, stopping at the first error.
func ConvertAll(specs ...any) ([]convo.ToolDefinition, error) {
	out := make([]convo.ToolDefinition, 0, len(specs))
	for i, s := range specs {
		def, err := Convert(s)
		if err != nil {
			return nil, fmt.Errorf("tool %d: %w", i, err)
		}
		out = append(out, def)
	}
	return out, nil
}

// Convert converts a tool spec of any supported shape into a ToolDefinition.
// The result never shares maps or slices with spec.
func Convert(spec any) (convo.ToolDefinition, error) {
	switch s := spec.(type) {
	case convo.ToolDefinition:
		return finish(spec, s.Name, s.Description, s.InputSchema)
	case *convo.ToolDefinition:
		if s == nil {
			return convo.ToolDefinition{}, unsupported(spec, "nil pointer")
		}
		return finish(spec, s.Name, s.Description, s.InputSchema)
	case Struct:
		return convertStruct(s)
	case *Struct:
		if s == nil {
			return convo.ToolDefinition{}, unsupported(spec, "nil pointer")
		}
		return convertStruct(*s)
	case Function:
		return convertFunction(s)
	case *Function:
		if s == nil {
			return convo.ToolDefinition{}, unsupported(spec, "nil pointer")
		}
		return convertFunction(*s)
	case JSONSchema:
		return convertJSONSchema(spec, s)
	case shared.FunctionDefinitionParam:
		return convertOpenAIFunction(spec, &s)
	case *shared.FunctionDefinitionParam:
		if s == nil {
			return convo.ToolDefinition{}, unsupported(spec, "nil pointer")
		}
		return convertOpenAIFunction(spec, s)
	case openai.ChatCompletionToolUnionParam:
		fn := s.GetFunction()
		if fn == nil {
			return convo.ToolDefinition{}, unsupported(spec, "only function tools are supported")
		}
		return convertOpenAIFunction(spec, fn)
	case map[string]any:
		return convertMap(s)
	case Tool:
		return convertTool(s)
	default:
		return convo.ToolDefinition{}, unsupported(spec, "")
	}
}

func convertStruct(s Struct) (convo.ToolDefinition, error) {
	schema, typeName, err := structSchema(s.Value)
	if err != nil {
		return convo.ToolDefinition{}, unsupported(s.Value, err.Error())
	}
	name := s.Name
	if name == "" {
		name = snakeCase(typeName)
	}
	return finish(s, name, s.Description, schema)
}

func convertTool(t Tool) (convo.ToolDefinition, error) {
	args := t.ArgsSchema()
	var params map[string]any
	switch a := args.(type) {
	case nil:
	case map[string]any:
		params = a
	case JSONSchema:
		params = a
	default:
		schema, _, err := structSchema(a)
		if err != nil {
			return convo.ToolDefinition{}, unsupported(t, err.Error())
		}
		params = schema
	}
	return finish(t, t.Name(), t.Description(), params)
}

func convertJSONSchema(spec any, s map[string]any) (convo.ToolDefinition, error) {
	name, _ := s["title"].(string)
	desc, _ := s["description"].(string)
	params := make(map[string]any, len(s))
	for k, v := range s {
		if k == "title" || k == "description" {
			continue
		}
		params[k] = v
	}
	return finish(spec, name, desc, params)
}

func convertOpenAIFunction(spec any, fn *shared.FunctionDefinitionParam) (convo.ToolDefinition, error) {
	desc := ""
	if fn.Description.Valid() {
		desc = fn.Description.Value
	}
	return finish(spec, fn.Name, desc, map[string]any(fn.Parameters))
}

// convertMap dispatches untyped maps by their keys: "input_schema" (canonical), "parameters"
// (function schema, optionally wrapped as {"type":"function","function":{...}}), then "title".
func convertMap(m map[string]any) (convo.ToolDefinition, error) {
	if fn, ok := m["function"].(map[string]any); ok && m["type"] == "function" {
		m = fn
	}
	name, _ := m["name"].(string)
	desc, _ := m["description"].(string)
	if schema, ok := m["input_schema"]; ok {
		params, ok := schema.(map[string]any)
		if !ok && schema != nil {
			return convo.ToolDefinition{}, unsupported(m, "input_schema is not an object")
		}
		return finish(m, name, desc, params)
	}
	if schema, ok := m["parameters"]; ok {
		params, ok := schema.(map[string]any)
		if !ok && schema != nil {
			return convo.ToolDefinition{}, unsupported(m, "parameters is not an object")
		}
		return finish(m, name, desc, params)
	}
	if _, ok := m["title"]; ok {
		return convertJSONSchema(m, m)
	}
	return convo.ToolDefinition{}, unsupported(m, "map has none of input_schema, parameters, title")
}

// finish validates the name and normalises a copy of the argument schema.
func finish(spec any, name, desc string, params map[string]any) (convo.ToolDefinition, error) {
	if name == "" {
		return convo.ToolDefinition{}, unsupported(spec, "missing tool name")
	}
	schema, err := normalizeSchema(params)
	if err != nil {
		return convo.ToolDefinition{}, unsupported(spec, err.Error())
	}
	return convo.ToolDefinition{Name: name, Description: desc, InputSchema: schema}, nil
}

// normalizeSchema deep-copies params and fills the object envelope:
// type defaults to "object", properties to {}, required becomes []string.
func normalizeSchema(params map[string]any) (map[string]any, error) {
	out := cast.CloneMap(params)
	if out == nil {
		out = make(map[string]any, 3)
	}
	if t, ok := out["type"]; !ok || t == nil || t == "" {
		out["type"] = "object"
	} else if t != "object" {
		return nil, fmt.Errorf("input schema type must be object, got %v", t)
	}
	if p, ok := out["properties"]; !ok || p == nil {
		out["properties"] = map[string]any{}
	} else if _, ok := p.(map[string]any); !ok {
		return nil, fmt.Errorf("properties must be an object, got %T", p)
	}
	switch r := out["required"].(type) {
	case nil:
		out["required"] = []string{}
	default:
		required, ok := cast.ToStringSlice(r)
		if !ok {
			return nil, fmt.Errorf("required must be a list of strings, got %T", r)
		}
		if required == nil {
			required = []string{}
		}
		out["required"] = required
	}
	return out, nil
}

func unsupported(spec any, reason string) error {
	return &convo.UnsupportedToolSpecError{Type: fmt.Sprintf("%T", spec), Reason: reason}
}
