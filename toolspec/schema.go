package toolspec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/invopop/jsonschema"
	"golang.org/x/sync/singleflight"

	"github.com/skosovsky/convo/internal/cast"
)

var (
	schemaCache sync.Map // reflect.Type -> map[string]any
	schemaGroup singleflight.Group
)

var errNotStruct = errors.New("value is not a struct")

// structSchema returns a fresh copy of the object schema of v's struct type and the type name.
// Schemas are built once per type; concurrent first calls share one build.
func structSchema(v any) (map[string]any, string, error) {
	typ := reflect.TypeOf(v)
	for typ != nil && typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ == nil || typ.Kind() != reflect.Struct {
		return nil, "", errNotStruct
	}
	if cached, ok := schemaCache.Load(typ); ok {
		return cast.CloneMap(cached.(map[string]any)), typ.Name(), nil
	}
	built, err, _ := schemaGroup.Do(fmt.Sprintf("%p", typ), func() (any, error) {
		if cached, ok := schemaCache.Load(typ); ok {
			return cached, nil
		}
		schema, err := typeSchema(typ)
		if err != nil {
			return nil, err
		}
		schemaCache.Store(typ, schema)
		return schema, nil
	})
	if err != nil {
		return nil, "", err
	}
	return cast.CloneMap(built.(map[string]any)), typ.Name(), nil
}

// reflector emits named types as $defs references; inliner expands them into one tree.
var reflector = &jsonschema.Reflector{
	Anonymous:                 true,
	AllowAdditionalProperties: true,
	Namer: func(t reflect.Type) string {
		if t.Name() == "" || t.PkgPath() == "" {
			return t.Name()
		}
		return t.PkgPath() + "." + t.Name()
	},
}

// typeSchema reflects typ into a self-contained JSON Schema map. Fields are described by the
// json, jsonschema and jsonschema_description tags.
func typeSchema(typ reflect.Type) (schema map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	raw, err := json.Marshal(reflector.ReflectFromType(typ))
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var root map[string]any
	if err := dec.Decode(&root); err != nil {
		return nil, err
	}
	defs, _ := root["$defs"].(map[string]any)
	in := inliner{defs: defs, visiting: make(map[string]bool)}
	out, ok := in.schema(root).(map[string]any)
	if !ok {
		return map[string]any{}, nil
	}
	return out, nil
}

type inliner struct {
	defs     map[string]any
	visiting map[string]bool
}

// schema returns a copy of node with every $ref replaced by its definition. A reference back
// into a definition being expanded becomes a bare object schema.
func (in *inliner) schema(node any) any {
	switch n := node.(type) {
	case bool:
		if n {
			return map[string]any{}
		}
		return false
	case map[string]any:
		if ref, ok := n["$ref"].(string); ok {
			return in.resolve(strings.TrimPrefix(ref, "#/$defs/"), n)
		}
		out := make(map[string]any, len(n))
		for k, v := range n {
			switch k {
			case "$schema", "$id", "$defs", "$anchor":
			case "properties", "patternProperties", "dependentSchemas":
				props, _ := v.(map[string]any)
				sub := make(map[string]any, len(props))
				for name, p := range props {
					sub[name] = in.schema(p)
				}
				out[k] = sub
			case "items", "additionalProperties", "contains", "propertyNames", "not", "if", "then", "else":
				out[k] = in.schema(v)
			case "allOf", "anyOf", "oneOf", "prefixItems":
				list, _ := v.([]any)
				sub := make([]any, len(list))
				for i, p := range list {
					sub[i] = in.schema(p)
				}
				out[k] = sub
			case "required":
				required, _ := cast.ToStringSlice(v)
				out[k] = required
			default:
				out[k] = numbers(v)
			}
		}
		return out
	default:
		return numbers(node)
	}
}

// resolve expands the named definition; keys set next to the $ref (a field description)
// override the definition's.
func (in *inliner) resolve(name string, ref map[string]any) map[string]any {
	var out map[string]any
	if def, ok := in.defs[name]; ok && !in.visiting[name] {
		in.visiting[name] = true
		out, _ = in.schema(def).(map[string]any)
		delete(in.visiting, name)
	}
	if out == nil {
		out = map[string]any{"type": "object"}
	}
	for k, v := range ref {
		if !strings.HasPrefix(k, "$") {
			out[k] = numbers(v)
		}
	}
	return out
}

// numbers turns decoded json.Number values into int64, uint64 or float64, in that order.
func numbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if u, err := strconv.ParseUint(x.String(), 10, 64); err == nil {
			return u
		}
		f, _ := x.Float64()
		return f
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = numbers(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = numbers(e)
		}
		return out
	default:
		return v
	}
}

// snakeCase converts a Go identifier to snake_case: DummyFunction -> dummy_function,
// HTTPServer -> http_server.
func snakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
