package toolspec

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnakeCase(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want string
	}{
		{"DummyFunction", "dummy_function"},
		{"dummyFunction", "dummy_function"},
		{"HTTPServer", "http_server"},
		{"GetV2Weather", "get_v2_weather"},
		{"already_snake", "already_snake"},
		{"ID", "id"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, snakeCase(tt.in))
		})
	}
}

type address struct {
	Street string `json:"street"`
	Zip    string `json:"zip,omitempty"`
}

type Paging struct {
	Page int `json:"page" jsonschema_description:"1-based page"`
}

type searchArgs struct {
	Paging
	Query    string            `json:"query"`
	Scores   []float64         `json:"scores"`
	Home     *address          `json:"home,omitempty" jsonschema_description:"home address"`
	Work     address           `json:"work"`
	Labels   map[string]string `json:"labels,omitempty"`
	Level    int               `json:"level" jsonschema:"enum=1,enum=2,enum=3"`
	Big      uint64            `json:"big" jsonschema:"enum=18446744073709551615"`
	Ratio    float64           `json:"ratio,omitempty" jsonschema:"minimum=0.5"`
	Extra    any               `json:"extra,omitempty"`
	Ignored  string            `json:"-"`
	internal string
	Plain    string
}

func TestStructSchema_Kinds(t *testing.T) {
	t.Parallel()
	got, name, err := structSchema(&searchArgs{})
	require.NoError(t, err)
	assert.Equal(t, "searchArgs", name)
	assert.Equal(t, "object", got["type"])
	assert.NotContains(t, got, "$schema")
	assert.NotContains(t, got, "$defs")

	props := got["properties"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "integer", "description": "1-based page"}, props["page"])
	assert.Equal(t, map[string]any{"type": "string"}, props["query"])
	assert.Equal(t, map[string]any{"type": "array", "items": map[string]any{"type": "number"}}, props["scores"])
	addressSchema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"street": map[string]any{"type": "string"},
			"zip":    map[string]any{"type": "string"},
		},
		"required": []string{"street"},
	}
	assert.Equal(t, addressSchema, props["work"])
	addressSchema["description"] = "home address"
	assert.Equal(t, addressSchema, props["home"])
	assert.Equal(t, map[string]any{
		"type":                 "object",
		"additionalProperties": map[string]any{"type": "string"},
	}, props["labels"])
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, props["level"].(map[string]any)["enum"])
	assert.Equal(t, []any{uint64(math.MaxUint64)}, props["big"].(map[string]any)["enum"])
	assert.Equal(t, 0.5, props["ratio"].(map[string]any)["minimum"])
	assert.Equal(t, map[string]any{}, props["extra"])
	assert.Contains(t, props, "Plain")
	assert.NotContains(t, props, "Ignored")
	assert.NotContains(t, props, "internal")

	assert.Equal(t, []string{"page", "query", "scores", "work", "level", "big", "Plain"}, got["required"])
}

type treeNode struct {
	Name     string     `json:"name"`
	Children []treeNode `json:"children,omitempty"`
}

type forest struct {
	Trees []treeNode `json:"trees"`
}

func TestStructSchema_Recursive(t *testing.T) {
	t.Parallel()
	got, _, err := structSchema(treeNode{})
	require.NoError(t, err)
	children := got["properties"].(map[string]any)["children"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "object"}, children["items"])

	got, _, err = structSchema(forest{})
	require.NoError(t, err)
	tree := got["properties"].(map[string]any)["trees"].(map[string]any)["items"].(map[string]any)
	assert.Equal(t, []string{"name"}, tree["required"])
	nested := tree["properties"].(map[string]any)["children"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "object"}, nested["items"])
}

func TestStructSchema_Errors(t *testing.T) {
	t.Parallel()
	type badKind struct {
		C chan int `json:"c"`
	}
	for _, v := range []any{badKind{}, nil, 5} {
		_, _, err := structSchema(v)
		assert.Error(t, err, "%T", v)
	}
}

func TestParseDocstring(t *testing.T) {
	t.Parallel()
	doc := `Search the catalogue.
        Results are ranked.

        Args:
            query (str): free text
                spanning two lines
            limit: maximum number of hits
            *args: ignored extras

        Returns:
            matching: items
        `
	got := parseDocstring(doc)
	assert.Equal(t, "Search the catalogue.\nResults are ranked.", got.description)
	assert.Equal(t, map[string]string{
		"query": "free text spanning two lines",
		"limit": "maximum number of hits",
		"args":  "ignored extras",
	}, got.args)
}

func TestParseDocstring_NoSections(t *testing.T) {
	t.Parallel()
	got := parseDocstring("  Just a description.  ")
	assert.Equal(t, "Just a description.", got.description)
	assert.Empty(t, got.args)

	empty := parseDocstring("")
	assert.Empty(t, empty.description)
}
