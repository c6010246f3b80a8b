package toolspec

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"runtime"
	"slices"
	"strings"

	"github.com/skosovsky/convo"
	"github.com/skosovsky/convo/internal/cast"
)

// Function describes a tool by a plain Go func and a Google-style docstring:
//
//	Look up the weather.
//
//	Args:
//	    city: city name
//	    days: forecast length
//
// The text before the first section is the description; the Args section documents the
// parameters. Go does not expose parameter names, so Args lists them in order. A leading
// context.Context parameter is not an argument. Enums restricts an argument to fixed values.
// Name defaults to the snake_case name of a named func.
type Function struct {
	Name  string
	Doc   string
	Fn    any
	Args  []string
	Enums map[string][]any
}

var contextType = reflect.TypeFor[context.Context]()

var anonymousFunc = regexp.MustCompile(`^func\d+$`)

func convertFunction(f Function) (convo.ToolDefinition, error) {
	fv := reflect.ValueOf(f.Fn)
	if fv.Kind() != reflect.Func || fv.IsNil() {
		return convo.ToolDefinition{}, unsupported(f, "Fn is not a func")
	}
	ft := fv.Type()
	params := make([]reflect.Type, 0, ft.NumIn())
	for i := 0; i < ft.NumIn(); i++ {
		if i == 0 && ft.In(i) == contextType {
			continue
		}
		params = append(params, ft.In(i))
	}
	if len(params) != len(f.Args) {
		return convo.ToolDefinition{}, unsupported(f,
			fmt.Sprintf("func takes %d arguments but %d names are given", len(params), len(f.Args)))
	}
	for arg := range f.Enums {
		if !slices.Contains(f.Args, arg) {
			return convo.ToolDefinition{}, unsupported(f, fmt.Sprintf("enum for unknown argument %q", arg))
		}
	}

	doc := parseDocstring(f.Doc)
	props := make(map[string]any, len(params))
	for i, typ := range params {
		name := f.Args[i]
		prop, err := typeSchema(typ)
		if err != nil {
			return convo.ToolDefinition{}, unsupported(f, fmt.Sprintf("argument %s: %v", name, err))
		}
		if desc := doc.args[name]; desc != "" {
			prop["description"] = desc
		}
		if values, ok := f.Enums[name]; ok {
			prop["enum"] = cast.CloneValue(values)
		}
		props[name] = prop
	}

	name := f.Name
	if name == "" {
		name = funcName(fv)
		if name == "" {
			return convo.ToolDefinition{}, unsupported(f, "anonymous func needs a Name")
		}
	}
	return finish(f, name, doc.description, map[string]any{
		"type":       "object",
		"properties": props,
		"required":   slices.Clone(f.Args),
	})
}

// funcName returns the snake_case name of a named func, or "" for closures.
func funcName(fv reflect.Value) string {
	rf := runtime.FuncForPC(fv.Pointer())
	if rf == nil {
		return ""
	}
	full := rf.Name()
	short := full[strings.LastIndexByte(full, '.')+1:]
	short = strings.TrimSuffix(short, "-fm")
	if short == "" || anonymousFunc.MatchString(short) {
		return ""
	}
	return snakeCase(short)
}

type docstring struct {
	description string
	args        map[string]string
}

var sectionHeader = regexp.MustCompile(`^(Args|Arguments|Parameters|Returns|Return|Yields|Raises|Example|Examples|Note|Notes):\s*$`)

var argLine = regexp.MustCompile(`^(\*{0,2}\w+)\s*(?:\([^)]*\))?\s*:\s*(.*)$`)

// parseDocstring splits a Google-style docstring into its description and Args entries.
// Continuation lines of an entry are joined with a space.
func parseDocstring(doc string) docstring {
	out := docstring{args: make(map[string]string)}
	lines := dedent(doc)

	var desc []string
	i := 0
	for ; i < len(lines); i++ {
		if sectionHeader.MatchString(strings.TrimSpace(lines[i])) && !startsIndented(lines[i]) {
			break
		}
		desc = append(desc, lines[i])
	}
	out.description = strings.TrimSpace(strings.Join(desc, "\n"))

	inArgs := false
	entryIndent := -1
	current := ""
	for ; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)
		if !startsIndented(line) && sectionHeader.MatchString(trimmed) {
			header := strings.TrimSuffix(trimmed, ":")
			inArgs = header == "Args" || header == "Arguments" || header == "Parameters"
			entryIndent, current = -1, ""
			continue
		}
		if !inArgs || trimmed == "" {
			continue
		}
		indent := len(line) - len(strings.TrimLeft(line, " \t"))
		if entryIndent < 0 {
			entryIndent = indent
		}
		if indent <= entryIndent {
			if m := argLine.FindStringSubmatch(trimmed); m != nil {
				current = strings.TrimLeft(m[1], "*")
				out.args[current] = m[2]
				continue
			}
		}
		if current != "" {
			out.args[current] = strings.TrimSpace(out.args[current] + " " + trimmed)
		}
	}
	return out
}

// dedent removes the common indentation of all lines after the first.
func dedent(doc string) []string {
	lines := strings.Split(strings.ReplaceAll(doc, "\r\n", "\n"), "\n")
	minIndent := -1
	for _, l := range lines[1:] {
		if strings.TrimSpace(l) == "" {
			continue
		}
		n := len(l) - len(strings.TrimLeft(l, " \t"))
		if minIndent < 0 || n < minIndent {
			minIndent = n
		}
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		l = strings.TrimRight(l, " \t")
		switch {
		case i == 0:
			l = strings.TrimSpace(l)
		case minIndent > 0 && len(l) >= minIndent:
			l = l[minIndent:]
		case minIndent > 0:
			l = strings.TrimLeft(l, " \t")
		}
		out[i] = l
	}
	return out
}

func startsIndented(line string) bool {
	return strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")
}
