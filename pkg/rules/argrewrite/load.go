package argrewrite

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// ErrInvalidTable is returned when a change table document fails schema validation.
var ErrInvalidTable = errors.New("invalid argument change table")

//go:embed table.schema.json
var tableSchema []byte

// LoadTable reads a YAML (or JSON) change table file.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read change table: %w", err)
	}

	table, err := ParseTable(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return table, nil
}

// ParseTable decodes a change table document, validates it against the
// embedded schema and builds the Table.
//
//	App\Mailer:
//	  send:
//	    "2": {op: set_default, value: true}
//	    "3": {op: remove}
func ParseTable(data []byte) (*Table, error) {
	var raw any

	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode change table: %w", err)
	}

	if raw == nil {
		return NewTable(nil)
	}

	doc := normalizeYAML(raw)

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(tableSchema),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return nil, fmt.Errorf("validate change table: %w", err)
	}

	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, verr := range result.Errors() {
			messages = append(messages, verr.Field()+": "+verr.Description())
		}

		return nil, fmt.Errorf("%w: %s", ErrInvalidTable, strings.Join(messages, "; "))
	}

	return NewTable(toSpec(doc))
}

// normalizeYAML turns YAML's map[any]any into map[string]any so the
// document can be validated as JSON.
func normalizeYAML(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[key] = normalizeYAML(item)
		}

		return out
	case map[any]any:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[fmt.Sprint(key)] = normalizeYAML(item)
		}

		return out
	case []any:
		out := make([]any, len(typed))
		for idx, item := range typed {
			out[idx] = normalizeYAML(item)
		}

		return out
	default:
		return value
	}
}

// toSpec converts a schema-valid document.
func toSpec(doc any) Spec {
	spec := Spec{}

	types, _ := doc.(map[string]any)
	for typeName, rawMethods := range types {
		methods, _ := rawMethods.(map[string]any)
		spec[typeName] = make(map[string]map[string]ChangeSpec, len(methods))

		for method, rawPositions := range methods {
			positions, _ := rawPositions.(map[string]any)
			changes := make(map[string]ChangeSpec, len(positions))

			for position, rawChange := range positions {
				change, _ := rawChange.(map[string]any)
				op, _ := change["op"].(string)
				changes[position] = ChangeSpec{Op: op, Value: change["value"]}
			}

			spec[typeName][method] = changes
		}
	}

	return spec
}
