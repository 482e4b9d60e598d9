package builder

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/refang/pkg/uast/pkg/node"
)

// ErrUnsupportedLiteral is returned for values that have no PHP literal form.
var ErrUnsupportedLiteral = errors.New("unsupported literal value")

// Literal builds a literal node for a configuration value. Supported values
// are nil, bools, integers, floats, strings, []any and map[string]any.
func Literal(value any) (*node.Node, error) {
	token, kind, err := render(value)
	if err != nil {
		return nil, err
	}

	builder := node.NewBuilder().
		WithType(node.UASTLiteral).
		WithToken(token).
		WithRoles(node.RoleLiteral).
		WithProp(node.PropKind, kind)

	if raw, ok := scalarValue(value); ok {
		builder.WithProp(node.PropValue, raw)
	}

	return builder.Build(), nil
}

// CheckLiteral reports whether Literal would accept value.
func CheckLiteral(value any) error {
	_, _, err := render(value)

	return err
}

func render(value any) (token, kind string, err error) {
	switch typed := value.(type) {
	case nil:
		return "null", node.LiteralNull, nil
	case bool:
		return strconv.FormatBool(typed), node.LiteralBool, nil
	case int:
		return strconv.Itoa(typed), node.LiteralInt, nil
	case int64:
		return strconv.FormatInt(typed, 10), node.LiteralInt, nil
	case uint64:
		return strconv.FormatUint(typed, 10), node.LiteralInt, nil
	case float64:
		return renderFloat(typed)
	case string:
		return quote(typed), node.LiteralString, nil
	case []any:
		return renderList(typed)
	case map[string]any:
		return renderMap(typed)
	default:
		return "", "", fmt.Errorf("%w: %T", ErrUnsupportedLiteral, value)
	}
}

func renderFloat(value float64) (token, kind string, err error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return "", "", fmt.Errorf("%w: %v", ErrUnsupportedLiteral, value)
	}

	token = strconv.FormatFloat(value, 'g', -1, 64)
	if !strings.ContainsAny(token, ".eE") {
		token += ".0"
	}

	return token, node.LiteralFloat, nil
}

func renderList(items []any) (token, kind string, err error) {
	parts := make([]string, 0, len(items))

	for _, item := range items {
		part, _, itemErr := render(item)
		if itemErr != nil {
			return "", "", itemErr
		}

		parts = append(parts, part)
	}

	return "[" + strings.Join(parts, ", ") + "]", node.LiteralArray, nil
}

func renderMap(entries map[string]any) (token, kind string, err error) {
	keys := slices.Sorted(maps.Keys(entries))
	parts := make([]string, 0, len(keys))

	for _, key := range keys {
		part, _, itemErr := render(entries[key])
		if itemErr != nil {
			return "", "", itemErr
		}

		parts = append(parts, quote(key)+" => "+part)
	}

	return "[" + strings.Join(parts, ", ") + "]", node.LiteralArray, nil
}

// quote renders a single-quoted PHP string.
func quote(value string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(value)

	return "'" + escaped + "'"
}

func scalarValue(value any) (string, bool) {
	switch typed := value.(type) {
	case string:
		return typed, true
	case bool, int, int64, uint64, float64:
		return fmt.Sprint(typed), true
	default:
		return "", false
	}
}
