package argrewrite

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/refang/pkg/builder"
	"github.com/Sumatoshi-tech/refang/pkg/reflection"
)

// Op is the kind of an argument change.
type Op string

// Supported argument changes.
const (
	// OpRemove drops the argument at the position.
	OpRemove Op = "remove"
	// OpSetDefault fills the position with a literal.
	OpSetDefault Op = "set_default"
)

var (
	// ErrUnknownOp is returned for change kinds other than remove and set_default.
	ErrUnknownOp = errors.New("unknown argument change")
	// ErrBadPosition is returned for positions that are not non-negative integers.
	ErrBadPosition = errors.New("bad argument position")
	// ErrUnsupportedDefault is returned for defaults with no literal form.
	ErrUnsupportedDefault = errors.New("unsupported default value")
	// ErrEmptyName is returned for blank type or method names.
	ErrEmptyName = errors.New("empty type or method name")
)

// Change is one configured argument change.
type Change struct {
	Op Op
	// Default is the literal value for OpSetDefault.
	Default any
}

// ChangeSpec is the configuration form of a Change.
type ChangeSpec struct {
	Op    string `json:"op"              yaml:"op"`
	Value any    `json:"value,omitempty" yaml:"value,omitempty"`
}

// Spec is the configuration form of a Table: type name, then method name,
// then decimal argument position.
type Spec map[string]map[string]map[string]ChangeSpec

// Table maps type name to method name to argument position to change.
// It is immutable once built.
type Table struct {
	types map[string]map[string]map[int]Change
	names []string
}

// NewTable validates spec and builds a Table.
func NewTable(spec Spec) (*Table, error) {
	table := &Table{types: make(map[string]map[string]map[int]Change, len(spec))}

	for typeName, methods := range spec {
		normalized := reflection.Normalize(strings.TrimSpace(typeName))
		if normalized == "" {
			return nil, fmt.Errorf("type %q: %w", typeName, ErrEmptyName)
		}

		byMethod := make(map[string]map[int]Change, len(methods))

		for method, positions := range methods {
			if strings.TrimSpace(method) == "" {
				return nil, fmt.Errorf("%s: %w", normalized, ErrEmptyName)
			}

			changes, err := buildChanges(positions)
			if err != nil {
				return nil, fmt.Errorf("%s::%s: %w", normalized, method, err)
			}

			byMethod[method] = changes
		}

		table.types[normalized] = byMethod
	}

	table.names = slices.Sorted(maps.Keys(table.types))

	return table, nil
}

func buildChanges(positions map[string]ChangeSpec) (map[int]Change, error) {
	changes := make(map[int]Change, len(positions))

	for raw, spec := range positions {
		position, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || position < 0 {
			return nil, fmt.Errorf("%w: %q", ErrBadPosition, raw)
		}

		change, err := buildChange(spec)
		if err != nil {
			return nil, fmt.Errorf("position %d: %w", position, err)
		}

		changes[position] = change
	}

	return changes, nil
}

func buildChange(spec ChangeSpec) (Change, error) {
	switch Op(strings.ToLower(strings.TrimSpace(spec.Op))) {
	case OpRemove:
		return Change{Op: OpRemove}, nil
	case OpSetDefault:
		if err := builder.CheckLiteral(spec.Value); err != nil {
			return Change{}, fmt.Errorf("%w: %w", ErrUnsupportedDefault, err)
		}

		return Change{Op: OpSetDefault, Default: spec.Value}, nil
	default:
		return Change{}, fmt.Errorf("%w: %q", ErrUnknownOp, spec.Op)
	}
}

// Types returns the configured type names in sorted order.
func (t *Table) Types() []string {
	return slices.Clone(t.names)
}

// Methods returns the configured method names of typeName in sorted order.
func (t *Table) Methods(typeName string) []string {
	return slices.Sorted(maps.Keys(t.types[reflection.Normalize(typeName)]))
}

// Changes returns the position map of typeName::method, or nil.
func (t *Table) Changes(typeName, method string) map[int]Change {
	return t.types[reflection.Normalize(typeName)][method]
}

// Len returns the number of configured (type, method) pairs.
func (t *Table) Len() int {
	total := 0
	for _, methods := range t.types {
		total += len(methods)
	}

	return total
}

// Positions returns the configured positions of a change map in ascending order.
func Positions(changes map[int]Change) []int {
	return slices.Sorted(maps.Keys(changes))
}
