// Package reflection exposes read-only class metadata (parent, interfaces,
// properties) to rewrite rules without requiring them to walk the tree.
package reflection

import (
	"strings"

	"github.com/Sumatoshi-tech/refang/pkg/docblock"
)

// Property describes one declared class property.
type Property struct {
	Name   string
	Static bool
	// Type is the native type declaration (e.g. "int" in "private int $x"), if any.
	Type string
	// Doc is the raw documentation comment attached to the property.
	Doc string
}

// DeclaredType returns the declared-type annotation text of the property:
// the first @var token of its doc comment, falling back to the native type.
func (p Property) DeclaredType() string {
	if varType, ok := docblock.VarType(p.Doc); ok {
		return varType
	}

	return p.Type
}

// ClassDescriptor is a snapshot of one class.
type ClassDescriptor struct {
	Name       string
	Parent     string
	Interfaces []string
	Properties map[string]Property
}

// Property returns the named property and whether the class declares it.
func (cd ClassDescriptor) Property(name string) (Property, bool) {
	prop, ok := cd.Properties[name]

	return prop, ok
}

// Reflector resolves fully-qualified class names to descriptors.
type Reflector interface {
	Lookup(fqn string) (ClassDescriptor, bool)
}

// Static is an in-memory Reflector keyed by fully-qualified name.
type Static map[string]ClassDescriptor

// Lookup implements Reflector.
func (s Static) Lookup(fqn string) (ClassDescriptor, bool) {
	cd, ok := s[Normalize(fqn)]

	return cd, ok
}

// Normalize strips a leading namespace separator so "\Foo\Bar" and "Foo\Bar"
// resolve to the same class.
func Normalize(fqn string) string {
	return strings.TrimPrefix(fqn, `\`)
}

// maxHierarchyVisits bounds ancestor walks on cyclic or corrupt hierarchies.
const maxHierarchyVisits = 64

// IsSubtype reports whether class is want, or extends/implements it
// transitively according to r.
func IsSubtype(r Reflector, class, want string) bool {
	class, want = Normalize(class), Normalize(want)
	if class == "" || want == "" {
		return false
	}

	queue := []string{class}
	seen := make(map[string]bool)

	for visits := 0; len(queue) > 0 && visits < maxHierarchyVisits; visits++ {
		current := queue[0]
		queue = queue[1:]

		if strings.EqualFold(current, want) {
			return true
		}

		if seen[current] || r == nil {
			continue
		}

		seen[current] = true

		cd, ok := r.Lookup(current)
		if !ok {
			continue
		}

		if cd.Parent != "" {
			queue = append(queue, Normalize(cd.Parent))
		}

		for _, iface := range cd.Interfaces {
			queue = append(queue, Normalize(iface))
		}
	}

	return false
}

// FindProperty looks name up on class and then on its ancestors, the way
// PHP reflection reports inherited properties.
func FindProperty(r Reflector, class, name string) (Property, bool) {
	current := Normalize(class)

	for visits := 0; current != "" && visits < maxHierarchyVisits; visits++ {
		cd, ok := r.Lookup(current)
		if !ok {
			return Property{}, false
		}

		if prop, found := cd.Property(name); found {
			return prop, true
		}

		current = Normalize(cd.Parent)
	}

	return Property{}, false
}
