package reflection

import (
	"strings"
	"sync"

	"github.com/Sumatoshi-tech/refang/pkg/uast/pkg/node"
)

// Index is a Reflector backed by class declarations collected from parsed
// trees. Class names are matched case-insensitively, like PHP does.
type Index struct {
	mu      sync.RWMutex
	classes map[string]ClassDescriptor
}

// NewIndex creates an empty Index.
func NewIndex() *Index {
	return &Index{classes: make(map[string]ClassDescriptor)}
}

// Add records every class and interface declared in root.
// Later declarations of the same name replace earlier ones.
func (idx *Index) Add(root *node.Node) int {
	declarations := root.Find(func(n *node.Node) bool {
		return n.HasAnyType(node.UASTClass, node.UASTInterface) && n.Prop(node.PropFQN) != ""
	})

	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, decl := range declarations {
		cd := Describe(decl)
		idx.classes[indexKey(cd.Name)] = cd
	}

	return len(declarations)
}

// Lookup implements Reflector.
func (idx *Index) Lookup(fqn string) (ClassDescriptor, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	cd, ok := idx.classes[indexKey(fqn)]

	return cd, ok
}

// Len returns the number of indexed classes.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.classes)
}

// Describe builds a ClassDescriptor from a single class declaration node.
func Describe(decl *node.Node) ClassDescriptor {
	cd := ClassDescriptor{
		Name:       Normalize(decl.Prop(node.PropFQN)),
		Parent:     Normalize(decl.Prop(node.PropExtends)),
		Properties: make(map[string]Property),
	}

	if implements := decl.Prop(node.PropImplements); implements != "" {
		for iface := range strings.SplitSeq(implements, ",") {
			cd.Interfaces = append(cd.Interfaces, Normalize(strings.TrimSpace(iface)))
		}
	}

	for _, member := range decl.Children {
		if member.Type != node.UASTField {
			continue
		}

		prop := Property{
			Name:   member.Token,
			Static: member.HasAnyRole(node.RoleStatic),
			Type:   member.Prop(node.PropType),
		}

		if doc := member.DocComment(); doc != nil {
			prop.Doc = doc.Token
		}

		cd.Properties[prop.Name] = prop
	}

	return cd
}

func indexKey(fqn string) string {
	return strings.ToLower(Normalize(fqn))
}
