// Package classifier decides whether a call site or method declaration
// targets a given type and method, following the class hierarchy.
package classifier

import (
	"strings"

	"github.com/Sumatoshi-tech/refang/pkg/reflection"
	"github.com/Sumatoshi-tech/refang/pkg/uast/pkg/node"
)

// Classifier matches nodes against a type name and candidate method names.
type Classifier interface {
	Matches(n *node.Node, typeName string, methods []string) bool
}

// CallClassifier matches instance calls ("$x->m()") and static calls
// ("X::m()") whose resolved receiver is typeName or one of its subtypes.
type CallClassifier struct {
	Reflector reflection.Reflector
}

// Matches implements Classifier.
func (cc CallClassifier) Matches(n *node.Node, typeName string, methods []string) bool {
	if !IsMethodCall(n) {
		return false
	}

	if _, ok := MatchedMethod(n, methods); !ok {
		return false
	}

	return reflection.IsSubtype(cc.Reflector, n.Prop(node.PropReceiver), typeName)
}

// DeclarationClassifier matches method declarations of typeName or of any
// class extending or implementing it.
type DeclarationClassifier struct {
	Reflector reflection.Reflector
}

// Matches implements Classifier.
func (dc DeclarationClassifier) Matches(n *node.Node, typeName string, methods []string) bool {
	if n == nil || n.Type != node.UASTMethod {
		return false
	}

	if _, ok := MatchedMethod(n, methods); !ok {
		return false
	}

	return reflection.IsSubtype(dc.Reflector, n.Prop(node.PropClass), typeName)
}

// IsMethodCall reports whether n is an instance or static method call.
func IsMethodCall(n *node.Node) bool {
	return n != nil && n.Type == node.UASTCall && n.HasAnyRole(node.RoleMember, node.RoleStatic)
}

// MatchedMethod returns the entry of methods naming n's method. PHP method
// names are case-insensitive.
func MatchedMethod(n *node.Node, methods []string) (string, bool) {
	name := n.Prop(node.PropName)
	if name == "" {
		return "", false
	}

	for _, method := range methods {
		if strings.EqualFold(method, name) {
			return method, true
		}
	}

	return "", false
}
