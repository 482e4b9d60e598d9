package uast

import (
	"strings"

	"github.com/Sumatoshi-tech/refang/pkg/reflection"
)

const nsSep = `\`

// builtinTypes are type keywords that never name a class.
var builtinTypes = map[string]bool{
	"array": true, "bool": true, "boolean": true, "callable": true, "double": true,
	"false": true, "float": true, "int": true, "integer": true, "iterable": true,
	"mixed": true, "never": true, "null": true, "object": true, "resource": true,
	"string": true, "true": true, "void": true, "$this": true,
}

// useClause is one imported class name.
type useClause struct {
	Alias string
	FQN   string
}

// nameScope resolves class names the way PHP does at compile time.
type nameScope struct {
	namespace string
	// uses maps lower-cased aliases to imported names.
	uses map[string]string
	// class and parent are the enclosing class and its parent, both resolved.
	class  string
	parent string
}

func newNameScope() *nameScope {
	return &nameScope{uses: make(map[string]string)}
}

// enterNamespace switches namespace; imports do not carry over.
func (ns *nameScope) enterNamespace(name string) {
	ns.namespace = reflection.Normalize(strings.TrimSpace(name))
	ns.uses = make(map[string]string)
}

func (ns *nameScope) addUse(clause useClause) {
	ns.uses[strings.ToLower(clause.Alias)] = clause.FQN
}

// declared returns the FQN of a class declared under the current namespace.
func (ns *nameScope) declared(name string) string {
	return joinName(ns.namespace, name)
}

// resolve returns the FQN a class reference denotes, or "" for type
// keywords and unknown relative scopes.
func (ns *nameScope) resolve(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	if strings.HasPrefix(name, nsSep) {
		return reflection.Normalize(name)
	}

	lower := strings.ToLower(name)

	switch lower {
	case "self", "static":
		return ns.class
	case "parent":
		return ns.parent
	}

	if builtinTypes[lower] {
		return ""
	}

	head, rest, qualified := strings.Cut(name, nsSep)

	if qualified && strings.EqualFold(head, "namespace") {
		return joinName(ns.namespace, rest)
	}

	if imported, ok := ns.uses[strings.ToLower(head)]; ok {
		if qualified {
			return imported + nsSep + rest
		}

		return imported
	}

	return joinName(ns.namespace, name)
}

// resolveType reduces a declared type ("?Foo", "Foo|null", "Bar[]") to the
// class it names, if any.
func (ns *nameScope) resolveType(typ string) string {
	typ = strings.TrimPrefix(strings.TrimSpace(typ), "?")

	for part := range strings.SplitSeq(typ, "|") {
		part, _, _ = strings.Cut(strings.Trim(part, " ()"), "&")
		part, _, _ = strings.Cut(part, "<")

		if part == "" || strings.HasSuffix(part, "[]") {
			continue
		}

		if lower := strings.ToLower(part); lower == "null" || lower == "false" {
			continue
		}

		return ns.resolve(part)
	}

	return ""
}

func joinName(namespace, name string) string {
	if namespace == "" {
		return name
	}

	return namespace + nsSep + name
}

// lastSegment returns the unqualified part of a name.
func lastSegment(name string) string {
	if cut := strings.LastIndex(name, nsSep); cut >= 0 {
		return name[cut+1:]
	}

	return name
}

// parseUse reads the class imports of a "use" statement, including group
// imports. Function and constant imports yield nothing.
func parseUse(statement string) []useClause {
	body := strings.Join(strings.Fields(statement), " ")
	body = strings.TrimSuffix(strings.TrimSpace(body), ";")

	body, ok := cutKeyword(body, "use")
	if !ok {
		return nil
	}

	if _, isFunc := cutKeyword(body, "function"); isFunc {
		return nil
	}

	if _, isConst := cutKeyword(body, "const"); isConst {
		return nil
	}

	prefix := ""

	if open := strings.Index(body, "{"); open >= 0 {
		prefix = strings.TrimSuffix(strings.TrimSpace(body[:open]), nsSep)
		body = strings.TrimSuffix(strings.TrimSpace(body[open+1:]), "}")
	}

	var clauses []useClause

	for part := range strings.SplitSeq(body, ",") {
		part = strings.TrimSpace(part)
		if part == "" || strings.HasPrefix(part, "function ") || strings.HasPrefix(part, "const ") {
			continue
		}

		name, alias := splitAlias(part)

		fqn := reflection.Normalize(name)
		if prefix != "" {
			fqn = reflection.Normalize(prefix) + nsSep + fqn
		}

		if alias == "" {
			alias = lastSegment(fqn)
		}

		clauses = append(clauses, useClause{Alias: alias, FQN: fqn})
	}

	return clauses
}

func splitAlias(clause string) (name, alias string) {
	lower := strings.ToLower(clause)
	if cut := strings.LastIndex(lower, " as "); cut >= 0 {
		return strings.TrimSpace(clause[:cut]), strings.TrimSpace(clause[cut+len(" as "):])
	}

	return clause, ""
}

// cutKeyword removes a leading case-insensitive keyword followed by a space.
func cutKeyword(text, keyword string) (string, bool) {
	if len(text) <= len(keyword) || !strings.EqualFold(text[:len(keyword)], keyword) || text[len(keyword)] != ' ' {
		return text, false
	}

	return strings.TrimSpace(text[len(keyword):]), true
}
