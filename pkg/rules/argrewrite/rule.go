// Package argrewrite backfills trailing arguments of configured methods at
// call sites and declarations, removing or defaulting deprecated positions.
package argrewrite

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/refang/pkg/builder"
	"github.com/Sumatoshi-tech/refang/pkg/classifier"
	"github.com/Sumatoshi-tech/refang/pkg/reflection"
	"github.com/Sumatoshi-tech/refang/pkg/rewrite"
	"github.com/Sumatoshi-tech/refang/pkg/uast/pkg/node"
)

// Name identifies the rule in configuration.
const Name = "argument_rewrite"

// Target is the candidate produced by Match.
type Target struct {
	Site *node.Node
	// Type and Method are the table entry the site resolved to.
	Type   string
	Method string
	// Changes is the active change set of the site.
	Changes map[int]Change
	// Count is the argument or parameter count seen by Match. Positions
	// below it are supplied and left alone.
	Count int
}

// Node implements rewrite.Candidate.
func (t *Target) Node() *node.Node {
	if t == nil {
		return nil
	}

	return t.Site
}

// Rule implements rewrite.Rule.
type Rule struct {
	table        *Table
	calls        classifier.Classifier
	declarations classifier.Classifier
}

// New creates the rule over table, classifying sites through reflector.
func New(table *Table, reflector reflection.Reflector) *Rule {
	return &Rule{
		table:        table,
		calls:        classifier.CallClassifier{Reflector: reflector},
		declarations: classifier.DeclarationClassifier{Reflector: reflector},
	}
}

// Name implements rewrite.Rule.
func (r *Rule) Name() string {
	return Name
}

// Describe implements rewrite.Describer.
func (r *Rule) Describe() string {
	return fmt.Sprintf("%d methods across %d types", r.table.Len(), len(r.table.Types()))
}

// Match implements rewrite.Rule.
func (r *Rule) Match(n *node.Node) (rewrite.Candidate, bool) {
	if n == nil || (n.Type != node.UASTMethod && !classifier.IsMethodCall(n)) {
		return nil, false
	}

	list := argumentList(n)
	if list == nil {
		return nil, false
	}

	target := r.activeChanges(n)
	if target == nil {
		return nil, false
	}

	target.Count = len(list.Children)

	for position := range target.Changes {
		if target.Count < position+1 {
			if backfilled(n, list, target.Changes) {
				return nil, false
			}

			return target, true
		}
	}

	return nil, false
}

// backfilled reports whether list already is Apply's output for some shorter
// original list: its tail holds exactly the defaults configured at or beyond
// that length, in position order. Compaction moves a default away from its
// configured index, so the count alone cannot tell.
func backfilled(site, list *node.Node, changes map[int]Change) bool {
	positions := Positions(changes)
	count := len(list.Children)

	for original := range count {
		var defaults []int

		for _, position := range positions {
			if position >= original && changes[position].Op == OpSetDefault {
				defaults = append(defaults, position)
			}
		}

		if original+len(defaults) != count {
			continue
		}

		if filledWith(site, list.Children[original:], defaults, changes) {
			return true
		}
	}

	return false
}

// filledWith reports whether tail is what fill builds for positions.
func filledWith(site *node.Node, tail []*node.Node, positions []int, changes map[int]Change) bool {
	for idx, position := range positions {
		want, err := fill(site, position, changes[position].Default)
		if err != nil {
			return false
		}

		got := tail[idx]

		if want.Type == node.UASTParameter {
			if got.Prop(node.PropName) != want.Prop(node.PropName) ||
				got.Prop(node.PropDefault) != want.Prop(node.PropDefault) {
				return false
			}

			continue
		}

		if got.Token != want.Token {
			return false
		}
	}

	return true
}

// activeChanges resolves the first configured type the site belongs to.
func (r *Rule) activeChanges(n *node.Node) *Target {
	for _, typeName := range r.table.Types() {
		methods := r.table.Methods(typeName)

		if !r.calls.Matches(n, typeName, methods) && !r.declarations.Matches(n, typeName, methods) {
			continue
		}

		method, _ := classifier.MatchedMethod(n, methods)

		return &Target{
			Site:    n,
			Type:    typeName,
			Method:  method,
			Changes: r.table.Changes(typeName, method),
		}
	}

	return nil
}

// Apply implements rewrite.Rule. Positions are taken in ascending order
// against the indices seen by Match; supplied positions are never touched.
// Filled slots are written back in position order without gaps.
func (r *Rule) Apply(n *node.Node, c rewrite.Candidate) (*node.Node, error) {
	target, err := rewrite.CheckCandidate[*Target](Name, n, c)
	if err != nil {
		return n, err
	}

	list := argumentList(n)
	if list == nil {
		return n, fmt.Errorf("%s: %s has no argument list: %w", Name, n.Type, rewrite.ErrContractViolation)
	}

	slots := make(map[int]*node.Node, len(list.Children)+len(target.Changes))
	for idx, child := range list.Children {
		slots[idx] = child
	}

	last := len(list.Children) - 1

	for _, position := range Positions(target.Changes) {
		if position < target.Count {
			continue
		}

		change := target.Changes[position]

		switch change.Op {
		case OpRemove:
			delete(slots, position)
		case OpSetDefault:
			filled, buildErr := fill(n, position, change.Default)
			if buildErr != nil {
				return n, fmt.Errorf("%s: %s::%s position %d: %w", Name, target.Type, target.Method, position, buildErr)
			}

			slots[position] = filled
			last = max(last, position)
		}
	}

	compacted := make([]*node.Node, 0, len(slots))

	for position := 0; position <= last; position++ {
		if slot, ok := slots[position]; ok {
			compacted = append(compacted, slot)
		}
	}

	list.Children = compacted

	return n, nil
}

// fill builds the node for a defaulted slot: a literal argument at call
// sites, an optional parameter on declarations.
func fill(site *node.Node, position int, value any) (*node.Node, error) {
	literal, err := builder.Literal(value)
	if err != nil {
		return nil, err
	}

	if site.Type != node.UASTMethod {
		literal.Roles = append(literal.Roles, node.RoleArgument)

		return literal, nil
	}

	name := "$arg" + strconv.Itoa(position)

	return node.NewBuilder().
		WithType(node.UASTParameter).
		WithToken(name).
		WithRoles(node.RoleParameter).
		WithProp(node.PropName, name).
		WithProp(node.PropDefault, literal.Token).
		WithChildren(literal).
		Build(), nil
}

// argumentList returns the call's argument list or the declaration's
// parameter list.
func argumentList(n *node.Node) *node.Node {
	if n.Type == node.UASTMethod {
		return n.FirstChild(node.UASTList, node.RoleParameter)
	}

	return n.FirstChild(node.UASTList, node.RoleArgument)
}

// Summary renders the table as "Type::method pos=op, ..." lines for listings.
func (t *Table) Summary() []string {
	var lines []string

	for _, typeName := range t.Types() {
		for _, method := range t.Methods(typeName) {
			changes := t.Changes(typeName, method)
			parts := make([]string, 0, len(changes))

			for _, position := range Positions(changes) {
				change := changes[position]
				part := strconv.Itoa(position) + "=" + string(change.Op)

				if change.Op == OpSetDefault {
					literal, err := builder.Literal(change.Default)
					if err == nil {
						part += "(" + literal.Token + ")"
					}
				}

				parts = append(parts, part)
			}

			lines = append(lines, typeName+"::"+method+" "+strings.Join(parts, ", "))
		}
	}

	return lines
}
