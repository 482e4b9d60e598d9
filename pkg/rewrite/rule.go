// Package rewrite defines the two-phase rule contract and the engine that
// drives rules over parsed trees.
package rewrite

import (
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/refang/pkg/uast/pkg/node"
)

var (
	// ErrContractViolation is returned when Apply receives a candidate its
	// rule did not produce for that exact node. Drivers abort on it.
	ErrContractViolation = errors.New("rule contract violation")

	// ErrNotConverged is reported when rules still apply after the last pass.
	ErrNotConverged = errors.New("rewrite did not converge")
)

// Candidate is the scratch state a rule computes while matching a node. It
// is handed back to the same rule's Apply and never outlives that node.
type Candidate interface {
	Node() *node.Node
}

// Rule is a two-phase rewrite: Match inspects a node without mutating it
// and Apply performs the rewrite planned by the candidate.
type Rule interface {
	// Name identifies the rule in configuration, logs and metrics.
	Name() string

	// Match reports whether the rule applies to n. A non-matching or
	// unrecognized node yields false.
	Match(n *node.Node) (Candidate, bool)

	// Apply rewrites n using the candidate from the immediately preceding
	// Match on n. It returns n or its replacement.
	Apply(n *node.Node, c Candidate) (*node.Node, error)
}

// Describer is implemented by rules that can describe their configuration.
type Describer interface {
	Describe() string
}

// CheckCandidate asserts that c is of the rule's candidate type C and was
// produced for n.
func CheckCandidate[C Candidate](rule string, n *node.Node, c Candidate) (C, error) {
	var zero C

	typed, ok := c.(C)
	if !ok {
		return zero, fmt.Errorf("%s: foreign candidate %T: %w", rule, c, ErrContractViolation)
	}

	if typed.Node() != n {
		return zero, fmt.Errorf("%s: candidate was matched on another node: %w", rule, ErrContractViolation)
	}

	return typed, nil
}
